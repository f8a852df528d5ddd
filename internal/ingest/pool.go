package ingest

import (
	"context"
	"fmt"
	"sync"

	"sentinela/internal/models"

	"golang.org/x/sync/errgroup"
)

const DefaultPoolSize = 10

// Task fetches and normalizes one stub.
type Task func(ctx context.Context, stub models.EmployeeStub) Result

// Pool runs tasks with at most Size in flight. Each Run call owns its
// goroutines and waits for all of them before returning.
type Pool struct {
	Size int
	// OnProgress, when set, is called after every completed task.
	OnProgress func(done, total int)
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{Size: size}
}

// Run executes task for every stub. Results arrive in completion order; a
// failing task never cancels its siblings.
func (p *Pool) Run(ctx context.Context, stubs []models.EmployeeStub, task Task) []Result {
	size := p.Size
	if size <= 0 {
		size = DefaultPoolSize
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make([]Result, 0, len(stubs))
		total   = len(stubs)
	)
	g.SetLimit(size)

	for _, stub := range stubs {
		stub := stub
		g.Go(func() error {
			r := runTask(ctx, task, stub)

			mu.Lock()
			results = append(results, r)
			done := len(results)
			if p.OnProgress != nil {
				p.OnProgress(done, total)
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func runTask(ctx context.Context, task Task, stub models.EmployeeStub) (r Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r = Fail(stub, fmt.Errorf("task panicked: %v", rec))
		}
	}()
	return task(ctx, stub)
}
