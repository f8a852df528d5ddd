package ingest_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"sentinela/internal/ingest"
	"sentinela/internal/models"
	"sentinela/internal/pkg/payslip"
	"sentinela/internal/testhelpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	var stubs []models.EmployeeStub

	BeforeEach(func() {
		stubs = nil
		for i := 1; i <= 10; i++ {
			stubs = append(stubs, stubFor("SERVIDOR", i))
		}
	})

	It("never has more than Size tasks in flight", func() {
		var inFlight, maxInFlight atomic.Int32
		pool := ingest.NewPool(3)

		results := pool.Run(context.Background(), stubs, func(_ context.Context, stub models.EmployeeStub) ingest.Result {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return ingest.Ok(stub, &models.PayrollRecord{SourceURL: stub.DetailURL})
		})

		Expect(results).To(HaveLen(10))
		Expect(maxInFlight.Load()).To(BeNumerically("<=", 3))
		Expect(maxInFlight.Load()).To(BeNumerically(">", 1))
		Expect(inFlight.Load()).To(BeZero())
	})

	It("keeps going when tasks fail or panic", func() {
		pool := ingest.NewPool(4)

		results := pool.Run(context.Background(), stubs, func(_ context.Context, stub models.EmployeeStub) ingest.Result {
			switch stub.DetailURL {
			case stubs[0].DetailURL:
				return ingest.Fail(stub, errors.New("boom"))
			case stubs[1].DetailURL:
				panic("malformed page")
			case stubs[2].DetailURL:
				return ingest.Empty(stub)
			}
			return ingest.Ok(stub, &models.PayrollRecord{SourceURL: stub.DetailURL})
		})

		Expect(results).To(HaveLen(10))
		counts := map[ingest.Status]int{}
		for _, r := range results {
			counts[r.Status]++
		}
		Expect(counts).To(Equal(map[ingest.Status]int{
			ingest.StatusOK:    7,
			ingest.StatusErr:   2,
			ingest.StatusEmpty: 1,
		}))
	})

	It("returns results in completion order", func() {
		pool := ingest.NewPool(2)
		slow, fast := stubs[0], stubs[1]

		results := pool.Run(context.Background(), []models.EmployeeStub{slow, fast}, func(_ context.Context, stub models.EmployeeStub) ingest.Result {
			if stub == slow {
				time.Sleep(50 * time.Millisecond)
			}
			return ingest.Ok(stub, nil)
		})

		Expect(results).To(HaveLen(2))
		Expect(results[0].Stub).To(Equal(fast))
		Expect(results[1].Stub).To(Equal(slow))
	})

	It("reports progress for every completed task", func() {
		var (
			mu     sync.Mutex
			seen   []int
			totals = map[int]bool{}
		)
		pool := ingest.NewPool(5)
		pool.OnProgress = func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			totals[total] = true
			seen = append(seen, done)
		}

		pool.Run(context.Background(), stubs, func(_ context.Context, stub models.EmployeeStub) ingest.Result {
			return ingest.Ok(stub, nil)
		})

		Expect(seen).To(Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
		Expect(totals).To(Equal(map[int]bool{10: true}))
	})

	It("passes cancellation through to tasks", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results := ingest.NewPool(3).Run(ctx, stubs, func(ctx context.Context, stub models.EmployeeStub) ingest.Result {
			if err := ctx.Err(); err != nil {
				return ingest.Fail(stub, err)
			}
			return ingest.Ok(stub, nil)
		})

		Expect(results).To(HaveLen(10))
		for _, r := range results {
			Expect(r.Err).To(MatchError(context.Canceled))
		}
	})

	It("parses detail pages in parallel without losing any", func() {
		page := testhelpers.MustLoadFixture("detail_full.html")
		many := make([]models.EmployeeStub, 0, 200)
		for i := 0; i < 200; i++ {
			many = append(many, stubFor("SERVIDOR", i))
		}

		results := ingest.NewPool(ingest.DefaultPoolSize).Run(context.Background(), many, func(_ context.Context, stub models.EmployeeStub) ingest.Result {
			detail, err := payslip.Parse(page)
			if err != nil {
				return ingest.Fail(stub, err)
			}
			return ingest.Ok(stub, &models.PayrollRecord{Role: detail.Role, NetIncome: detail.NetIncome, SourceURL: stub.DetailURL})
		})

		Expect(results).To(HaveLen(200))
		for _, r := range results {
			Expect(r.Err).NotTo(HaveOccurred())
			Expect(r.Record.Role).To(Equal("ASSESSOR PARLAMENTAR"))
			Expect(r.Record.NetIncome).To(BeNumerically("~", 9135.67, 1e-9))
		}
	})

	It("uses the default size when none is given", func() {
		Expect(ingest.NewPool(0).Size).To(Equal(ingest.DefaultPoolSize))
	})
})
