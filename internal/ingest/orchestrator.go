package ingest

import (
	"context"
	"log/slog"
	"time"

	"sentinela/internal/models"
	"sentinela/internal/pkg/payslip"
)

// Source is the disclosure portal.
type Source interface {
	ListEmployees(ctx context.Context, period models.Period) ([]models.EmployeeStub, error)
	FetchDetail(ctx context.Context, stub models.EmployeeStub) (*payslip.Detail, error)
}

// Orchestrator walks periods one at a time: list, dedup, fetch, persist.
type Orchestrator struct {
	Source Source
	Repo   Repository
	Pool   *Pool
	Logger *slog.Logger
	Now    func() time.Time
}

func NewOrchestrator(source Source, repo Repository, workers int, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		Source: source,
		Repo:   repo,
		Pool:   NewPool(workers),
		Logger: loggerOrDiscard(logger),
		Now:    time.Now,
	}
}

// Run processes periods in the given order. A failing period is recorded in
// the summary and the next one is attempted; only ctx cancellation stops
// the loop early.
func (o *Orchestrator) Run(ctx context.Context, periods []models.Period) *Summary {
	summary := &Summary{}
	for _, period := range periods {
		if ctx.Err() != nil {
			o.logger().Warn("run interrupted", "next_period", period.String(), "err", ctx.Err())
			break
		}

		report := o.RunPeriod(ctx, period)
		summary.Add(report)
	}
	o.logger().Info("run finished", "periods", len(summary.Periods), "total_saved", summary.TotalSaved)
	return summary
}

// RunPeriod ingests a single period.
func (o *Orchestrator) RunPeriod(ctx context.Context, period models.Period) PeriodReport {
	log := o.logger().With("period", period.String())
	report := PeriodReport{Period: period}

	stubs, err := o.Source.ListEmployees(ctx, period)
	if err != nil {
		log.Warn("listing failed", "err", err)
		report.Outcome = OutcomeListingFailed
		report.Err = err
		return report
	}
	report.Listed = len(stubs)
	if len(stubs) == 0 {
		log.Info("no disclosures for period")
		report.Outcome = OutcomeNoData
		return report
	}

	known, err := o.Repo.KnownURLs(ctx, period)
	if err != nil {
		log.Error("loading stored urls failed", "err", err)
		report.Outcome = OutcomeStoreFailed
		report.Err = err
		return report
	}

	pending := FilterKnown(stubs, known)
	report.Pending = len(pending)
	if len(pending) == 0 {
		log.Info("period already complete", "records", len(stubs))
		report.Outcome = OutcomeUpToDate
		return report
	}

	log.Info("fetching new records", "pending", len(pending), "listed", len(stubs))
	records := o.fetch(ctx, period, pending, &report)
	if len(records) == 0 {
		log.Warn("no detail page could be processed", "failed", report.Failed)
		report.Outcome = OutcomeNothingFetched
		return report
	}

	persister := &Persister{Repo: o.Repo, Logger: o.logger()}
	log.Info("saving records", "records", len(records))
	pr, err := persister.Persist(ctx, period, records)
	report.Saved = pr.Saved
	report.Skipped = pr.Skipped
	if err != nil {
		log.Error("saving batch failed", "err", err)
		report.Outcome = OutcomePersistFailed
		report.Err = err
		return report
	}

	log.Info("period finished", "saved", pr.Saved, "skipped", pr.Skipped, "failed", report.Failed)
	report.Outcome = OutcomeSaved
	return report
}

func (o *Orchestrator) fetch(ctx context.Context, period models.Period, pending []models.EmployeeStub, report *PeriodReport) []*models.PayrollRecord {
	log := o.logger().With("period", period.String())
	collectedAt := dateOnly(o.now())

	pool := o.Pool
	if pool == nil {
		pool = NewPool(DefaultPoolSize)
	}
	outer := pool.OnProgress
	pool = &Pool{
		Size: pool.Size,
		OnProgress: func(done, total int) {
			log.Debug("fetch progress", "done", done, "total", total)
			if outer != nil {
				outer(done, total)
			}
		},
	}

	results := pool.Run(ctx, pending, func(ctx context.Context, stub models.EmployeeStub) Result {
		detail, err := o.Source.FetchDetail(ctx, stub)
		if err != nil {
			return Fail(stub, err)
		}
		if detail == nil {
			return Empty(stub)
		}
		return Ok(stub, &models.PayrollRecord{
			Name:           stub.Name,
			Role:           detail.Role,
			NetIncome:      detail.NetIncome,
			TotalCredits:   detail.TotalCredits,
			TotalDebits:    detail.TotalDebits,
			ReferenceMonth: period.Month,
			ReferenceYear:  period.Year,
			CollectedAt:    collectedAt,
			SourceURL:      stub.DetailURL,
		})
	})

	records := make([]*models.PayrollRecord, 0, len(results))
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			records = append(records, r.Record)
		case StatusErr:
			report.Failed++
			log.Debug("record dropped", "url", r.Stub.DetailURL, "kind", string(r.Kind()), "err", r.Err)
		case StatusEmpty:
			report.Failed++
			log.Debug("record dropped", "url", r.Stub.DetailURL, "kind", "empty")
		}
	}
	report.Fetched = len(records)
	return records
}

func (o *Orchestrator) logger() *slog.Logger {
	return loggerOrDiscard(o.Logger)
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
