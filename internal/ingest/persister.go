package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sentinela/internal/logger"
	"sentinela/internal/models"
)

// Repository is the store as seen by the pipeline. One Batch holds exactly
// one period.
type Repository interface {
	KnownURLs(ctx context.Context, period models.Period) (map[string]struct{}, error)
	Begin(ctx context.Context) (Batch, error)
}

// Batch is an open transaction. StageInsert returns an error wrapping
// ErrPersistenceConflict when the source URL already exists.
type Batch interface {
	StageInsert(ctx context.Context, record *models.PayrollRecord) error
	Commit() error
	Rollback() error
}

type PersistReport struct {
	Saved   int
	Skipped int
}

type Persister struct {
	Repo   Repository
	Logger *slog.Logger
}

// Persist stages every record and commits once. Duplicate URLs are skipped;
// any other failure rolls the whole period back.
func (p *Persister) Persist(ctx context.Context, period models.Period, records []*models.PayrollRecord) (PersistReport, error) {
	var report PersistReport
	if len(records) == 0 {
		return report, nil
	}
	log := loggerOrDiscard(p.Logger).With("period", period.String())

	batch, err := p.Repo.Begin(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %s: %v", ErrPersistenceFailure, period, err)
	}

	staged := 0
	for _, record := range records {
		err := batch.StageInsert(ctx, record)
		if errors.Is(err, ErrPersistenceConflict) {
			report.Skipped++
			log.Warn("skipping already stored record", "url", record.SourceURL, "name", record.Name)
			continue
		}
		if err != nil {
			p.rollback(batch, log)
			return PersistReport{}, fmt.Errorf("%w: %s: stage %s: %v", ErrPersistenceFailure, period, record.SourceURL, err)
		}
		staged++
	}

	if err := batch.Commit(); err != nil {
		p.rollback(batch, log)
		return PersistReport{Skipped: report.Skipped}, fmt.Errorf("%w: %s: commit: %v", ErrPersistenceFailure, period, err)
	}

	report.Saved = staged
	return report, nil
}

func (p *Persister) rollback(batch Batch, log *slog.Logger) {
	if err := batch.Rollback(); err != nil {
		log.Error("rollback failed", "err", err)
	}
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return logger.Discard()
	}
	return l
}
