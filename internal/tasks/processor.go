package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sentinela/internal/config"
	"sentinela/internal/db"
	"sentinela/internal/ingest"
	"sentinela/internal/models"
	"sentinela/internal/pkg/transparencia"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// TaskProcessor holds dependencies for our task handlers
type TaskProcessor struct {
	DB     *gorm.DB
	config *config.Config
	portal *transparencia.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskProcessor creates a new TaskProcessor
func NewTaskProcessor(db *gorm.DB, cfg *config.Config, logger *slog.Logger) (*TaskProcessor, error) {
	portal, err := transparencia.New(transparencia.Options{
		BaseURL:           cfg.PortalBaseURL,
		ListTimeout:       cfg.ListTimeout,
		DetailTimeout:     cfg.DetailTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	return &TaskProcessor{
		DB:     db,
		config: cfg,
		portal: portal,
		logger: logger,
		now:    time.Now,
	}, nil
}

// HandleIngestPayrollTask runs one ingestion. Per-period failures are part of
// a normal run and do not make the task fail.
func (p *TaskProcessor) HandleIngestPayrollTask(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayrollPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
		}
	}

	periods, err := p.periodsFor(payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	p.logger.Info("ingesting payroll", "periods", len(periods), "historical", payload.Historical)

	orchestrator := ingest.NewOrchestrator(p.portal, db.NewPayrollRepository(p.DB), p.config.FetchWorkers, p.logger)
	orchestrator.Now = p.now
	summary := orchestrator.Run(ctx, periods)

	p.logger.Info("payroll ingestion finished", "total_saved", summary.TotalSaved)
	return nil
}

func (p *TaskProcessor) periodsFor(payload IngestPayrollPayload) ([]models.Period, error) {
	if payload.Year != nil || payload.Month != nil {
		if payload.Year == nil || payload.Month == nil {
			return nil, fmt.Errorf("year and month must be given together")
		}
		period := models.Period{Year: *payload.Year, Month: *payload.Month}
		if !period.Valid() {
			return nil, fmt.Errorf("invalid period %d-%d", period.Year, period.Month)
		}
		return []models.Period{period}, nil
	}

	mode := ingest.ModeFromFlag(payload.Historical)
	return ingest.Periods(mode, p.now(), p.config.HistoryStartYear), nil
}

func (p *TaskProcessor) GetPortalClient() *transparencia.Client {
	return p.portal
}

// SetClock pins the processor's notion of today.
func (p *TaskProcessor) SetClock(now func() time.Time) {
	p.now = now
}
