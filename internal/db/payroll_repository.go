package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentinela/internal/ingest"
	"sentinela/internal/models"

	"gorm.io/gorm"
)

// PayrollRepository is the gorm-backed store for payroll records.
type PayrollRepository struct {
	DB *gorm.DB
}

func NewPayrollRepository(db *gorm.DB) *PayrollRepository {
	return &PayrollRepository{DB: db}
}

// KnownURLs returns the source URLs already stored for exactly this period.
func (r *PayrollRepository) KnownURLs(ctx context.Context, period models.Period) (map[string]struct{}, error) {
	var urls []string
	err := r.DB.WithContext(ctx).
		Model(&models.PayrollRecord{}).
		Where("mes_referencia = ? AND ano_referencia = ?", period.Month, period.Year).
		Pluck("url_origem", &urls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load known urls for %s: %w", period, err)
	}

	known := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		known[u] = struct{}{}
	}
	return known, nil
}

// Begin opens the transaction that holds one period's batch.
func (r *PayrollRepository) Begin(ctx context.Context) (ingest.Batch, error) {
	tx := r.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &payrollBatch{tx: tx}, nil
}

type payrollBatch struct {
	tx *gorm.DB
}

// StageInsert runs each insert in its own savepoint, so a unique violation
// leaves the rest of the batch usable on Postgres as well.
func (b *payrollBatch) StageInsert(ctx context.Context, record *models.PayrollRecord) error {
	err := b.tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return sp.Create(record).Error
	})
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		record.ID = 0
		return fmt.Errorf("%w: %s", ingest.ErrPersistenceConflict, record.SourceURL)
	}
	return err
}

func (b *payrollBatch) Commit() error {
	return b.tx.Commit().Error
}

func (b *payrollBatch) Rollback() error {
	err := b.tx.Rollback().Error
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// PeriodCount is the number of stored records for one reference period.
type PeriodCount struct {
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Records       int64     `json:"records"`
	LastCollected time.Time `json:"last_collected"`
}

type periodCountRow struct {
	Year          int
	Month         int
	Records       int64
	LastCollected sql.NullString
}

// PeriodCounts lists stored periods, newest first.
func (r *PayrollRepository) PeriodCounts(ctx context.Context, limit int) ([]PeriodCount, error) {
	var rows []periodCountRow
	q := r.DB.WithContext(ctx).
		Model(&models.PayrollRecord{}).
		Select("ano_referencia AS year, mes_referencia AS month, COUNT(*) AS records, MAX(data_coleta) AS last_collected").
		Group("ano_referencia, mes_referencia").
		Order("ano_referencia DESC, mes_referencia DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count periods: %w", err)
	}

	out := make([]PeriodCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, PeriodCount{
			Year:          row.Year,
			Month:         row.Month,
			Records:       row.Records,
			LastCollected: parseCollectedDate(row.LastCollected.String),
		})
	}
	return out, nil
}

// PeriodCount returns the stored count for one period; Records is zero when
// nothing was ingested yet.
func (r *PayrollRepository) PeriodCount(ctx context.Context, period models.Period) (PeriodCount, error) {
	var row periodCountRow
	err := r.DB.WithContext(ctx).
		Model(&models.PayrollRecord{}).
		Select("COUNT(*) AS records, MAX(data_coleta) AS last_collected").
		Where("mes_referencia = ? AND ano_referencia = ?", period.Month, period.Year).
		Scan(&row).Error
	if err != nil {
		return PeriodCount{}, fmt.Errorf("failed to count period %s: %w", period, err)
	}

	return PeriodCount{
		Year:          period.Year,
		Month:         period.Month,
		Records:       row.Records,
		LastCollected: parseCollectedDate(row.LastCollected.String),
	}, nil
}

// MAX() over a date column comes back as text on SQLite and as a timestamp
// string on Postgres.
func parseCollectedDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t
		}
	}
	return time.Time{}
}
