package testhelpers

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"sentinela/internal/db"
	"sentinela/internal/models"

	g "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated SQLite database in a per-test temp dir.
func NewTestDB() *gorm.DB {
	g.GinkgoHelper()

	path := filepath.Join(g.GinkgoT().TempDir(), "sentinela_test.db")
	conn, err := db.InitDB(path)
	Expect(err).NotTo(HaveOccurred())
	Expect(db.Migrate(conn)).To(Succeed())

	g.DeferCleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

// CreatePayrollRecord stores a record, filling defaults for unset fields.
func CreatePayrollRecord(conn *gorm.DB, record *models.PayrollRecord) *models.PayrollRecord {
	g.GinkgoHelper()

	if record.Name == "" {
		record.Name = "SERVIDOR TESTE"
	}
	if record.Role == "" {
		record.Role = "ASSESSOR"
	}
	if record.CollectedAt.IsZero() {
		record.CollectedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	}
	if record.SourceURL == "" {
		record.SourceURL = fmt.Sprintf("https://transparencia.al.al.leg.br/detalhar.php?id=%d", time.Now().UnixNano())
	}

	result := gorm.WithResult()
	Expect(gorm.G[models.PayrollRecord](conn, result).Create(context.Background(), record)).To(Succeed())
	Expect(result.RowsAffected).To(Equal(int64(1)))
	return record
}

// CountRecords counts stored records for a period.
func CountRecords(conn *gorm.DB, period models.Period) int64 {
	g.GinkgoHelper()

	count, err := gorm.G[models.PayrollRecord](conn).
		Where("mes_referencia = ? AND ano_referencia = ?", period.Month, period.Year).
		Count(context.Background(), "id")
	Expect(err).NotTo(HaveOccurred())
	return count
}
