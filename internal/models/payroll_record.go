package models

import "time"

// UnknownRole is stored when a payslip does not disclose the position.
const UnknownRole = "UNKNOWN"

// PayrollRecord is one disclosed payslip for one reference period.
// Column names follow the historico_folha table read by the dashboard.
type PayrollRecord struct {
	ID             uint      `gorm:"primaryKey"`
	Name           string    `gorm:"column:nome;index"`
	Role           string    `gorm:"column:cargo;index"`
	NetIncome      float64   `gorm:"column:rendimento_liquido"`
	TotalCredits   float64   `gorm:"column:total_creditos"`
	TotalDebits    float64   `gorm:"column:total_debitos"`
	ReferenceMonth int       `gorm:"column:mes_referencia;index"`
	ReferenceYear  int       `gorm:"column:ano_referencia;index"`
	CollectedAt    time.Time `gorm:"column:data_coleta;type:date"`
	SourceURL      string    `gorm:"column:url_origem;not null;uniqueIndex:unico_por_url"`
}

func (PayrollRecord) TableName() string {
	return "historico_folha"
}

func (r PayrollRecord) Period() Period {
	return Period{Year: r.ReferenceYear, Month: r.ReferenceMonth}
}
