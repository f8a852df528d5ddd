package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeTaskIngestPayroll = "task:ingest_payroll"
)

// IngestPayrollPayload selects what a scheduled ingestion visits. With Year
// and Month set only that period is processed; otherwise Historical picks
// between a backfill and the current year.
type IngestPayrollPayload struct {
	Historical bool `json:"historical"`
	Year       *int `json:"year,omitempty"`
	Month      *int `json:"month,omitempty"`
}

// NewIngestPayrollTask creates a new task for asynq
func NewIngestPayrollTask(historical bool) (*asynq.Task, error) {
	return newIngestTask(IngestPayrollPayload{Historical: historical})
}

// NewIngestPeriodTask targets a single reference period.
func NewIngestPeriodTask(year, month int) (*asynq.Task, error) {
	return newIngestTask(IngestPayrollPayload{Year: &year, Month: &month})
}

func newIngestTask(payload IngestPayrollPayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeTaskIngestPayroll, payloadBytes), nil
}
