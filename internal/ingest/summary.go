package ingest

import (
	"io"

	"sentinela/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Outcome string

const (
	OutcomeListingFailed  Outcome = "listing failed"
	OutcomeNoData         Outcome = "no data"
	OutcomeStoreFailed    Outcome = "store unavailable"
	OutcomeUpToDate       Outcome = "up to date"
	OutcomeNothingFetched Outcome = "nothing fetched"
	OutcomePersistFailed  Outcome = "rolled back"
	OutcomeSaved          Outcome = "saved"
)

// PeriodReport counts what happened to one period.
type PeriodReport struct {
	Period  models.Period
	Outcome Outcome
	Listed  int
	Pending int
	Fetched int
	Failed  int
	Saved   int
	Skipped int
	Err     error
}

type Summary struct {
	Periods    []PeriodReport
	TotalSaved int
}

func (s *Summary) Add(r PeriodReport) {
	s.Periods = append(s.Periods, r)
	s.TotalSaved += r.Saved
}

// Report returns the entry for period, if it was visited.
func (s *Summary) Report(period models.Period) (PeriodReport, bool) {
	for _, r := range s.Periods {
		if r.Period == period {
			return r, true
		}
	}
	return PeriodReport{}, false
}

// Render writes the per-period table followed by the run total.
func (s *Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Period", "Outcome", "Listed", "New", "Fetched", "Failed", "Saved", "Skipped"})
	for _, r := range s.Periods {
		t.AppendRow(table.Row{r.Period.String(), string(r.Outcome), r.Listed, r.Pending, r.Fetched, r.Failed, r.Saved, r.Skipped})
	}
	t.AppendFooter(table.Row{"", "Total saved", "", "", "", "", s.TotalSaved, ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
