package ingest

import (
	"time"

	"sentinela/internal/models"
)

type Mode int

const (
	// ModeIncremental checks the current year only.
	ModeIncremental Mode = iota
	// ModeBackfill re-scans every year from the configured start year.
	ModeBackfill
)

func ModeFromFlag(historical bool) Mode {
	if historical {
		return ModeBackfill
	}
	return ModeIncremental
}

func (m Mode) String() string {
	if m == ModeBackfill {
		return "backfill"
	}
	return "incremental"
}

// Periods lists the periods to visit, newest first. Months after now are
// never included.
func Periods(mode Mode, now time.Time, startYear int) []models.Period {
	current := models.PeriodOf(now)
	first := current.Year
	if mode == ModeBackfill && startYear > 0 && startYear < first {
		first = startYear
	}

	periods := make([]models.Period, 0, (current.Year-first+1)*12)
	for year := current.Year; year >= first; year-- {
		for month := 12; month >= 1; month-- {
			p := models.Period{Year: year, Month: month}
			if current.Before(p) {
				continue
			}
			periods = append(periods, p)
		}
	}
	return periods
}
