package models

import (
	"fmt"
	"time"
)

// Period is a disclosure reference month. It scopes dedup reads, fetch
// scheduling and commits.
type Period struct {
	Year  int
	Month int
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Code is the YYYYMM form used by the portal's folha parameter.
func (p Period) Code() string {
	return fmt.Sprintf("%d%02d", p.Year, p.Month)
}

func (p Period) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}
