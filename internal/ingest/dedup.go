package ingest

import "sentinela/internal/models"

// FilterKnown returns the stubs whose detail URL is not in known, keeping
// listing order.
func FilterKnown(stubs []models.EmployeeStub, known map[string]struct{}) []models.EmployeeStub {
	pending := make([]models.EmployeeStub, 0, len(stubs))
	for _, s := range stubs {
		if _, ok := known[s.DetailURL]; ok {
			continue
		}
		pending = append(pending, s)
	}
	return pending
}
