package ingest

import (
	"errors"

	"sentinela/internal/pkg/payslip"
	"sentinela/internal/pkg/transparencia"
)

var (
	ErrRetrieval           = transparencia.ErrRetrieval
	ErrParse               = payslip.ErrParse
	ErrPersistenceConflict = errors.New("source url already stored")
	ErrPersistenceFailure  = errors.New("period batch not persisted")
)

type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindRetrieval           ErrorKind = "retrieval"
	KindParse               ErrorKind = "parse"
	KindPersistenceConflict ErrorKind = "persistence_conflict"
	KindPersistenceFailure  ErrorKind = "persistence_failure"
	KindUnknown             ErrorKind = "unknown"
)

// Kind classifies an error produced anywhere in the pipeline.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrRetrieval):
		return KindRetrieval
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrPersistenceConflict):
		return KindPersistenceConflict
	case errors.Is(err, ErrPersistenceFailure):
		return KindPersistenceFailure
	default:
		return KindUnknown
	}
}
