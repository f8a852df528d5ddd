package ingest

import "sentinela/internal/models"

type Status int

const (
	StatusOK Status = iota
	StatusErr
	StatusEmpty
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusErr:
		return "error"
	case StatusEmpty:
		return "empty"
	}
	return "unknown"
}

// Result is the outcome of fetching and normalizing one stub.
type Result struct {
	Stub   models.EmployeeStub
	Status Status
	Record *models.PayrollRecord
	Err    error
}

func Ok(stub models.EmployeeStub, record *models.PayrollRecord) Result {
	return Result{Stub: stub, Status: StatusOK, Record: record}
}

func Fail(stub models.EmployeeStub, err error) Result {
	return Result{Stub: stub, Status: StatusErr, Err: err}
}

func Empty(stub models.EmployeeStub) Result {
	return Result{Stub: stub, Status: StatusEmpty}
}

func (r Result) Kind() ErrorKind {
	return Kind(r.Err)
}
