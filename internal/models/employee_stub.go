package models

// EmployeeStub points at a detail page found on a period listing. It is never persisted.
type EmployeeStub struct {
	Name      string
	DetailURL string
}
