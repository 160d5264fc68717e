// Package store provides the structured employee record store backing the
// agent's lookup capabilities.
package store

import "context"

// Employee is a single employee record.
type Employee struct {
	EmployeeID string   `json:"employee_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Department string   `json:"department,omitempty"`
	Position   string   `json:"position,omitempty"`
	JoinDate   string   `json:"join_date,omitempty"`
	SalaryUSD  *float64 `json:"salary_usd,omitempty"`
}

// EmployeeStore is the record store contract. Lookups are case-normalized
// on the identifier field. The store has no native category queries;
// department filtering is emulated by callers on top of Search.
type EmployeeStore interface {
	// GetByID returns the employee with the given identifier, or nil when
	// no such record exists.
	GetByID(ctx context.Context, employeeID string) (*Employee, error)

	// Search matches the term against name, email, department and
	// identifier, returning at most limit records.
	Search(ctx context.Context, term string, limit int) ([]Employee, error)

	// ListAll returns up to limit records.
	ListAll(ctx context.Context, limit int) ([]Employee, error)
}
