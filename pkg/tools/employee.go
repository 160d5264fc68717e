package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/parley/pkg/store"
)

const (
	defaultSearchLimit  = 10
	departmentScanLimit = 100
)

// NewEmployeeTools returns the employee lookup tool set backed by the given
// store.
func NewEmployeeTools(s store.EmployeeStore) []Tool {
	return []Tool{
		&getEmployeeByIDTool{store: s},
		&searchEmployeesTool{store: s},
		&employeesByDepartmentTool{store: s},
	}
}

// stringArg extracts a string argument, tolerating non-string JSON values
// the model occasionally produces (numbers, booleans).
func stringArg(args map[string]interface{}, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", s))
	}
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	v, ok := args[key]
	if !ok || v == nil {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}

// ----------------------------------------------------------------------
// get_employee_by_id
// ----------------------------------------------------------------------

type getEmployeeByIDTool struct {
	store store.EmployeeStore
}

func (t *getEmployeeByIDTool) GetName() string { return "get_employee_by_id" }

func (t *getEmployeeByIDTool) GetDescription() string {
	return "Look up a single employee record by employee ID (for example EMP001)"
}

func (t *getEmployeeByIDTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "employee_id", Type: "string", Description: "The employee identifier to look up", Required: true},
		},
	}
}

func (t *getEmployeeByIDTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	started := time.Now()
	id := stringArg(args, "employee_id")
	if id == "" {
		return errorResult(t.GetName(), "employee_id is required", time.Since(started))
	}

	emp, err := t.store.GetByID(ctx, id)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), time.Since(started))
	}
	if emp == nil {
		return errorResult(t.GetName(), fmt.Sprintf("no employee found with ID %s", strings.ToUpper(id)), time.Since(started))
	}
	return successResult(t.GetName(), emp, 1, time.Since(started))
}

// ----------------------------------------------------------------------
// search_employees
// ----------------------------------------------------------------------

type searchEmployeesTool struct {
	store store.EmployeeStore
}

func (t *searchEmployeesTool) GetName() string { return "search_employees" }

func (t *searchEmployeesTool) GetDescription() string {
	return "Search employees by name, email, department or employee ID"
}

func (t *searchEmployeesTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "search_term", Type: "string", Description: "Text to match against name, email, department and ID", Required: true},
			{Name: "limit", Type: "integer", Description: "Maximum number of results", Required: false, Default: defaultSearchLimit},
		},
	}
}

func (t *searchEmployeesTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	started := time.Now()
	term := stringArg(args, "search_term")
	if term == "" {
		return errorResult(t.GetName(), "search_term is required", time.Since(started))
	}
	limit := intArg(args, "limit", defaultSearchLimit)

	matches, err := t.store.Search(ctx, term, limit)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), time.Since(started))
	}
	return successResult(t.GetName(), matches, len(matches), time.Since(started))
}

// ----------------------------------------------------------------------
// get_employees_by_department
// ----------------------------------------------------------------------

// employeesByDepartmentTool emulates a department query on top of the
// generic search: it scans a wider candidate set and keeps only exact
// case-insensitive department matches. Departments with more than
// departmentScanLimit fuzzy matches may be truncated.
type employeesByDepartmentTool struct {
	store store.EmployeeStore
}

func (t *employeesByDepartmentTool) GetName() string { return "get_employees_by_department" }

func (t *employeesByDepartmentTool) GetDescription() string {
	return "List all employees in a specific department"
}

func (t *employeesByDepartmentTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "department", Type: "string", Description: "Exact department name, such as Engineering or Finance", Required: true},
		},
	}
}

func (t *employeesByDepartmentTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	started := time.Now()
	department := stringArg(args, "department")
	if department == "" {
		return errorResult(t.GetName(), "department is required", time.Since(started))
	}

	candidates, err := t.store.Search(ctx, department, departmentScanLimit)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), time.Since(started))
	}

	var matches []store.Employee
	for _, e := range candidates {
		if strings.EqualFold(e.Department, department) {
			matches = append(matches, e)
		}
	}
	return successResult(t.GetName(), matches, len(matches), time.Since(started))
}
