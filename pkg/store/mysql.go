package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements EmployeeStore over a MySQL database.
type MySQLStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMySQLStore opens a connection pool for the given DSN and verifies
// connectivity.
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &MySQLStore{db: db, logger: slog.Default()}, nil
}

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

const employeeColumns = "EmployeeID, Name, Email, Phone, Department, Position, JoinDate, SalaryUSD"

func scanEmployee(row interface{ Scan(...any) error }) (*Employee, error) {
	var e Employee
	var email, phone, department, position sql.NullString
	var joinDate sql.NullTime
	var salary sql.NullFloat64
	if err := row.Scan(&e.EmployeeID, &e.Name, &email, &phone, &department, &position, &joinDate, &salary); err != nil {
		return nil, err
	}
	e.Email = email.String
	e.Phone = phone.String
	e.Department = department.String
	e.Position = position.String
	if joinDate.Valid {
		e.JoinDate = joinDate.Time.Format("2006-01-02")
	}
	if salary.Valid {
		v := salary.Float64
		e.SalaryUSD = &v
	}
	return &e, nil
}

// GetByID looks up a single employee. Identifiers are stored uppercase, so
// the input is normalized before the query.
func (s *MySQLStore) GetByID(ctx context.Context, employeeID string) (*Employee, error) {
	id := strings.ToUpper(strings.TrimSpace(employeeID))
	query := fmt.Sprintf("SELECT %s FROM employees WHERE EmployeeID = ?", employeeColumns)
	e, err := scanEmployee(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch employee %s: %w", id, err)
	}
	return e, nil
}

// Search matches the term against name, email, department and identifier.
func (s *MySQLStore) Search(ctx context.Context, term string, limit int) ([]Employee, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + strings.TrimSpace(term) + "%"
	query := fmt.Sprintf(`SELECT %s FROM employees
		WHERE Name LIKE ? OR Email LIKE ? OR Department LIKE ? OR EmployeeID LIKE ?
		ORDER BY EmployeeID LIMIT ?`, employeeColumns)
	rows, err := s.db.QueryContext(ctx, query, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search employees: %w", err)
	}
	defer rows.Close()
	return collectEmployees(rows)
}

// ListAll returns up to limit records ordered by identifier.
func (s *MySQLStore) ListAll(ctx context.Context, limit int) ([]Employee, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT %s FROM employees ORDER BY EmployeeID LIMIT ?", employeeColumns)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()
	return collectEmployees(rows)
}

func collectEmployees(rows *sql.Rows) ([]Employee, error) {
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee row: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CreateSchema creates the employees table if it does not exist.
func (s *MySQLStore) CreateSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS employees (
		EmployeeID VARCHAR(20) PRIMARY KEY,
		Name VARCHAR(255) NOT NULL,
		Email VARCHAR(255),
		Phone VARCHAR(50),
		Department VARCHAR(100),
		Position VARCHAR(100),
		JoinDate DATE,
		SalaryUSD DECIMAL(12,2),
		INDEX idx_name (Name),
		INDEX idx_department (Department)
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create employees table: %w", err)
	}
	return nil
}

// ImportCSV loads employee records from a CSV file into the table.
// Existing records with the same identifier are replaced. Rows without an
// identifier are skipped.
func (s *MySQLStore) ImportCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := parseEmployeeCSV(f)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `REPLACE INTO employees
		(EmployeeID, Name, Email, Phone, Department, Position, JoinDate, SalaryUSD)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range records {
		var joinDate any
		if e.JoinDate != "" {
			joinDate = e.JoinDate
		}
		var salary any
		if e.SalaryUSD != nil {
			salary = *e.SalaryUSD
		}
		if _, err := stmt.ExecContext(ctx, e.EmployeeID, e.Name, e.Email, e.Phone,
			e.Department, e.Position, joinDate, salary); err != nil {
			return 0, fmt.Errorf("failed to import employee %s: %w", e.EmployeeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	s.logger.Info("Imported employee records", "count", len(records), "path", path)
	return len(records), nil
}

// parseEmployeeCSV reads employee rows from CSV data with a header line of
// EmployeeID,Name,Email,Phone,Department,Position,JoinDate,SalaryUSD.
// Blank lines and rows without an identifier are skipped.
func parseEmployeeCSV(r io.Reader) ([]Employee, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Employee
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		id := strings.ToUpper(field(row, "employeeid"))
		if id == "" {
			continue
		}
		e := Employee{
			EmployeeID: id,
			Name:       field(row, "name"),
			Email:      field(row, "email"),
			Phone:      field(row, "phone"),
			Department: field(row, "department"),
			Position:   field(row, "position"),
			JoinDate:   field(row, "joindate"),
		}
		if raw := field(row, "salaryusd"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid salary %q for employee %s: %w", raw, id, err)
			}
			e.SalaryUSD = &v
		}
		out = append(out, e)
	}
	return out, nil
}
