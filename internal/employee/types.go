package employee

import "time"

// Employee is a staff record and the principal of the authentication flow.
// The password hash never serializes.
type Employee struct {
	ID           string     `json:"id"`
	Name         string     `json:"nama"`
	Email        string     `json:"email,omitempty"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	UnitID       string     `json:"unit_id"`
	JoinedAt     time.Time  `json:"tanggal_bergabung"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Unit         *Unit      `json:"unit,omitempty"`
	Positions    []Position `json:"jabatans,omitempty"`
}

// EmployeeUpdate describes a full update of an employee record. A nil
// PasswordHash keeps the stored credential; a non-nil one replaces it.
type EmployeeUpdate struct {
	ID           string
	Name         string
	Email        string
	Username     string
	PasswordHash *string
	UnitID       string
	JoinedAt     time.Time
	PositionIDs  []string
}

// Unit is an organizational unit. Each employee belongs to exactly one.
type Unit struct {
	ID        string    `json:"id"`
	Name      string    `json:"nama"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position (jabatan) relates many-to-many with employees. An employee holds
// one or two positions; the bound is enforced at write time.
type Position struct {
	ID        string    `json:"id"`
	Name      string    `json:"nama"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginEvent is one successful authentication. Append-only: the application
// never updates or deletes rows.
type LoginEvent struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"karyawan_id"`
	At         time.Time `json:"waktu_login"`
}

// LoginCounter is one row of the top-logins aggregation.
type LoginCounter struct {
	EmployeeID string
	Count      int64
}

// Counts holds unfiltered entity totals for the dashboard.
type Counts struct {
	Employees int64
	Logins    int64
	Units     int64
	Positions int64
}

const (
	// MaxPositions bounds the employee/position relation per employee.
	MaxPositions = 2

	// Top-logins business rule: only employees with more than
	// topLoginThreshold events in the window, at most topLoginLimit rows.
	// The threshold is fixed; it does not scale with the window.
	topLoginThreshold = 25
	topLoginLimit     = 10
)
