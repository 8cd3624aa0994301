package employee

import (
	"context"
	"time"
)

// Store describes persistence operations required by the employee subsystem.
type Store interface {
	Employees(ctx context.Context) EmployeeStore
	Units(ctx context.Context) UnitStore
	Positions(ctx context.Context) PositionStore
	Logins(ctx context.Context) LoginStore

	// Counts returns the unfiltered entity totals in one round trip.
	Counts(ctx context.Context) (Counts, error)
}

// EmployeeStore manages employee records together with their position
// attachments. Create, Update and Delete are each a single transaction: a
// failure partway leaves no orphaned employee or dangling join rows.
type EmployeeStore interface {
	Create(ctx context.Context, e *Employee, positionIDs []string) error
	Find(ctx context.Context, id string) (*Employee, error)
	FindByUsername(ctx context.Context, username string) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	List(ctx context.Context) ([]*Employee, error)
	Update(ctx context.Context, upd *EmployeeUpdate) (*Employee, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// UnitStore manages organizational units. Delete returns ErrInUse while any
// employee references the unit.
type UnitStore interface {
	Create(ctx context.Context, u *Unit) error
	Find(ctx context.Context, id string) (*Unit, error)
	List(ctx context.Context) ([]*Unit, error)
	Update(ctx context.Context, u *Unit) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// PositionStore manages positions. Delete returns ErrInUse while any employee
// holds the position.
type PositionStore interface {
	Create(ctx context.Context, p *Position) error
	Find(ctx context.Context, id string) (*Position, error)
	List(ctx context.Context) ([]*Position, error)
	Update(ctx context.Context, p *Position) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// LoginStore appends and aggregates login events.
type LoginStore interface {
	Record(ctx context.Context, employeeID string, at time.Time) error
	Count(ctx context.Context) (int64, error)
	// TopCounters groups events in the optional inclusive [from, to] window
	// by employee, keeps groups past the fixed frequency threshold and
	// returns at most the fixed number of rows, ordered by count descending.
	TopCounters(ctx context.Context, from, to *time.Time) ([]LoginCounter, error)
}
