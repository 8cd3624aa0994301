package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"talenta.dev/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL and returns a ready store.
func Open(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PGStore{db: db}, nil
}

// NewPGStore wraps an existing database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) DB() *sql.DB { return s.db }

func (s *PGStore) Employees(ctx context.Context) EmployeeStore { return &pgEmployees{db: s.db} }
func (s *PGStore) Units(ctx context.Context) UnitStore         { return &pgUnits{db: s.db} }
func (s *PGStore) Positions(ctx context.Context) PositionStore { return &pgPositions{db: s.db} }
func (s *PGStore) Logins(ctx context.Context) LoginStore       { return &pgLogins{db: s.db} }

func (s *PGStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from employees),
			(select count(*) from login_events),
			(select count(*) from units),
			(select count(*) from positions)
	`).Scan(&c.Employees, &c.Logins, &c.Units, &c.Positions)
	return c, err
}

// mapPGError translates Postgres constraint violations into domain errors.
func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrAlreadyExists
		case "23503": // foreign_key_violation
			return ErrInvalidInput
		}
	}
	return err
}

// Employee store ------------------------------------------------------------

type pgEmployees struct{ db *sql.DB }

const employeeColumns = `id, name, coalesce(email, ''), username, password_hash, unit_id, joined_at, created_at, updated_at`

func (s *pgEmployees) Create(ctx context.Context, e *Employee, positionIDs []string) error {
	if len(positionIDs) < 1 || len(positionIDs) > MaxPositions {
		return ErrInvalidInput
	}
	if e.ID == "" {
		e.ID = ids.New()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		insert into employees(id, name, email, username, password_hash, unit_id, joined_at)
		values ($1, $2, nullif($3,''), $4, $5, $6, $7)
		returning created_at, updated_at
	`, e.ID, e.Name, e.Email, e.Username, e.PasswordHash, e.UnitID, e.JoinedAt).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return mapPGError(err)
	}
	if err := attachPositions(ctx, tx, e.ID, positionIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

func attachPositions(ctx context.Context, tx *sql.Tx, employeeID string, positionIDs []string) error {
	for _, pid := range positionIDs {
		res, err := tx.ExecContext(ctx, `
			insert into employee_positions(employee_id, position_id)
			select $1, id from positions where id = $2
			on conflict do nothing
		`, employeeID, pid)
		if err != nil {
			return mapPGError(err)
		}
		// Zero rows means the position id does not exist.
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrInvalidInput
		}
	}
	return nil
}

func (s *pgEmployees) Find(ctx context.Context, id string) (*Employee, error) {
	return s.findBy(ctx, `id = $1`, id)
}

func (s *pgEmployees) FindByUsername(ctx context.Context, username string) (*Employee, error) {
	return s.findBy(ctx, `username = $1`, username)
}

func (s *pgEmployees) FindByEmail(ctx context.Context, email string) (*Employee, error) {
	return s.findBy(ctx, `lower(email) = lower($1)`, email)
}

func (s *pgEmployees) findBy(ctx context.Context, where string, arg any) (*Employee, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from employees where %s`, employeeColumns, where), arg)
	var e Employee
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Username, &e.PasswordHash,
		&e.UnitID, &e.JoinedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.resolve(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *pgEmployees) List(ctx context.Context) ([]*Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`select %s from employees order by created_at, id`, employeeColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Username, &e.PasswordHash,
			&e.UnitID, &e.JoinedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, e := range res {
		if err := s.resolve(ctx, e); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *pgEmployees) Update(ctx context.Context, upd *EmployeeUpdate) (*Employee, error) {
	if len(upd.PositionIDs) < 1 || len(upd.PositionIDs) > MaxPositions {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var res sql.Result
	if upd.PasswordHash != nil {
		res, err = tx.ExecContext(ctx, `
			update employees
			set name=$2, email=nullif($3,''), username=$4, unit_id=$5, joined_at=$6,
			    password_hash=$7, updated_at=now()
			where id=$1
		`, upd.ID, upd.Name, upd.Email, upd.Username, upd.UnitID, upd.JoinedAt, *upd.PasswordHash)
	} else {
		res, err = tx.ExecContext(ctx, `
			update employees
			set name=$2, email=nullif($3,''), username=$4, unit_id=$5, joined_at=$6,
			    updated_at=now()
			where id=$1
		`, upd.ID, upd.Name, upd.Email, upd.Username, upd.UnitID, upd.JoinedAt)
	}
	if err != nil {
		return nil, mapPGError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`delete from employee_positions where employee_id = $1`, upd.ID); err != nil {
		return nil, err
	}
	if err := attachPositions(ctx, tx, upd.ID, upd.PositionIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.Find(ctx, upd.ID)
}

func (s *pgEmployees) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`delete from employee_positions where employee_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from employees where id = $1`, id)
	if err != nil {
		return mapPGError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *pgEmployees) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, s.db, `employees`)
}

func (s *pgEmployees) resolve(ctx context.Context, e *Employee) error {
	row := s.db.QueryRowContext(ctx,
		`select id, name, created_at, updated_at from units where id = $1`, e.UnitID)
	var u Unit
	if err := row.Scan(&u.ID, &u.Name, &u.CreatedAt, &u.UpdatedAt); err == nil {
		e.Unit = &u
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.name, p.created_at, p.updated_at
		from positions p
		join employee_positions ep on ep.position_id = p.id
		where ep.employee_id = $1
		order by p.name
	`, e.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	e.Positions = nil
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		e.Positions = append(e.Positions, p)
	}
	return rows.Err()
}

// Unit store ----------------------------------------------------------------

type pgUnits struct{ db *sql.DB }

func (s *pgUnits) Create(ctx context.Context, u *Unit) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into units(id, name) values ($1, $2)
		returning created_at, updated_at
	`, u.ID, u.Name).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapPGError(err)
}

func (s *pgUnits) Find(ctx context.Context, id string) (*Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, created_at, updated_at from units where id = $1`, id)
	var u Unit
	if err := row.Scan(&u.ID, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *pgUnits) List(ctx context.Context) ([]*Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, created_at, updated_at from units order by created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &u)
	}
	return res, rows.Err()
}

func (s *pgUnits) Update(ctx context.Context, u *Unit) error {
	err := s.db.QueryRowContext(ctx, `
		update units set name = $2, updated_at = now() where id = $1
		returning created_at, updated_at
	`, u.ID, u.Name).Scan(&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return mapPGError(err)
}

func (s *pgUnits) Delete(ctx context.Context, id string) error {
	var refs int64
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from employees where unit_id = $1`, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrInUse
	}
	res, err := s.db.ExecContext(ctx, `delete from units where id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrInUse
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgUnits) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, s.db, `units`)
}

// Position store ------------------------------------------------------------

type pgPositions struct{ db *sql.DB }

func (s *pgPositions) Create(ctx context.Context, p *Position) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into positions(id, name) values ($1, $2)
		returning created_at, updated_at
	`, p.ID, p.Name).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapPGError(err)
}

func (s *pgPositions) Find(ctx context.Context, id string) (*Position, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, created_at, updated_at from positions where id = $1`, id)
	var p Position
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *pgPositions) List(ctx context.Context) ([]*Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, created_at, updated_at from positions order by created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &p)
	}
	return res, rows.Err()
}

func (s *pgPositions) Update(ctx context.Context, p *Position) error {
	err := s.db.QueryRowContext(ctx, `
		update positions set name = $2, updated_at = now() where id = $1
		returning created_at, updated_at
	`, p.ID, p.Name).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return mapPGError(err)
}

func (s *pgPositions) Delete(ctx context.Context, id string) error {
	var refs int64
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from employee_positions where position_id = $1`, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrInUse
	}
	res, err := s.db.ExecContext(ctx, `delete from positions where id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrInUse
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgPositions) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, s.db, `positions`)
}

// Login store ---------------------------------------------------------------

type pgLogins struct{ db *sql.DB }

func (s *pgLogins) Record(ctx context.Context, employeeID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		insert into login_events(id, employee_id, occurred_at) values ($1, $2, $3)
	`, ids.New(), employeeID, at.UTC())
	return mapPGError(err)
}

func (s *pgLogins) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, s.db, `login_events`)
}

func (s *pgLogins) TopCounters(ctx context.Context, from, to *time.Time) ([]LoginCounter, error) {
	query := `select employee_id, count(*) as login_count from login_events`
	var (
		conds []string
		args  []any
	)
	if from != nil {
		args = append(args, *from)
		conds = append(conds, fmt.Sprintf(`occurred_at >= $%d`, len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, fmt.Sprintf(`occurred_at <= $%d`, len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += ` where ` + c
		} else {
			query += ` and ` + c
		}
	}
	query += fmt.Sprintf(` group by employee_id having count(*) > %d order by login_count desc limit %d`,
		topLoginThreshold, topLoginLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []LoginCounter
	for rows.Next() {
		var c LoginCounter
		if err := rows.Scan(&c.EmployeeID, &c.Count); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// --- helpers ---

func countRows(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, fmt.Sprintf(`select count(*) from %s`, table)).Scan(&n)
	return n, err
}
