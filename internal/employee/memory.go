package employee

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"talenta.dev/internal/ids"
)

// MemoryStore implements Store with in-process concurrency safety. Used by
// tests and by DSN-less development runs.
type MemoryStore struct {
	mu        sync.RWMutex
	employees map[string]*Employee
	units     map[string]*Unit
	positions map[string]*Position
	holdings  map[string][]string // employee id -> position ids, attach order
	logins    []LoginEvent
	now       func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		employees: make(map[string]*Employee),
		units:     make(map[string]*Unit),
		positions: make(map[string]*Position),
		holdings:  make(map[string][]string),
		now:       time.Now,
	}
}

// SetClock overrides the time source. Only intended for tests.
func (s *MemoryStore) SetClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

func (s *MemoryStore) Employees(ctx context.Context) EmployeeStore { return (*memEmployees)(s) }
func (s *MemoryStore) Units(ctx context.Context) UnitStore         { return (*memUnits)(s) }
func (s *MemoryStore) Positions(ctx context.Context) PositionStore { return (*memPositions)(s) }
func (s *MemoryStore) Logins(ctx context.Context) LoginStore       { return (*memLogins)(s) }

func (s *MemoryStore) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Employees: int64(len(s.employees)),
		Logins:    int64(len(s.logins)),
		Units:     int64(len(s.units)),
		Positions: int64(len(s.positions)),
	}, nil
}

// Employee store ------------------------------------------------------------

type memEmployees MemoryStore

func (s *memEmployees) Create(ctx context.Context, e *Employee, positionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReferences(e.UnitID, positionIDs); err != nil {
		return err
	}
	if s.usernameTaken(e.Username, "") {
		return ErrAlreadyExists
	}
	if e.Email != "" && s.emailTaken(e.Email, "") {
		return ErrAlreadyExists
	}

	if e.ID == "" {
		e.ID = ids.New()
	}
	now := s.now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	stored := *e
	stored.Unit = nil
	stored.Positions = nil
	s.employees[e.ID] = &stored
	s.holdings[e.ID] = append([]string(nil), positionIDs...)

	s.resolveLocked(e)
	return nil
}

func (s *memEmployees) Find(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *stored
	s.resolveLocked(&out)
	return &out, nil
}

func (s *memEmployees) FindByUsername(ctx context.Context, username string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, stored := range s.employees {
		if stored.Username == username {
			out := *stored
			s.resolveLocked(&out)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memEmployees) FindByEmail(ctx context.Context, email string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, stored := range s.employees {
		if stored.Email != "" && strings.EqualFold(stored.Email, email) {
			out := *stored
			s.resolveLocked(&out)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memEmployees) List(ctx context.Context) ([]*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Employee, 0, len(s.employees))
	for _, stored := range s.employees {
		out := *stored
		s.resolveLocked(&out)
		res = append(res, &out)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (s *memEmployees) Update(ctx context.Context, upd *EmployeeUpdate) (*Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.employees[upd.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.checkReferences(upd.UnitID, upd.PositionIDs); err != nil {
		return nil, err
	}
	if s.usernameTaken(upd.Username, upd.ID) {
		return nil, ErrAlreadyExists
	}
	if upd.Email != "" && s.emailTaken(upd.Email, upd.ID) {
		return nil, ErrAlreadyExists
	}

	stored.Name = upd.Name
	stored.Email = upd.Email
	stored.Username = upd.Username
	stored.UnitID = upd.UnitID
	stored.JoinedAt = upd.JoinedAt
	if upd.PasswordHash != nil {
		stored.PasswordHash = *upd.PasswordHash
	}
	stored.UpdatedAt = s.now().UTC()
	s.holdings[upd.ID] = append([]string(nil), upd.PositionIDs...)

	out := *stored
	s.resolveLocked(&out)
	return &out, nil
}

func (s *memEmployees) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		return ErrNotFound
	}
	delete(s.employees, id)
	delete(s.holdings, id)
	return nil
}

func (s *memEmployees) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.employees)), nil
}

// checkReferences validates the unit and position foreign references and the
// per-employee position bound. Callers hold the write lock.
func (s *memEmployees) checkReferences(unitID string, positionIDs []string) error {
	if len(positionIDs) < 1 || len(positionIDs) > MaxPositions {
		return ErrInvalidInput
	}
	if _, ok := s.units[unitID]; !ok {
		return ErrInvalidInput
	}
	seen := make(map[string]struct{}, len(positionIDs))
	for _, pid := range positionIDs {
		if _, ok := s.positions[pid]; !ok {
			return ErrInvalidInput
		}
		if _, dup := seen[pid]; dup {
			return ErrInvalidInput
		}
		seen[pid] = struct{}{}
	}
	return nil
}

func (s *memEmployees) usernameTaken(username, exceptID string) bool {
	for id, e := range s.employees {
		if id != exceptID && e.Username == username {
			return true
		}
	}
	return false
}

func (s *memEmployees) emailTaken(email, exceptID string) bool {
	for id, e := range s.employees {
		if id != exceptID && e.Email != "" && strings.EqualFold(e.Email, email) {
			return true
		}
	}
	return false
}

// resolveLocked fills the employee's unit and positions. Callers hold at
// least the read lock.
func (s *memEmployees) resolveLocked(e *Employee) {
	if u, ok := s.units[e.UnitID]; ok {
		cp := *u
		e.Unit = &cp
	}
	e.Positions = nil
	for _, pid := range s.holdings[e.ID] {
		if p, ok := s.positions[pid]; ok {
			e.Positions = append(e.Positions, *p)
		}
	}
}

// Unit store ----------------------------------------------------------------

type memUnits MemoryStore

func (s *memUnits) Create(ctx context.Context, u *Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.units {
		if strings.EqualFold(existing.Name, u.Name) {
			return ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.units[u.ID] = &cp
	return nil
}

func (s *memUnits) Find(ctx context.Context, id string) (*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *memUnits) List(ctx context.Context) ([]*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Unit, 0, len(s.units))
	for _, u := range s.units {
		out := *u
		res = append(res, &out)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (s *memUnits) Update(ctx context.Context, u *Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.units[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range s.units {
		if id != u.ID && strings.EqualFold(existing.Name, u.Name) {
			return ErrAlreadyExists
		}
	}
	stored.Name = u.Name
	stored.UpdatedAt = s.now().UTC()
	*u = *stored
	return nil
}

func (s *memUnits) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[id]; !ok {
		return ErrNotFound
	}
	for _, e := range s.employees {
		if e.UnitID == id {
			return ErrInUse
		}
	}
	delete(s.units, id)
	return nil
}

func (s *memUnits) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.units)), nil
}

// Position store ------------------------------------------------------------

type memPositions MemoryStore

func (s *memPositions) Create(ctx context.Context, p *Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.positions {
		if strings.EqualFold(existing.Name, p.Name) {
			return ErrAlreadyExists
		}
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.positions[p.ID] = &cp
	return nil
}

func (s *memPositions) Find(ctx context.Context, id string) (*Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *memPositions) List(ctx context.Context) ([]*Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Position, 0, len(s.positions))
	for _, p := range s.positions {
		out := *p
		res = append(res, &out)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (s *memPositions) Update(ctx context.Context, p *Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.positions[p.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range s.positions {
		if id != p.ID && strings.EqualFold(existing.Name, p.Name) {
			return ErrAlreadyExists
		}
	}
	stored.Name = p.Name
	stored.UpdatedAt = s.now().UTC()
	*p = *stored
	return nil
}

func (s *memPositions) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[id]; !ok {
		return ErrNotFound
	}
	for _, held := range s.holdings {
		for _, pid := range held {
			if pid == id {
				return ErrInUse
			}
		}
	}
	delete(s.positions, id)
	return nil
}

func (s *memPositions) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.positions)), nil
}

// Login store ---------------------------------------------------------------

type memLogins MemoryStore

func (s *memLogins) Record(ctx context.Context, employeeID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[employeeID]; !ok {
		return ErrNotFound
	}
	s.logins = append(s.logins, LoginEvent{
		ID:         ids.New(),
		EmployeeID: employeeID,
		At:         at.UTC(),
	})
	return nil
}

func (s *memLogins) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.logins)), nil
}

func (s *memLogins) TopCounters(ctx context.Context, from, to *time.Time) ([]LoginCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, ev := range s.logins {
		if from != nil && ev.At.Before(*from) {
			continue
		}
		if to != nil && ev.At.After(*to) {
			continue
		}
		counts[ev.EmployeeID]++
	}

	var res []LoginCounter
	for id, n := range counts {
		if n > topLoginThreshold {
			res = append(res, LoginCounter{EmployeeID: id, Count: n})
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Count == res[j].Count {
			return res[i].EmployeeID < res[j].EmployeeID
		}
		return res[i].Count > res[j].Count
	})
	if len(res) > topLoginLimit {
		res = res[:topLoginLimit]
	}
	return res, nil
}
