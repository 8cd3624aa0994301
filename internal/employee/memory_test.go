package employee

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedCatalog(t *testing.T, store *MemoryStore) (*Unit, *Position, *Position) {
	t.Helper()
	ctx := context.Background()

	unit := &Unit{Name: "Engineering"}
	if err := store.Units(ctx).Create(ctx, unit); err != nil {
		t.Fatalf("create unit: %v", err)
	}
	staff := &Position{Name: "Staff"}
	if err := store.Positions(ctx).Create(ctx, staff); err != nil {
		t.Fatalf("create position: %v", err)
	}
	lead := &Position{Name: "Lead"}
	if err := store.Positions(ctx).Create(ctx, lead); err != nil {
		t.Fatalf("create position: %v", err)
	}
	return unit, staff, lead
}

func TestMemoryEmployeeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	unit, staff, lead := seedCatalog(t, store)

	emp := &Employee{
		Name:         "Budi Santoso",
		Email:        "budi@example.com",
		Username:     "budi",
		PasswordHash: "hash",
		UnitID:       unit.ID,
		JoinedAt:     time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Employees(ctx).Create(ctx, emp, []string{staff.ID, lead.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if emp.ID == "" {
		t.Fatalf("expected generated id")
	}
	if emp.Unit == nil || emp.Unit.ID != unit.ID {
		t.Fatalf("expected resolved unit")
	}
	if len(emp.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(emp.Positions))
	}

	got, err := store.Employees(ctx).Find(ctx, emp.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Username != "budi" || len(got.Positions) != 2 {
		t.Fatalf("unexpected find result: %+v", got)
	}

	byName, err := store.Employees(ctx).FindByUsername(ctx, "budi")
	if err != nil || byName.ID != emp.ID {
		t.Fatalf("FindByUsername: %v", err)
	}
	byMail, err := store.Employees(ctx).FindByEmail(ctx, "BUDI@example.com")
	if err != nil || byMail.ID != emp.ID {
		t.Fatalf("FindByEmail should be case-insensitive: %v", err)
	}

	upd := &EmployeeUpdate{
		ID:          emp.ID,
		Name:        "Budi S.",
		Email:       "budi@example.com",
		Username:    "budi",
		UnitID:      unit.ID,
		JoinedAt:    emp.JoinedAt,
		PositionIDs: []string{lead.ID},
	}
	updated, err := store.Employees(ctx).Update(ctx, upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Budi S." || len(updated.Positions) != 1 {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.PasswordHash != "hash" {
		t.Fatalf("nil password must keep the stored hash")
	}

	hash := "newhash"
	upd.PasswordHash = &hash
	updated, err = store.Employees(ctx).Update(ctx, upd)
	if err != nil {
		t.Fatalf("Update with password: %v", err)
	}
	if updated.PasswordHash != "newhash" {
		t.Fatalf("expected replaced hash")
	}

	if err := store.Employees(ctx).Delete(ctx, emp.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Employees(ctx).Find(ctx, emp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryEmployeeReferenceChecks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	unit, staff, lead := seedCatalog(t, store)

	extra := &Position{Name: "Architect"}
	if err := store.Positions(ctx).Create(ctx, extra); err != nil {
		t.Fatalf("create position: %v", err)
	}

	mk := func() *Employee {
		return &Employee{
			Name: "Siti", Username: "siti", PasswordHash: "h",
			UnitID: unit.ID, JoinedAt: time.Now(),
		}
	}

	// No positions.
	if err := store.Employees(ctx).Create(ctx, mk(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero positions, got %v", err)
	}
	// Three positions.
	if err := store.Employees(ctx).Create(ctx, mk(), []string{staff.ID, lead.ID, extra.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for three positions, got %v", err)
	}
	// Duplicate position.
	if err := store.Employees(ctx).Create(ctx, mk(), []string{staff.ID, staff.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate positions, got %v", err)
	}
	// Unknown unit.
	e := mk()
	e.UnitID = "missing"
	if err := store.Employees(ctx).Create(ctx, e, []string{staff.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown unit, got %v", err)
	}
	// Unknown position.
	if err := store.Employees(ctx).Create(ctx, mk(), []string{"missing"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown position, got %v", err)
	}

	// A failed create leaves no partial record behind.
	n, err := store.Employees(ctx).Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no employees after failed creates, got %d", n)
	}

	// Valid create, then uniqueness checks.
	if err := store.Employees(ctx).Create(ctx, mk(), []string{staff.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := mk()
	if err := store.Employees(ctx).Create(ctx, dup, []string{staff.ID}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for duplicate username, got %v", err)
	}
}

func TestMemoryUnitDeleteInUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	unit, staff, _ := seedCatalog(t, store)

	emp := &Employee{Name: "Budi", Username: "budi", PasswordHash: "h", UnitID: unit.ID, JoinedAt: time.Now()}
	if err := store.Employees(ctx).Create(ctx, emp, []string{staff.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Units(ctx).Delete(ctx, unit.ID); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse deleting referenced unit, got %v", err)
	}
	if err := store.Positions(ctx).Delete(ctx, staff.ID); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse deleting held position, got %v", err)
	}

	if err := store.Employees(ctx).Delete(ctx, emp.ID); err != nil {
		t.Fatalf("Delete employee: %v", err)
	}
	if err := store.Units(ctx).Delete(ctx, unit.ID); err != nil {
		t.Fatalf("Delete unit after detach: %v", err)
	}
	if err := store.Positions(ctx).Delete(ctx, staff.ID); err != nil {
		t.Fatalf("Delete position after detach: %v", err)
	}
}

func TestMemoryUnitNameConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Units(ctx).Create(ctx, &Unit{Name: "Finance"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Units(ctx).Create(ctx, &Unit{Name: "finance"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for case-folded duplicate, got %v", err)
	}
}

func TestMemoryTopCounters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	unit, staff, _ := seedCatalog(t, store)

	frequent := &Employee{Name: "Frequent", Username: "freq", PasswordHash: "h", UnitID: unit.ID, JoinedAt: time.Now()}
	casual := &Employee{Name: "Casual", Username: "casual", PasswordHash: "h", UnitID: unit.ID, JoinedAt: time.Now()}
	for _, e := range []*Employee{frequent, casual} {
		if err := store.Employees(ctx).Create(ctx, e, []string{staff.ID}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		if err := store.Logins(ctx).Record(ctx, frequent.ID, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		if err := store.Logins(ctx).Record(ctx, casual.ID, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	// Unbounded window: only the 30-login employee clears the >25 threshold.
	top, err := store.Logins(ctx).TopCounters(ctx, nil, nil)
	if err != nil {
		t.Fatalf("TopCounters: %v", err)
	}
	if len(top) != 1 || top[0].EmployeeID != frequent.ID || top[0].Count != 30 {
		t.Fatalf("unexpected counters: %+v", top)
	}

	// A window covering only the first 20 events drops everyone below the
	// threshold; the threshold does not scale with the window.
	from := base
	to := base.Add(19 * time.Hour)
	top, err = store.Logins(ctx).TopCounters(ctx, &from, &to)
	if err != nil {
		t.Fatalf("TopCounters windowed: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("expected empty result inside narrow window, got %+v", top)
	}

	// Totals are unaffected by any window.
	n, err := store.Logins(ctx).Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 40 {
		t.Fatalf("expected 40 total events, got %d", n)
	}
}

func TestMemoryDeleteEmployeeKeepsLoginHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	unit, staff, _ := seedCatalog(t, store)

	emp := &Employee{Name: "Budi", Username: "budi", PasswordHash: "h", UnitID: unit.ID, JoinedAt: time.Now()}
	if err := store.Employees(ctx).Create(ctx, emp, []string{staff.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Logins(ctx).Record(ctx, emp.ID, time.Now()); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	// The employee can be deleted despite the history; the append-only
	// events survive the deletion.
	if err := store.Employees(ctx).Delete(ctx, emp.ID); err != nil {
		t.Fatalf("Delete with login history: %v", err)
	}
	n, err := store.Logins(ctx).Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 surviving events, got %d", n)
	}
}

func TestMemoryCounts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	unit, staff, _ := seedCatalog(t, store)

	emp := &Employee{Name: "Budi", Username: "budi", PasswordHash: "h", UnitID: unit.ID, JoinedAt: time.Now()}
	if err := store.Employees(ctx).Create(ctx, emp, []string{staff.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Logins(ctx).Record(ctx, emp.ID, time.Now()); err != nil {
		t.Fatalf("Record: %v", err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	want := Counts{Employees: 1, Logins: 1, Units: 1, Positions: 2}
	if counts != want {
		t.Fatalf("Counts = %+v, want %+v", counts, want)
	}
}

func TestMemoryLoginRecordUnknownEmployee(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Logins(ctx).Record(ctx, "missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
