package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"talenta.dev/internal/employee"
)

func seedEmployee(t *testing.T, store *employee.MemoryStore) *employee.Employee {
	t.Helper()
	ctx := context.Background()

	unit := &employee.Unit{Name: "Engineering"}
	if err := store.Units(ctx).Create(ctx, unit); err != nil {
		t.Fatalf("create unit: %v", err)
	}
	pos := &employee.Position{Name: "Staff"}
	if err := store.Positions(ctx).Create(ctx, pos); err != nil {
		t.Fatalf("create position: %v", err)
	}

	hash, err := HashPassword("open-sesame")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	emp := &employee.Employee{
		Name:         "Budi Santoso",
		Email:        "budi@example.com",
		Username:     "budi",
		PasswordHash: hash,
		UnitID:       unit.ID,
		JoinedAt:     time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Employees(ctx).Create(ctx, emp, []string{pos.ID}); err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return emp
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatalf("hash equals plaintext")
	}
	if err := VerifyPassword(hash, "correct horse battery"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestTokenIssueAndValidate(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	issuer.SetClock(func() time.Time { return now })

	token, claims, err := issuer.Issue("emp-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if claims.Subject != "emp-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected a token id")
	}

	parsed, err := issuer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if parsed.Subject != "emp-1" {
		t.Fatalf("unexpected subject after parse: %s", parsed.Subject)
	}

	// One second before expiry the token still validates.
	now = now.Add(time.Hour - time.Second)
	if _, err := issuer.ParseAndValidate(token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	// At the exact expiry instant validation fails.
	now = now.Add(time.Second)
	if _, err := issuer.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at expiry, got %v", err)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, _, err := issuer.Issue("emp-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewTokenIssuer("another-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	if _, err := other.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
	if _, err := issuer.ParseAndValidate(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for mangled token, got %v", err)
	}
	if _, err := issuer.ParseAndValidate(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestLoginByUsernameAndEmail(t *testing.T) {
	ctx := context.Background()
	store := employee.NewMemoryStore()
	emp := seedEmployee(t, store)

	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	svc := NewService(store, issuer)

	token, got, err := svc.Login(ctx, "budi", "open-sesame")
	if err != nil {
		t.Fatalf("login by username: %v", err)
	}
	if token == "" || got.ID != emp.ID {
		t.Fatalf("unexpected login result: token=%q id=%s", token, got.ID)
	}

	if _, _, err := svc.Login(ctx, "budi@example.com", "open-sesame"); err != nil {
		t.Fatalf("login by email: %v", err)
	}

	// Each successful login appends one event.
	n, err := store.Logins(ctx).Count(ctx)
	if err != nil {
		t.Fatalf("count logins: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 login events, got %d", n)
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	ctx := context.Background()
	store := employee.NewMemoryStore()
	seedEmployee(t, store)

	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	svc := NewService(store, issuer)

	_, _, errUnknown := svc.Login(ctx, "nobody", "open-sesame")
	_, _, errWrongPass := svc.Login(ctx, "budi", "not-the-password")
	if !errors.Is(errUnknown, ErrUnauthorized) || !errors.Is(errWrongPass, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for both failures, got %v / %v", errUnknown, errWrongPass)
	}

	// Failed attempts never write login history.
	n, err := store.Logins(ctx).Count(ctx)
	if err != nil {
		t.Fatalf("count logins: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no login events, got %d", n)
	}
}

func TestAuthenticateResolvesPrincipal(t *testing.T) {
	ctx := context.Background()
	store := employee.NewMemoryStore()
	emp := seedEmployee(t, store)

	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	svc := NewService(store, issuer)

	token, _, err := svc.Login(ctx, "budi", "open-sesame")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	got, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != emp.ID {
		t.Fatalf("unexpected principal: %s", got.ID)
	}

	// A valid token whose subject was deleted reports the missing principal,
	// not an invalid token.
	if err := store.Employees(ctx).Delete(ctx, emp.ID); err != nil {
		t.Fatalf("delete employee: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, employee.ErrNotFound) {
		t.Fatalf("expected employee.ErrNotFound, got %v", err)
	}
}

func TestRefreshWithinGrace(t *testing.T) {
	ctx := context.Background()
	store := employee.NewMemoryStore()
	emp := seedEmployee(t, store)

	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, issuer,
		WithRefreshGrace(24*time.Hour),
		WithClock(func() time.Time { return now }),
	)

	token, _, err := svc.Login(ctx, "budi", "open-sesame")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Expired two hours ago but inside the 24h grace window.
	now = now.Add(3 * time.Hour)
	newToken, got, err := svc.Refresh(ctx, token)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if newToken == token || got.ID != emp.ID {
		t.Fatalf("expected a fresh token for the same principal")
	}
	if _, err := svc.Authenticate(ctx, newToken); err != nil {
		t.Fatalf("authenticate refreshed token: %v", err)
	}

	// The superseded token cannot be refreshed again.
	if _, _, err := svc.Refresh(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for superseded token, got %v", err)
	}
}

func TestRefreshOutsideGrace(t *testing.T) {
	ctx := context.Background()
	store := employee.NewMemoryStore()
	seedEmployee(t, store)

	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store, issuer,
		WithRefreshGrace(24*time.Hour),
		WithClock(func() time.Time { return now }),
	)

	token, _, err := svc.Login(ctx, "budi", "open-sesame")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// 1h TTL + 24h grace, both long gone.
	now = now.Add(48 * time.Hour)
	if _, _, err := svc.Refresh(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized outside grace, got %v", err)
	}
}

func TestLogoutDenylistsToken(t *testing.T) {
	ctx := context.Background()
	store := employee.NewMemoryStore()
	seedEmployee(t, store)

	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	svc := NewService(store, issuer)

	token, _, err := svc.Login(ctx, "budi", "open-sesame")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); err != nil {
		t.Fatalf("Authenticate before logout: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
	if _, _, err := svc.Refresh(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized refresh after logout, got %v", err)
	}
}

func TestIsEmailShaped(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"budi@example.com", true},
		{"budi", false},
		{"budi@", false},
		{"", false},
		{"Budi Santoso <budi@example.com>", false},
	}
	for _, tc := range cases {
		if got := isEmailShaped(tc.in); got != tc.want {
			t.Fatalf("isEmailShaped(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
