package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"talenta.dev/internal/employee"
)

const defaultRefreshGrace = 14 * 24 * time.Hour

// Service verifies credentials, guards sessions and records login history.
// Token validation is stateless; the only shared mutable state is the logout
// denylist, which is mutex-guarded and swept lazily.
type Service struct {
	store        employee.Store
	issuer       *TokenIssuer
	now          func() time.Time
	refreshGrace time.Duration
	log          *zap.Logger

	denyMu   sync.Mutex
	denylist map[string]time.Time // jti -> moment the entry can be dropped
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithRefreshGrace sets how long past natural expiry a token may still be
// refreshed.
func WithRefreshGrace(grace time.Duration) ServiceOption {
	return func(s *Service) {
		if grace >= 0 {
			s.refreshGrace = grace
		}
	}
}

// WithClock overrides the time source (useful for tests). The issuer shares
// the same clock.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
			s.issuer.SetClock(fn)
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(store employee.Store, issuer *TokenIssuer, opts ...ServiceOption) *Service {
	svc := &Service{
		store:        store,
		issuer:       issuer,
		now:          time.Now,
		refreshGrace: defaultRefreshGrace,
		log:          zap.NewNop(),
		denylist:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// TokenTTL returns the lifetime of issued tokens.
func (s *Service) TokenTTL() time.Duration { return s.issuer.TTL() }

// Login verifies the identifier/password pair, appends one login event and
// issues a session token. The failure is uniform: callers cannot distinguish
// an unknown identifier from a wrong password.
func (s *Service) Login(ctx context.Context, identifier, password string) (string, *employee.Employee, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return "", nil, ErrUnauthorized
	}

	var (
		emp *employee.Employee
		err error
	)
	if isEmailShaped(identifier) {
		emp, err = s.store.Employees(ctx).FindByEmail(ctx, identifier)
	} else {
		emp, err = s.store.Employees(ctx).FindByUsername(ctx, identifier)
	}
	if err != nil {
		if !errors.Is(err, employee.ErrNotFound) {
			return "", nil, err
		}
		s.log.Warn("login attempt failed", zap.String("identifier", identifier))
		return "", nil, ErrUnauthorized
	}
	if err := VerifyPassword(emp.PasswordHash, password); err != nil {
		s.log.Warn("login attempt failed", zap.String("identifier", identifier))
		return "", nil, ErrUnauthorized
	}

	token, _, err := s.issuer.Issue(emp.ID)
	if err != nil {
		return "", nil, err
	}

	// The login event is written synchronously, but a failed history write
	// must not block an otherwise successful authentication.
	if err := s.store.Logins(ctx).Record(ctx, emp.ID, s.now()); err != nil {
		s.log.Error("record login event", zap.String("employee_id", emp.ID), zap.Error(err))
	}
	return token, emp, nil
}

// Authenticate validates a bearer token and resolves it to an employee.
// Signature or expiry failures yield ErrInvalidToken; a valid token whose
// subject no longer exists yields employee.ErrNotFound.
func (s *Service) Authenticate(ctx context.Context, token string) (*employee.Employee, error) {
	claims, err := s.issuer.ParseAndValidate(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if s.isDenied(claims.ID) {
		return nil, ErrInvalidToken
	}
	emp, err := s.store.Employees(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			return nil, employee.ErrNotFound
		}
		return nil, err
	}
	return emp, nil
}

// Refresh supersedes a token that is still valid, or expired within the
// refresh grace window, with a freshly issued one. The superseded token is
// denylisted. Tokens outside the window fail with ErrUnauthorized; the
// caller must clear the cookie and force a re-login.
func (s *Service) Refresh(ctx context.Context, token string) (string, *employee.Employee, error) {
	claims, expired, err := s.issuer.ParseAllowExpired(token)
	if err != nil {
		return "", nil, ErrUnauthorized
	}
	if s.isDenied(claims.ID) {
		return "", nil, ErrUnauthorized
	}
	if expired {
		deadline := claims.ExpiresAt.Time.Add(s.refreshGrace)
		if !s.now().UTC().Before(deadline) {
			return "", nil, ErrUnauthorized
		}
	}
	emp, err := s.store.Employees(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			return "", nil, ErrUnauthorized
		}
		return "", nil, err
	}

	newToken, _, err := s.issuer.Issue(emp.ID)
	if err != nil {
		return "", nil, err
	}
	s.deny(claims.ID, claims.ExpiresAt.Time.Add(s.refreshGrace))
	return newToken, emp, nil
}

// Logout invalidates the token server-side. Cookie clearing is the
// transport's job and happens regardless of the outcome here.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, _, err := s.issuer.ParseAllowExpired(token)
	if err != nil {
		return ErrInvalidToken
	}
	s.deny(claims.ID, claims.ExpiresAt.Time.Add(s.refreshGrace))
	return nil
}

func (s *Service) deny(jti string, until time.Time) {
	if jti == "" {
		return
	}
	now := s.now().UTC()
	s.denyMu.Lock()
	defer s.denyMu.Unlock()
	for id, exp := range s.denylist {
		if now.After(exp) {
			delete(s.denylist, id)
		}
	}
	s.denylist[jti] = until
}

func (s *Service) isDenied(jti string) bool {
	if jti == "" {
		return false
	}
	s.denyMu.Lock()
	defer s.denyMu.Unlock()
	until, ok := s.denylist[jti]
	if !ok {
		return false
	}
	if s.now().UTC().After(until) {
		delete(s.denylist, jti)
		return false
	}
	return true
}

// isEmailShaped classifies the login identifier the way the HTML form does:
// anything that parses as an address authenticates by email, everything else
// by username.
func isEmailShaped(identifier string) bool {
	addr, err := mail.ParseAddress(identifier)
	return err == nil && addr.Address == identifier
}
