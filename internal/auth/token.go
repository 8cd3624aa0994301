package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerClaim = "talenta"

// Claims are the registered claims carried by a session token. The subject
// is the employee identifier. Custom claims are an extension point and stay
// empty by default.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies signed session tokens (HS256).
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer from the shared signing secret and the
// configured token time-to-live.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be greater than zero")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// SetClock overrides the time source. Only intended for tests.
func (i *TokenIssuer) SetClock(fn func() time.Time) {
	if fn != nil {
		i.now = fn
	}
}

// Issue signs a token whose subject is the employee identifier. A signing
// failure is returned as an error; an unsigned token is never produced.
func (i *TokenIssuer) Issue(employeeID string) (string, *Claims, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return "", nil, errors.New("auth: employee id is required")
	}
	now := i.now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerClaim,
			Subject:   employeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ParseAndValidate verifies the token signature and every required claim,
// including expiry.
func (i *TokenIssuer) ParseAndValidate(token string) (*Claims, error) {
	claims, err := i.parse(token)
	if err != nil {
		return nil, err
	}
	if !i.now().UTC().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAllowExpired verifies everything except expiry and reports whether
// the token has already expired. Used by the refresh flow, which accepts
// tokens inside a grace window past their natural expiry.
func (i *TokenIssuer) ParseAllowExpired(token string) (claims *Claims, expired bool, err error) {
	claims, err = i.parse(token)
	if err != nil {
		return nil, false, err
	}
	expired = !i.now().UTC().Before(claims.ExpiresAt.Time)
	return claims, expired, nil
}

func (i *TokenIssuer) parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := i.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *TokenIssuer) validateClaims(claims *Claims) error {
	if claims.Issuer != issuerClaim {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := i.now().UTC()
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}
