package auth

import (
	"context"

	"talenta.dev/internal/employee"
)

type principalContextKey struct{}
type tokenContextKey struct{}

// ContextWithPrincipal attaches the authenticated employee to the context.
func ContextWithPrincipal(ctx context.Context, e *employee.Employee) context.Context {
	if e == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{}, e)
}

// PrincipalFromContext extracts the authenticated employee from the context.
func PrincipalFromContext(ctx context.Context) (*employee.Employee, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*employee.Employee)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
