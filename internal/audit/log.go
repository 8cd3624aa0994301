// Package audit emits structured audit entries for authentication lifecycle
// events (login, logout, refresh, registration).
package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"talenta.dev/internal/auth"
	"talenta.dev/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and principal context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	zfields := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		zfields = append(zfields, zap.String("request_id", rid))
	}
	if emp, ok := auth.PrincipalFromContext(ctx); ok {
		zfields = append(zfields, zap.String("employee_id", emp.ID))
	}
	if len(fields) > 0 {
		zfields = append(zfields, zap.Any("fields", fields))
	}
	obs.Logger().Info("audit", zfields...)
	return nil
}
