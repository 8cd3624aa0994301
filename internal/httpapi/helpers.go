package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"talenta.dev/internal/obs"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage renders the bare {message} shape used by the auth endpoints.
func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"message": msg})
}

// writeFailure renders the {success:false, message} envelope used by the
// resource endpoints.
func writeFailure(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "message": msg})
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{"success": true, "data": data})
}

func writeDataMessage(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, code, map[string]any{"success": true, "message": msg, "data": data})
}

// internalError logs the failure in full and hands the client a generic
// message.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	obs.Logger().Error(msg, zap.String("path", r.URL.Path), zap.Error(err))
	writeFailure(w, http.StatusInternalServerError, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
}

// fieldErrors accumulates per-field validation messages for 422 responses.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) ok() bool { return len(f) == 0 }

// write renders the validation failure with field-level messages.
func (f fieldErrors) write(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"success": false,
		"message": "Validation failed",
		"errors":  f,
	})
}
