package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"talenta.dev/internal/employee"
)

type topUser struct {
	ID         string         `json:"id"`
	Name       string         `json:"nama"`
	Unit       *employee.Unit `json:"unit"`
	Positions  string         `json:"jabatan"`
	LoginCount int64          `json:"login_count"`
}

type dashboardResponse struct {
	Success        bool      `json:"success"`
	TotalEmployees int64     `json:"total_karyawan"`
	TotalLogins    int64     `json:"total_login"`
	TotalUnits     int64     `json:"total_unit"`
	TotalPositions int64     `json:"total_jabatan"`
	TopUsers       []topUser `json:"top_users"`
}

// handleDashboard serves entity totals plus the most frequent authenticators
// inside an optional date window. The totals are never filtered by the
// window; only the top-users aggregation is.
func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ctx := r.Context()

	from, err := a.parseDateBound(r.URL.Query().Get("from_date"), false)
	if err != nil {
		writeFailure(w, http.StatusUnprocessableEntity, "from_date must be formatted YYYY-MM-DD")
		return
	}
	to, err := a.parseDateBound(r.URL.Query().Get("to_date"), true)
	if err != nil {
		writeFailure(w, http.StatusUnprocessableEntity, "to_date must be formatted YYYY-MM-DD")
		return
	}

	counts, err := a.store.Counts(ctx)
	if err != nil {
		internalError(w, r, "could not load dashboard", err)
		return
	}
	resp := dashboardResponse{
		Success:        true,
		TotalEmployees: counts.Employees,
		TotalLogins:    counts.Logins,
		TotalUnits:     counts.Units,
		TotalPositions: counts.Positions,
		TopUsers:       []topUser{},
	}

	counters, err := a.store.Logins(ctx).TopCounters(ctx, from, to)
	if err != nil {
		internalError(w, r, "could not load dashboard", err)
		return
	}
	for _, c := range counters {
		emp, err := a.store.Employees(ctx).Find(ctx, c.EmployeeID)
		if err != nil {
			// A counted employee may have been deleted since; skip it.
			if errors.Is(err, employee.ErrNotFound) {
				continue
			}
			internalError(w, r, "could not load dashboard", err)
			return
		}
		resp.TopUsers = append(resp.TopUsers, topUser{
			ID:         emp.ID,
			Name:       emp.Name,
			Unit:       emp.Unit,
			Positions:  joinPositionNames(emp.Positions),
			LoginCount: c.Count,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseDateBound interprets a calendar date in the deployment time zone:
// the lower bound as 00:00:00, the upper bound as 23:59:59.
func (a *API) parseDateBound(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dateLayout, value, a.tz)
	if err != nil {
		return nil, err
	}
	bound := day
	if endOfDay {
		bound = day.Add(24*time.Hour - time.Second)
	}
	return &bound, nil
}

func joinPositionNames(positions []employee.Position) string {
	if len(positions) == 0 {
		return "-"
	}
	names := make([]string, 0, len(positions))
	for _, p := range positions {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
