package httpapi

import (
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"talenta.dev/internal/audit"
	"talenta.dev/internal/auth"
	"talenta.dev/internal/employee"
)

// employeePayload covers create and update. Password is a pointer so an
// update can distinguish "replace the credential" from "keep the current
// one".
type employeePayload struct {
	Name                 string   `json:"nama"`
	Email                string   `json:"email"`
	Username             string   `json:"username"`
	Password             *string  `json:"password"`
	PasswordConfirmation *string  `json:"password_confirmation"`
	UnitID               string   `json:"unit_id"`
	JoinedAt             string   `json:"tanggal_bergabung"`
	PositionIDs          []string `json:"jabatans"`
}

const dateLayout = "2006-01-02"

// validate checks every field rule before any store write happens, so an
// invalid payload (three positions, bad date) never reaches the database.
func (p *employeePayload) validate(tz *time.Location, requirePassword, requireEmail bool) (fieldErrors, time.Time) {
	errs := fieldErrors{}

	if strings.TrimSpace(p.Name) == "" {
		errs.add("nama", "nama is required")
	} else if len(p.Name) > 255 {
		errs.add("nama", "nama may not be greater than 255 characters")
	}
	if strings.TrimSpace(p.Username) == "" {
		errs.add("username", "username is required")
	} else if len(p.Username) > 255 {
		errs.add("username", "username may not be greater than 255 characters")
	}

	if requireEmail && strings.TrimSpace(p.Email) == "" {
		errs.add("email", "email is required")
	}
	if strings.TrimSpace(p.Email) != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			errs.add("email", "email must be a valid email address")
		}
	}

	if p.Password == nil {
		if requirePassword {
			errs.add("password", "password is required")
		}
	} else {
		if len(*p.Password) < 6 {
			errs.add("password", "password must be at least 6 characters")
		}
		if p.PasswordConfirmation != nil && *p.PasswordConfirmation != *p.Password {
			errs.add("password", "password confirmation does not match")
		}
	}

	if strings.TrimSpace(p.UnitID) == "" {
		errs.add("unit_id", "unit_id is required")
	}

	var joined time.Time
	if strings.TrimSpace(p.JoinedAt) == "" {
		errs.add("tanggal_bergabung", "tanggal_bergabung is required")
	} else {
		t, err := time.ParseInLocation(dateLayout, p.JoinedAt, tz)
		if err != nil {
			errs.add("tanggal_bergabung", "tanggal_bergabung must be a valid date")
		} else {
			joined = t
		}
	}

	if len(p.PositionIDs) < 1 {
		errs.add("jabatans", "at least one jabatan is required")
	} else if len(p.PositionIDs) > employee.MaxPositions {
		errs.add("jabatans", "an employee may hold at most two jabatans")
	}

	return errs, joined
}

func (a *API) handleEmployees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEmployees(w, r)
	case http.MethodPost:
		a.createEmployee(w, r, false)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEmployeeResource(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/karyawans/")
	if id == "" {
		writeFailure(w, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.showEmployee(w, r, id)
	case http.MethodPut:
		a.updateEmployee(w, r, id)
	case http.MethodDelete:
		a.deleteEmployee(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handleRegister is the public self-registration endpoint: the same create
// path as /karyawans plus a required email and password confirmation.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	a.createEmployee(w, r, true)
}

func (a *API) listEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := a.store.Employees(r.Context()).List(r.Context())
	if err != nil {
		internalError(w, r, "could not fetch employees", err)
		return
	}
	if emps == nil {
		emps = []*employee.Employee{}
	}
	writeData(w, http.StatusOK, emps)
}

func (a *API) showEmployee(w http.ResponseWriter, r *http.Request, id string) {
	emp, err := a.store.Employees(r.Context()).Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			writeFailure(w, http.StatusNotFound, "employee not found")
			return
		}
		internalError(w, r, "could not fetch employee", err)
		return
	}
	writeData(w, http.StatusOK, emp)
}

func (a *API) createEmployee(w http.ResponseWriter, r *http.Request, register bool) {
	var req employeePayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	errs, joined := req.validate(a.tz, true, register)
	if !errs.ok() {
		errs.write(w)
		return
	}

	hash, err := auth.HashPassword(*req.Password)
	if err != nil {
		internalError(w, r, "could not create employee", err)
		return
	}
	emp := &employee.Employee{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		UnitID:       req.UnitID,
		JoinedAt:     joined,
	}
	if err := a.store.Employees(r.Context()).Create(r.Context(), emp, req.PositionIDs); err != nil {
		a.employeeStoreError(w, r, err, "could not create employee")
		return
	}

	event := "employee.create"
	if register {
		event = "auth.register"
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{"employee_id": emp.ID})
	writeDataMessage(w, http.StatusCreated, "employee created", emp)
}

func (a *API) updateEmployee(w http.ResponseWriter, r *http.Request, id string) {
	var req employeePayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	errs, joined := req.validate(a.tz, false, false)
	if !errs.ok() {
		errs.write(w)
		return
	}

	upd := &employee.EmployeeUpdate{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Username:    strings.TrimSpace(req.Username),
		UnitID:      req.UnitID,
		JoinedAt:    joined,
		PositionIDs: req.PositionIDs,
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			internalError(w, r, "could not update employee", err)
			return
		}
		upd.PasswordHash = &hash
	}

	emp, err := a.store.Employees(r.Context()).Update(r.Context(), upd)
	if err != nil {
		a.employeeStoreError(w, r, err, "could not update employee")
		return
	}
	_ = audit.LogEvent(r.Context(), "employee.update", map[string]any{"employee_id": id})
	writeDataMessage(w, http.StatusOK, "employee updated", emp)
}

func (a *API) deleteEmployee(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Employees(r.Context()).Delete(r.Context(), id); err != nil {
		a.employeeStoreError(w, r, err, "could not delete employee")
		return
	}
	_ = audit.LogEvent(r.Context(), "employee.delete", map[string]any{"employee_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "employee deleted"})
}

func (a *API) employeeStoreError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, employee.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "employee not found")
	case errors.Is(err, employee.ErrAlreadyExists):
		writeFailure(w, http.StatusUnprocessableEntity, "username or email already in use")
	case errors.Is(err, employee.ErrInvalidInput):
		writeFailure(w, http.StatusUnprocessableEntity, "invalid unit or jabatan reference")
	default:
		internalError(w, r, fallback, err)
	}
}

// resourceID pulls the trailing identifier out of a resource path.
func resourceID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.Trim(id, "/")
	if strings.Contains(id, "/") {
		return ""
	}
	unescaped, err := url.PathUnescape(id)
	if err != nil {
		return id
	}
	return unescaped
}
