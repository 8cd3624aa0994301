package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"talenta.dev/internal/employee"
)

type namePayload struct {
	Name string `json:"nama"`
}

func (p *namePayload) validate() fieldErrors {
	errs := fieldErrors{}
	if strings.TrimSpace(p.Name) == "" {
		errs.add("nama", "nama is required")
	} else if len(p.Name) > 255 {
		errs.add("nama", "nama may not be greater than 255 characters")
	}
	return errs
}

func (a *API) handleUnits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		units, err := a.store.Units(r.Context()).List(r.Context())
		if err != nil {
			internalError(w, r, "could not fetch units", err)
			return
		}
		if units == nil {
			units = []*employee.Unit{}
		}
		writeData(w, http.StatusOK, units)
	case http.MethodPost:
		var req namePayload
		if err := decodeJSON(w, r, &req); err != nil {
			writeFailure(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if errs := req.validate(); !errs.ok() {
			errs.write(w)
			return
		}
		u := &employee.Unit{Name: strings.TrimSpace(req.Name)}
		if err := a.store.Units(r.Context()).Create(r.Context(), u); err != nil {
			a.unitStoreError(w, r, err, "could not create unit")
			return
		}
		writeDataMessage(w, http.StatusCreated, "unit created", u)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUnitResource(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/units/")
	if id == "" {
		writeFailure(w, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		u, err := a.store.Units(r.Context()).Find(r.Context(), id)
		if err != nil {
			a.unitStoreError(w, r, err, "could not fetch unit")
			return
		}
		writeData(w, http.StatusOK, u)
	case http.MethodPut:
		var req namePayload
		if err := decodeJSON(w, r, &req); err != nil {
			writeFailure(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if errs := req.validate(); !errs.ok() {
			errs.write(w)
			return
		}
		u := &employee.Unit{ID: id, Name: strings.TrimSpace(req.Name)}
		if err := a.store.Units(r.Context()).Update(r.Context(), u); err != nil {
			a.unitStoreError(w, r, err, "could not update unit")
			return
		}
		writeDataMessage(w, http.StatusOK, "unit updated", u)
	case http.MethodDelete:
		if err := a.store.Units(r.Context()).Delete(r.Context(), id); err != nil {
			a.unitStoreError(w, r, err, "could not delete unit")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "unit deleted"})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) unitStoreError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, employee.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "unit not found")
	case errors.Is(err, employee.ErrAlreadyExists):
		writeFailure(w, http.StatusUnprocessableEntity, "unit name already in use")
	case errors.Is(err, employee.ErrInUse):
		writeFailure(w, http.StatusUnprocessableEntity, "unit is still referenced by employees")
	default:
		internalError(w, r, fallback, err)
	}
}
