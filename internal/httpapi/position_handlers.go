package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"talenta.dev/internal/employee"
)

func (a *API) handlePositions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		positions, err := a.store.Positions(r.Context()).List(r.Context())
		if err != nil {
			internalError(w, r, "could not fetch jabatans", err)
			return
		}
		if positions == nil {
			positions = []*employee.Position{}
		}
		writeData(w, http.StatusOK, positions)
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
		p := &employee.Position{Name: strings.TrimSpace(req.Name)}
		if err := a.store.Positions(r.Context()).Create(r.Context(), p); err != nil {
			a.positionStoreError(w, r, err, "could not create jabatan")
			return
		}
		writeDataMessage(w, http.StatusCreated, "jabatan created", p)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePositionResource(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/jabatans/")
	if id == "" {
		writeFailure(w, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := a.store.Positions(r.Context()).Find(r.Context(), id)
		if err != nil {
			a.positionStoreError(w, r, err, "could not fetch jabatan")
			return
		}
		writeData(w, http.StatusOK, p)
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
		p := &employee.Position{ID: id, Name: strings.TrimSpace(req.Name)}
		if err := a.store.Positions(r.Context()).Update(r.Context(), p); err != nil {
			a.positionStoreError(w, r, err, "could not update jabatan")
			return
		}
		writeDataMessage(w, http.StatusOK, "jabatan updated", p)
	case http.MethodDelete:
		if err := a.store.Positions(r.Context()).Delete(r.Context(), id); err != nil {
			a.positionStoreError(w, r, err, "could not delete jabatan")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "jabatan deleted"})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) positionStoreError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, employee.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "jabatan not found")
	case errors.Is(err, employee.ErrAlreadyExists):
		writeFailure(w, http.StatusUnprocessableEntity, "jabatan name already in use")
	case errors.Is(err, employee.ErrInUse):
		writeFailure(w, http.StatusUnprocessableEntity, "jabatan is still referenced by employees")
	default:
		internalError(w, r, fallback, err)
	}
}
