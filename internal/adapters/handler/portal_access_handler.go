package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/learnova/portal-service/internal/core/credentials"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type PortalAccessHandler struct {
	access ports.PortalAccessService
}

func NewPortalAccessHandler(access ports.PortalAccessService) *PortalAccessHandler {
	return &PortalAccessHandler{access: access}
}

type GrantRequest struct {
	CompanyID string `json:"company_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
}

type ValidateRequest struct {
	URL      string `json:"url"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *PortalAccessHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.access.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PortalAccessHandler) ListByCompany(w http.ResponseWriter, r *http.Request) {
	list, err := h.access.GetByCompany(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PortalAccessHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.access.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, a, "portal access")
}

func (h *PortalAccessHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.PortalAccess
	if !decode(w, r, &req) {
		return
	}
	a, err := h.access.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *PortalAccessHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.PortalAccessUpdate
	if !decode(w, r, &req) {
		return
	}
	a, err := h.access.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *PortalAccessHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.access.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PortalAccessHandler) MarkPasswordChanged(w http.ResponseWriter, r *http.Request) {
	a, err := h.access.MarkPasswordChanged(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *PortalAccessHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if !decode(w, r, &req) {
		return
	}
	role, err := credentials.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.access.Grant(r.Context(), req.CompanyID, req.UserID, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Validate answers 200 with valid=false for a rejected credential; only backend
// failures produce an error status.
func (h *PortalAccessHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.access.ValidateAccess(r.Context(), req.URL, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
