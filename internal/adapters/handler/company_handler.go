package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type CompanyHandler struct {
	companies ports.CompanyService
}

func NewCompanyHandler(companies ports.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.companies.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.companies.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, c, "company")
}

func (h *CompanyHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	c, err := h.companies.GetBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, c, "company")
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.Company
	if !decode(w, r, &req) {
		return
	}
	c, err := h.companies.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.CompanyUpdate
	if !decode(w, r, &req) {
		return
	}
	c, err := h.companies.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.companies.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Credentials returns the derived credential sheet for all three portals.
func (h *CompanyHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.companies.Credentials(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, sheet, "company")
}
