package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type EnrollmentHandler struct {
	enrollments ports.EnrollmentService
}

func NewEnrollmentHandler(enrollments ports.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

type ProgressRequest struct {
	Progress *int                     `json:"progress"`
	Status   *domain.EnrollmentStatus `json:"status,omitempty"`
}

func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.enrollments.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EnrollmentHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.enrollments.GetByUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EnrollmentHandler) ListByCompany(w http.ResponseWriter, r *http.Request) {
	list, err := h.enrollments.GetByCompany(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EnrollmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.enrollments.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, e, "enrollment")
}

func (h *EnrollmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.Enrollment
	if !decode(w, r, &req) {
		return
	}
	e, err := h.enrollments.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EnrollmentHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Progress == nil {
		writeMessage(w, http.StatusBadRequest, "progress is required")
		return
	}
	e, err := h.enrollments.UpdateProgress(r.Context(), mux.Vars(r)["id"], *req.Progress, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EnrollmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.enrollments.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
