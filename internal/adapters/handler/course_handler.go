package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type CourseHandler struct {
	courses ports.CourseService
}

func NewCourseHandler(courses ports.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List returns the whole catalog, or only published courses with
// ?status=published.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list []domain.Course
		err  error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "":
		list, err = h.courses.GetAll(r.Context())
	case string(domain.StatusPublished):
		list, err = h.courses.GetPublished(r.Context())
	default:
		writeMessage(w, http.StatusBadRequest, "unsupported status filter "+status)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.courses.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, c, "course")
}

func (h *CourseHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	c, err := h.courses.GetByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, c, "course")
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.Course
	if !decode(w, r, &req) {
		return
	}
	c, err := h.courses.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.CourseUpdate
	if !decode(w, r, &req) {
		return
	}
	c, err := h.courses.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
