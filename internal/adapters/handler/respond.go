package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/learnova/portal-service/internal/core/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeError maps service errors onto HTTP statuses. Backend failures are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRecord), errors.Is(err, domain.ErrUnknownRole):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	case domain.IsStoreError(err):
		slog.Error("store failure", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusBadGateway, "backend unavailable")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeFound writes rec, or 404 when the lookup found nothing.
func writeFound[T any](w http.ResponseWriter, rec *T, what string) {
	if rec == nil {
		writeMessage(w, http.StatusNotFound, what+" not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
