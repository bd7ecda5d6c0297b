package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// UserHandler never exposes password hashes.
type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type PasswordRequest struct {
	Password string `json:"password"`
}

func public(list []domain.User) []domain.User {
	out := make([]domain.User, len(list))
	for i, u := range list {
		out[i] = u.Public()
	}
	return out
}

func publicPtr(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	p := u.Public()
	return &p
}

// List returns all users, or the single user matching ?email=.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("email"); email != "" {
		u, err := h.users.GetByEmail(r.Context(), email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeFound(w, publicPtr(u), "user")
		return
	}
	list, err := h.users.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, public(list))
}

func (h *UserHandler) ListByCompany(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.GetByCompany(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, public(list))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, publicPtr(u), "user")
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.User
	if !decode(w, r, &req) {
		return
	}
	// Hashes are only ever written through SetPassword.
	req.PasswordHash = nil
	u, err := h.users.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u.Public())
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UserUpdate
	if !decode(w, r, &req) {
		return
	}
	req.PasswordHash = nil
	u, err := h.users.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Public())
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.users.SetPassword(r.Context(), mux.Vars(r)["id"], req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Public())
}
