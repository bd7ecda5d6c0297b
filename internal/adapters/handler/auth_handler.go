package handler

import (
	"net/http"

	"github.com/learnova/portal-service/internal/adapters/middleware"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// AuthHandler logs users in against the user façade. session is nil when the
// remote backend is not configured; logins then succeed without cookies.
type AuthHandler struct {
	users   ports.UserService
	session *middleware.Session
}

func NewAuthHandler(users ports.UserService, session *middleware.Session) *AuthHandler {
	return &AuthHandler{users: users, session: session}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string      `json:"message"`
	User    domain.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if u == nil {
		writeMessage(w, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
		return
	}

	if h.session != nil {
		if err := h.session.Issue(w, middleware.Identity{UserID: u.ID, Email: u.Email}); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", User: u.Public()})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.session != nil {
		h.session.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the user resolved by the session middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "no session")
		return
	}
	u, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFound(w, publicPtr(u), "user")
}
