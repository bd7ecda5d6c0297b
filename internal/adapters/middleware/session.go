package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/learnova/portal-service/internal/core/domain"
)

const (
	AccessCookie  = "portal-access-token"
	RefreshCookie = "portal-refresh-token"

	UserIDHeader    = "X-User-Id"
	UserEmailHeader = "X-User-Email"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type contextKey string

const userKey contextKey = "portalUser"

// Identity is the user resolved from the session cookies.
type Identity struct {
	UserID string
	Email  string
}

// IdentityFrom returns the identity attached by Session, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(userKey).(Identity)
	return id, ok
}

// UserLookup resolves a user id during refresh. A nil user means the account
// is gone and the session is not renewed.
type UserLookup func(ctx context.Context, id string) (*domain.User, error)

type sessionClaims struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`
	jwt.RegisteredClaims
}

// Session verifies and refreshes the HS256 cookie pair. Failures never block
// the request: they are logged and the request proceeds without identity.
type Session struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	lookup     UserLookup
	logger     *slog.Logger
	now        func() time.Time
	secure     bool
}

func NewSession(secret string, accessTTL, refreshTTL time.Duration, lookup UserLookup, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		lookup:     lookup,
		logger:     logger,
		now:        time.Now,
		secure:     true,
	}
}

// WithClock overrides the token clock. Used by tests.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// WithInsecureCookies drops the Secure flag for plain-HTTP development.
func (s *Session) WithInsecureCookies() *Session {
	s.secure = false
	return s
}

// Handler resolves identity from the cookie pair and attaches it as request
// headers and context. Inbound identity headers are always stripped first.
func (s *Session) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(UserIDHeader)
		r.Header.Del(UserEmailHeader)

		if IsStatic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		id, err := s.resolve(w, r)
		if err != nil {
			s.logger.Warn("session refresh failed", "path", r.URL.Path, "error", err)
		}
		if id != nil {
			r.Header.Set(UserIDHeader, id.UserID)
			r.Header.Set(UserEmailHeader, id.Email)
			r = r.WithContext(context.WithValue(r.Context(), userKey, *id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Session) resolve(w http.ResponseWriter, r *http.Request) (*Identity, error) {
	access, err := r.Cookie(AccessCookie)
	if err == nil {
		claims, perr := s.parse(access.Value, kindAccess)
		if perr == nil {
			return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
		}
		if !errors.Is(perr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("access token: %w", perr)
		}
	}

	refresh, err := r.Cookie(RefreshCookie)
	if err != nil {
		// No session at all is the anonymous case, not a failure.
		return nil, nil
	}
	claims, err := s.parse(refresh.Value, kindRefresh)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	email := claims.Email
	if s.lookup != nil {
		u, err := s.lookup(r.Context(), claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("refresh lookup %s: %w", claims.Subject, err)
		}
		if u == nil {
			return nil, fmt.Errorf("refresh lookup %s: %w", claims.Subject, domain.ErrNotFound)
		}
		email = u.Email
	}

	id := Identity{UserID: claims.Subject, Email: email}
	if err := s.Issue(w, id); err != nil {
		return nil, err
	}
	s.logger.Info("session refreshed", "user_id", id.UserID)
	return &id, nil
}

func (s *Session) parse(raw, kind string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind || claims.Subject == "" {
		return nil, fmt.Errorf("%w: expected %s token", jwt.ErrTokenInvalidClaims, kind)
	}
	return claims, nil
}

func (s *Session) sign(id Identity, kind string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Email: id.Email,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Issue sets a fresh cookie pair for id.
func (s *Session) Issue(w http.ResponseWriter, id Identity) error {
	access, err := s.sign(id, kindAccess, s.accessTTL)
	if err != nil {
		return fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(id, kindRefresh, s.refreshTTL)
	if err != nil {
		return fmt.Errorf("sign refresh token: %w", err)
	}
	http.SetCookie(w, s.cookie(AccessCookie, access, s.refreshTTL))
	http.SetCookie(w, s.cookie(RefreshCookie, refresh, s.refreshTTL))
	return nil
}

// Clear expires both cookies.
func (s *Session) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := s.cookie(name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// The access cookie outlives its token so an expired token still reaches the
// server alongside the refresh token.
func (s *Session) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
