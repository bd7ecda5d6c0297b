package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnova/portal-service/internal/adapters/middleware"
	"github.com/learnova/portal-service/internal/core/domain"
)

const secret = "test-secret"

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Seen-User-Id", r.Header.Get(middleware.UserIDHeader))
		w.Header().Set("Seen-User-Email", r.Header.Get(middleware.UserEmailHeader))
		if id, ok := middleware.IdentityFrom(r.Context()); ok {
			w.Header().Set("Seen-Context", id.UserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

// issued returns the cookie pair Session.Issue sets at the given time.
func issued(t *testing.T, s *middleware.Session, id middleware.Identity) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, s.Issue(rec, id))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	return cookies
}

func request(cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/companies", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestSecurityHeaders(t *testing.T) {
	h := middleware.SecurityHeaders(echoIdentity())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/courses", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "camera=(), microphone=(), geolocation=()", rec.Header().Get("Permissions-Policy"))

	for _, path := range []string{"/static/app.js", "/favicon.ico", "/manifest.json"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Empty(t, rec.Header().Get("X-Frame-Options"), path)
	}
}

func TestSession_ValidAccessToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := middleware.NewSession(secret, time.Hour, 24*time.Hour, nil, nil).WithClock(fixedClock(now))
	cookies := issued(t, s, middleware.Identity{UserID: "u-1", Email: "jo@acme.com"})

	rec := httptest.NewRecorder()
	s.Handler(echoIdentity()).ServeHTTP(rec, request(cookies...))

	assert.Equal(t, "u-1", rec.Header().Get("Seen-User-Id"))
	assert.Equal(t, "jo@acme.com", rec.Header().Get("Seen-User-Email"))
	assert.Equal(t, "u-1", rec.Header().Get("Seen-Context"))
	assert.Empty(t, rec.Result().Cookies(), "valid access token must not reissue")
}

func TestSession_ExpiredAccessRefreshes(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lookup := func(_ context.Context, id string) (*domain.User, error) {
		return &domain.User{ID: id, Email: "renamed@acme.com"}, nil
	}
	s := middleware.NewSession(secret, time.Hour, 24*time.Hour, lookup, nil).WithClock(fixedClock(issuedAt))
	cookies := issued(t, s, middleware.Identity{UserID: "u-1", Email: "jo@acme.com"})

	s.WithClock(fixedClock(issuedAt.Add(2 * time.Hour)))
	rec := httptest.NewRecorder()
	s.Handler(echoIdentity()).ServeHTTP(rec, request(cookies...))

	assert.Equal(t, "u-1", rec.Header().Get("Seen-User-Id"))
	assert.Equal(t, "renamed@acme.com", rec.Header().Get("Seen-User-Email"))

	fresh := rec.Result().Cookies()
	require.Len(t, fresh, 2)
	names := []string{fresh[0].Name, fresh[1].Name}
	assert.ElementsMatch(t, []string{middleware.AccessCookie, middleware.RefreshCookie}, names)
	for _, c := range fresh {
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
	}
}

func TestSession_FailuresProceedWithoutIdentity(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := middleware.NewSession(secret, time.Hour, 24*time.Hour, nil, nil).WithClock(fixedClock(issuedAt))
	good := issued(t, base, middleware.Identity{UserID: "u-1", Email: "jo@acme.com"})
	other := middleware.NewSession("other-secret", time.Hour, 24*time.Hour, nil, nil).WithClock(fixedClock(issuedAt))
	forged := issued(t, other, middleware.Identity{UserID: "u-9", Email: "evil@x.com"})

	cookieNamed := func(cs []*http.Cookie, name string) *http.Cookie {
		for _, c := range cs {
			if c.Name == name {
				return c
			}
		}
		t.Fatalf("cookie %s not issued", name)
		return nil
	}

	tests := []struct {
		name    string
		at      time.Time
		lookup  middleware.UserLookup
		cookies []*http.Cookie
	}{
		{"no cookies", issuedAt, nil, nil},
		{"forged access token", issuedAt, nil, []*http.Cookie{cookieNamed(forged, middleware.AccessCookie)}},
		{"refresh token used as access", issuedAt, nil, []*http.Cookie{{Name: middleware.AccessCookie, Value: cookieNamed(good, middleware.RefreshCookie).Value}}},
		{"both tokens expired", issuedAt.Add(48 * time.Hour), nil, good},
		{"user deleted", issuedAt.Add(2 * time.Hour), func(context.Context, string) (*domain.User, error) { return nil, nil }, good},
		{"lookup fails", issuedAt.Add(2 * time.Hour), func(context.Context, string) (*domain.User, error) { return nil, errors.New("db down") }, good},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := middleware.NewSession(secret, time.Hour, 24*time.Hour, tt.lookup, nil).WithClock(fixedClock(tt.at))
			req := request(tt.cookies...)
			req.Header.Set(middleware.UserIDHeader, "spoofed")

			rec := httptest.NewRecorder()
			s.Handler(echoIdentity()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("Seen-User-Id"))
			assert.Empty(t, rec.Header().Get("Seen-Context"))
		})
	}
}

func TestSession_Clear(t *testing.T) {
	s := middleware.NewSession(secret, time.Hour, 24*time.Hour, nil, nil).WithInsecureCookies()
	rec := httptest.NewRecorder()
	s.Clear(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge)
		assert.False(t, c.Secure)
	}
}

func TestCORSMiddleware(t *testing.T) {
	h := middleware.CORSMiddleware([]string{"http://localhost:3001"})(echoIdentity())

	req := httptest.NewRequest(http.MethodOptions, "/v1/companies", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/v1/companies", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
