package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/learnova/portal-service/internal/adapters/middleware"
	"github.com/learnova/portal-service/internal/adapters/syncbus"
	"github.com/learnova/portal-service/internal/core/ports"
)

// Deps is everything the router serves.
type Deps struct {
	Companies    ports.CompanyService
	Users        ports.UserService
	Courses      ports.CourseService
	Enrollments  ports.EnrollmentService
	PortalAccess ports.PortalAccessService

	Bus     *syncbus.Bus
	Session *middleware.Session
	Health  *HealthHandler
	Metrics http.Handler
}

// NewRouter mounts the JSON API under /v1 plus the health, metrics and sync
// stream endpoints.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	if d.Health != nil {
		r.HandleFunc("/health", d.Health.Health)
		r.HandleFunc("/health/ready", d.Health.Ready)
		r.HandleFunc("/health/live", d.Health.Live)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()

	companies := NewCompanyHandler(d.Companies)
	users := NewUserHandler(d.Users)
	courses := NewCourseHandler(d.Courses)
	enrollments := NewEnrollmentHandler(d.Enrollments)
	access := NewPortalAccessHandler(d.PortalAccess)
	auth := NewAuthHandler(d.Users, d.Session)

	v1.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", auth.Logout).Methods(http.MethodPost)
	v1.HandleFunc("/auth/me", auth.Me).Methods(http.MethodGet)

	v1.HandleFunc("/companies", companies.List).Methods(http.MethodGet)
	v1.HandleFunc("/companies", companies.Create).Methods(http.MethodPost)
	v1.HandleFunc("/companies/by-slug/{slug}", companies.GetBySlug).Methods(http.MethodGet)
	v1.HandleFunc("/companies/{id}", companies.Get).Methods(http.MethodGet)
	v1.HandleFunc("/companies/{id}", companies.Update).Methods(http.MethodPatch)
	v1.HandleFunc("/companies/{id}", companies.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/companies/{id}/credentials", companies.Credentials).Methods(http.MethodGet)
	v1.HandleFunc("/companies/{id}/users", users.ListByCompany).Methods(http.MethodGet)
	v1.HandleFunc("/companies/{id}/enrollments", enrollments.ListByCompany).Methods(http.MethodGet)
	v1.HandleFunc("/companies/{id}/portal-access", access.ListByCompany).Methods(http.MethodGet)

	v1.HandleFunc("/users", users.List).Methods(http.MethodGet)
	v1.HandleFunc("/users", users.Create).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id}", users.Get).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}", users.Update).Methods(http.MethodPatch)
	v1.HandleFunc("/users/{id}", users.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/users/{id}/password", users.SetPassword).Methods(http.MethodPut)
	v1.HandleFunc("/users/{id}/enrollments", enrollments.ListByUser).Methods(http.MethodGet)

	v1.HandleFunc("/courses", courses.List).Methods(http.MethodGet)
	v1.HandleFunc("/courses", courses.Create).Methods(http.MethodPost)
	v1.HandleFunc("/courses/by-code/{code}", courses.GetByCode).Methods(http.MethodGet)
	v1.HandleFunc("/courses/{id}", courses.Get).Methods(http.MethodGet)
	v1.HandleFunc("/courses/{id}", courses.Update).Methods(http.MethodPatch)
	v1.HandleFunc("/courses/{id}", courses.Delete).Methods(http.MethodDelete)

	v1.HandleFunc("/enrollments", enrollments.List).Methods(http.MethodGet)
	v1.HandleFunc("/enrollments", enrollments.Create).Methods(http.MethodPost)
	v1.HandleFunc("/enrollments/{id}", enrollments.Get).Methods(http.MethodGet)
	v1.HandleFunc("/enrollments/{id}", enrollments.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/enrollments/{id}/progress", enrollments.UpdateProgress).Methods(http.MethodPut)

	v1.HandleFunc("/portal-access", access.List).Methods(http.MethodGet)
	v1.HandleFunc("/portal-access", access.Create).Methods(http.MethodPost)
	v1.HandleFunc("/portal-access/grant", access.Grant).Methods(http.MethodPost)
	v1.HandleFunc("/portal-access/validate", access.Validate).Methods(http.MethodPost)
	v1.HandleFunc("/portal-access/{id}", access.Get).Methods(http.MethodGet)
	v1.HandleFunc("/portal-access/{id}", access.Update).Methods(http.MethodPatch)
	v1.HandleFunc("/portal-access/{id}", access.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/portal-access/{id}/password-changed", access.MarkPasswordChanged).Methods(http.MethodPost)

	if d.Bus != nil {
		v1.HandleFunc("/sync/events", NewSyncHandler(d.Bus).Events).Methods(http.MethodGet)
	}
	return r
}

// Wrap applies the edge chain: CORS outermost, then security headers, then
// the session refresh when a session is configured.
func Wrap(h http.Handler, allowedOrigins []string, session *middleware.Session) http.Handler {
	if session != nil {
		h = session.Handler(h)
	}
	h = middleware.SecurityHeaders(h)
	return middleware.CORSMiddleware(allowedOrigins)(h)
}
