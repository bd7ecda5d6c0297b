package services

import (
	"github.com/learnova/portal-service/internal/core/credentials"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// Tables is one backend's set of entity tables. All five must come from the
// same backend.
type Tables struct {
	Companies    ports.Table[domain.Company]
	Users        ports.Table[domain.User]
	Courses      ports.Table[domain.Course]
	Enrollments  ports.Table[domain.Enrollment]
	PortalAccess ports.Table[domain.PortalAccess]
}

type Services struct {
	Companies    *CompanyService
	Users        *UserService
	Courses      *CourseService
	Enrollments  *EnrollmentService
	PortalAccess *PortalAccessService
}

// New builds every façade over t. feed is nil when t is the local mirror.
func New(t Tables, feed ports.ChangeFeed, deriver *credentials.Deriver, allowPlaceholderLogin bool, opts ...Option) *Services {
	return &Services{
		Companies:    NewCompanyService(t.Companies, feed, deriver, opts...),
		Users:        NewUserService(t.Users, feed, allowPlaceholderLogin, opts...),
		Courses:      NewCourseService(t.Courses, feed, opts...),
		Enrollments:  NewEnrollmentService(t.Enrollments, feed, opts...),
		PortalAccess: NewPortalAccessService(t.PortalAccess, t.Users, t.Companies, feed, deriver, opts...),
	}
}
