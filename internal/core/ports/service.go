package ports

import (
	"context"

	"github.com/learnova/portal-service/internal/core/credentials"
	"github.com/learnova/portal-service/internal/core/domain"
)

// The façades below are what the HTTP edge consumes. Subscribe returns a nil
// subscription when the service runs on the local mirror.

type CompanyService interface {
	GetAll(ctx context.Context) ([]domain.Company, error)
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Company, error)
	Create(ctx context.Context, c domain.Company) (domain.Company, error)
	Update(ctx context.Context, id string, upd domain.CompanyUpdate) (domain.Company, error)
	Delete(ctx context.Context, id string) error
	Credentials(ctx context.Context, id string) (*credentials.Sheet, error)
	Subscribe(fn func(domain.Change[domain.Company])) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

type UserService interface {
	GetAll(ctx context.Context) ([]domain.User, error)
	GetByCompany(ctx context.Context, companyID string) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	Update(ctx context.Context, id string, upd domain.UserUpdate) (domain.User, error)
	Delete(ctx context.Context, id string) error
	// Authenticate returns nil when the email is unknown or the password is wrong.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	SetPassword(ctx context.Context, id, password string) (domain.User, error)
	Subscribe(companyID string, fn func(domain.Change[domain.User])) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

type CourseService interface {
	GetAll(ctx context.Context) ([]domain.Course, error)
	GetPublished(ctx context.Context) ([]domain.Course, error)
	GetByID(ctx context.Context, id string) (*domain.Course, error)
	GetByCode(ctx context.Context, code string) (*domain.Course, error)
	Create(ctx context.Context, c domain.Course) (domain.Course, error)
	Update(ctx context.Context, id string, upd domain.CourseUpdate) (domain.Course, error)
	Delete(ctx context.Context, id string) error
	Subscribe(fn func(domain.Change[domain.Course])) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

type EnrollmentService interface {
	GetAll(ctx context.Context) ([]domain.Enrollment, error)
	GetByID(ctx context.Context, id string) (*domain.Enrollment, error)
	GetByUser(ctx context.Context, userID string) ([]domain.Enrollment, error)
	GetByCompany(ctx context.Context, companyID string) ([]domain.Enrollment, error)
	Create(ctx context.Context, e domain.Enrollment) (domain.Enrollment, error)
	UpdateProgress(ctx context.Context, id string, progress int, status *domain.EnrollmentStatus) (domain.Enrollment, error)
	Delete(ctx context.Context, id string) error
	Subscribe(companyID string, fn func(domain.Change[domain.Enrollment])) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

type PortalAccessService interface {
	GetAll(ctx context.Context) ([]domain.PortalAccess, error)
	GetByID(ctx context.Context, id string) (*domain.PortalAccess, error)
	GetByCompany(ctx context.Context, companyID string) ([]domain.PortalAccess, error)
	Create(ctx context.Context, a domain.PortalAccess) (domain.PortalAccess, error)
	Update(ctx context.Context, id string, upd domain.PortalAccessUpdate) (domain.PortalAccess, error)
	Delete(ctx context.Context, id string) error
	MarkPasswordChanged(ctx context.Context, id string) (domain.PortalAccess, error)
	Grant(ctx context.Context, companyID, userID string, role credentials.Role) (domain.PortalAccess, error)
	ValidateAccess(ctx context.Context, accessURL, email, password string) (domain.AccessResult, error)
	Subscribe(companyID string, fn func(domain.Change[domain.PortalAccess])) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}
