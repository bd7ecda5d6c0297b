package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/learnova/portal-service/internal/core/credentials"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type PortalAccessService struct {
	base[domain.PortalAccess]
	users     ports.Table[domain.User]
	companies ports.Table[domain.Company]
	deriver   *credentials.Deriver
}

var _ ports.PortalAccessService = (*PortalAccessService)(nil)

// NewPortalAccessService needs the user and company tables of the same backend
// to resolve grants.
func NewPortalAccessService(
	table ports.Table[domain.PortalAccess],
	users ports.Table[domain.User],
	companies ports.Table[domain.Company],
	feed ports.ChangeFeed,
	deriver *credentials.Deriver,
	opts ...Option,
) *PortalAccessService {
	return &PortalAccessService{
		base:      newBase(table, feed, opts),
		users:     users,
		companies: companies,
		deriver:   deriver,
	}
}

func (s *PortalAccessService) GetAll(ctx context.Context) ([]domain.PortalAccess, error) {
	return s.list(ctx, ports.Query{}.Order("created_at", true))
}

func (s *PortalAccessService) GetByID(ctx context.Context, id string) (*domain.PortalAccess, error) {
	return s.find(ctx, "id", id)
}

func (s *PortalAccessService) GetByCompany(ctx context.Context, companyID string) ([]domain.PortalAccess, error) {
	return s.list(ctx, ports.Where(ports.Eq("company_id", companyID)).Order("created_at", true))
}

func (s *PortalAccessService) Create(ctx context.Context, a domain.PortalAccess) (domain.PortalAccess, error) {
	if a.ID == "" {
		a.ID = s.newID()
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	if err := s.check(a); err != nil {
		return domain.PortalAccess{}, err
	}
	return s.insert(ctx, a)
}

func (s *PortalAccessService) Update(ctx context.Context, id string, upd domain.PortalAccessUpdate) (domain.PortalAccess, error) {
	if err := s.check(upd); err != nil {
		return domain.PortalAccess{}, err
	}
	now := s.now()
	upd.UpdatedAt = &now
	return s.update(ctx, id, upd)
}

func (s *PortalAccessService) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

func (s *PortalAccessService) MarkPasswordChanged(ctx context.Context, id string) (domain.PortalAccess, error) {
	changed := true
	return s.Update(ctx, id, domain.PortalAccessUpdate{PasswordChanged: &changed})
}

// Grant derives the role's credentials for the company and stores them as a
// new access record. The stored URL is the display form.
func (s *PortalAccessService) Grant(ctx context.Context, companyID, userID string, role credentials.Role) (domain.PortalAccess, error) {
	company, err := s.companies.SelectOne(ctx, ports.Eq("id", companyID))
	if err != nil {
		return domain.PortalAccess{}, err
	}
	if company == nil {
		return domain.PortalAccess{}, fmt.Errorf("%s %s: %w", domain.TableCompanies, companyID, domain.ErrNotFound)
	}
	creds, err := s.deriver.Derive(role, *company)
	if err != nil {
		return domain.PortalAccess{}, err
	}
	return s.Create(ctx, domain.PortalAccess{
		CompanyID:    companyID,
		UserID:       userID,
		PortalType:   role.PortalType(),
		AccessURL:    creds.DisplayURL,
		TempPassword: &creds.Password,
	})
}

// ValidateAccess checks a presented credential against the grants stored for
// accessURL. Grants share a URL across users of a company, so the grant is the
// newest one whose user has the presented email (case-insensitive). It fails
// closed: no matching grant, a changed or missing temporary password, or a
// mismatch all yield an invalid result.
func (s *PortalAccessService) ValidateAccess(ctx context.Context, accessURL, email, password string) (domain.AccessResult, error) {
	grant, user, err := s.grantFor(ctx, accessURL, strings.TrimSpace(email))
	if err != nil {
		return domain.AccessResult{}, err
	}
	deny := func(reason string) (domain.AccessResult, error) {
		s.logger.Info("portal access denied", "access_url", accessURL, "email", email, "reason", reason)
		return domain.AccessResult{}, nil
	}
	switch {
	case grant == nil:
		return deny("no grant")
	case grant.PasswordChanged:
		return deny("temporary password changed")
	case grant.TempPassword == nil:
		return deny("no temporary password")
	case subtle.ConstantTimeCompare([]byte(*grant.TempPassword), []byte(password)) != 1:
		return deny("password mismatch")
	}

	company, err := s.companies.SelectOne(ctx, ports.Eq("id", grant.CompanyID))
	if err != nil {
		return domain.AccessResult{}, err
	}
	pub := user.Public()

	now := s.now()
	if _, err := s.update(ctx, grant.ID, domain.PortalAccessUpdate{LastAccessedAt: &now, UpdatedAt: &now}); err != nil {
		s.logger.Warn("could not stamp portal access", "access_id", grant.ID, "error", err)
	}
	return domain.AccessResult{Valid: true, User: &pub, Company: company}, nil
}

func (s *PortalAccessService) grantFor(ctx context.Context, accessURL, email string) (*domain.PortalAccess, *domain.User, error) {
	if email == "" {
		return nil, nil, nil
	}
	grants, err := s.list(ctx, ports.Where(ports.Eq("access_url", accessURL)).Order("created_at", true))
	if err != nil {
		return nil, nil, err
	}
	for i := range grants {
		user, err := s.users.SelectOne(ctx, ports.Eq("id", grants[i].UserID))
		if err != nil {
			return nil, nil, err
		}
		if user != nil && strings.EqualFold(user.Email, email) {
			return &grants[i], user, nil
		}
	}
	return nil, nil, nil
}

func (s *PortalAccessService) Subscribe(companyID string, fn func(domain.Change[domain.PortalAccess])) (*ports.Subscription, error) {
	return s.subscribe(scoped("company_id", companyID), fn)
}

func (s *PortalAccessService) Unsubscribe(sub *ports.Subscription) {
	s.unsubscribe(sub)
}
