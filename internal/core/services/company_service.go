package services

import (
	"context"

	"github.com/learnova/portal-service/internal/core/credentials"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type CompanyService struct {
	base[domain.Company]
	deriver *credentials.Deriver
}

var _ ports.CompanyService = (*CompanyService)(nil)

func NewCompanyService(table ports.Table[domain.Company], feed ports.ChangeFeed, deriver *credentials.Deriver, opts ...Option) *CompanyService {
	return &CompanyService{base: newBase(table, feed, opts), deriver: deriver}
}

func companyID(c domain.Company) string { return c.ID }

// GetAll returns every company ordered by name.
func (s *CompanyService) GetAll(ctx context.Context) ([]domain.Company, error) {
	return s.list(ctx, ports.Query{}.Order("name", false))
}

func (s *CompanyService) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	return s.find(ctx, "id", id)
}

func (s *CompanyService) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	return s.find(ctx, "slug", slug)
}

func (s *CompanyService) Create(ctx context.Context, c domain.Company) (domain.Company, error) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.SubscriptionTier == "" {
		c.SubscriptionTier = domain.TierStarter
	}
	if c.SubscriptionStatus == "" {
		c.SubscriptionStatus = domain.SubscriptionActive
	}
	if err := s.check(c); err != nil {
		return domain.Company{}, err
	}
	if err := s.ensureUnique(ctx, c.ID, companyID, ports.Eq("slug", c.Slug)); err != nil {
		return domain.Company{}, err
	}
	return s.insert(ctx, c)
}

func (s *CompanyService) Update(ctx context.Context, id string, upd domain.CompanyUpdate) (domain.Company, error) {
	if err := s.check(upd); err != nil {
		return domain.Company{}, err
	}
	if upd.Slug != nil {
		if err := s.ensureUnique(ctx, id, companyID, ports.Eq("slug", *upd.Slug)); err != nil {
			return domain.Company{}, err
		}
	}
	now := s.now()
	upd.UpdatedAt = &now
	return s.update(ctx, id, upd)
}

// Delete removes the company only. Users, enrollments and grants that
// reference it are left in place.
func (s *CompanyService) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// Credentials derives the portal credential sheet of a company, or nil when
// the company does not exist.
func (s *CompanyService) Credentials(ctx context.Context, id string) (*credentials.Sheet, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}
	sheet := s.deriver.DeriveAll(*c)
	return &sheet, nil
}

// Subscribe follows every company change.
func (s *CompanyService) Subscribe(fn func(domain.Change[domain.Company])) (*ports.Subscription, error) {
	return s.subscribe(nil, fn)
}

func (s *CompanyService) Unsubscribe(sub *ports.Subscription) {
	s.unsubscribe(sub)
}
