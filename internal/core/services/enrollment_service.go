package services

import (
	"context"
	"fmt"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type EnrollmentService struct {
	base[domain.Enrollment]
}

var _ ports.EnrollmentService = (*EnrollmentService)(nil)

func NewEnrollmentService(table ports.Table[domain.Enrollment], feed ports.ChangeFeed, opts ...Option) *EnrollmentService {
	return &EnrollmentService{base: newBase(table, feed, opts)}
}

// GetAll returns every enrollment, most recent first.
func (s *EnrollmentService) GetAll(ctx context.Context) ([]domain.Enrollment, error) {
	return s.list(ctx, ports.Query{}.Order("enrolled_at", true))
}

func (s *EnrollmentService) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	return s.find(ctx, "id", id)
}

func (s *EnrollmentService) GetByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	return s.list(ctx, ports.Where(ports.Eq("user_id", userID)).Order("enrolled_at", true))
}

func (s *EnrollmentService) GetByCompany(ctx context.Context, companyID string) ([]domain.Enrollment, error) {
	return s.list(ctx, ports.Where(ports.Eq("company_id", companyID)).Order("enrolled_at", true))
}

func (s *EnrollmentService) Create(ctx context.Context, e domain.Enrollment) (domain.Enrollment, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = s.now()
	}
	if e.Status == "" {
		e.Status = domain.EnrollmentNotStarted
	}
	if err := s.check(e); err != nil {
		return domain.Enrollment{}, err
	}
	return s.insert(ctx, e)
}

// UpdateProgress writes progress and the status it implies. See
// domain.ProgressUpdate for the inference rules.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, id string, progress int, status *domain.EnrollmentStatus) (domain.Enrollment, error) {
	upd := domain.EnrollmentUpdate{Status: status}
	if err := s.check(upd); err != nil {
		return domain.Enrollment{}, err
	}
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if cur == nil {
		return domain.Enrollment{}, fmt.Errorf("%s %s: %w", domain.TableEnrollments, id, domain.ErrNotFound)
	}
	if progress < 0 || progress > 100 {
		s.logger.Warn("progress outside 0-100 written as given", "enrollment_id", id, "progress", progress)
	}
	return s.update(ctx, id, domain.ProgressUpdate(*cur, progress, status, s.now()))
}

func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

func (s *EnrollmentService) Subscribe(companyID string, fn func(domain.Change[domain.Enrollment])) (*ports.Subscription, error) {
	return s.subscribe(scoped("company_id", companyID), fn)
}

func (s *EnrollmentService) Unsubscribe(sub *ports.Subscription) {
	s.unsubscribe(sub)
}
