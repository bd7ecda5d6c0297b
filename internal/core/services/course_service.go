package services

import (
	"context"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

type CourseService struct {
	base[domain.Course]
}

var _ ports.CourseService = (*CourseService)(nil)

func NewCourseService(table ports.Table[domain.Course], feed ports.ChangeFeed, opts ...Option) *CourseService {
	return &CourseService{base: newBase(table, feed, opts)}
}

func courseID(c domain.Course) string { return c.ID }

func (s *CourseService) GetAll(ctx context.Context) ([]domain.Course, error) {
	return s.list(ctx, ports.Query{}.Order("name", false))
}

// GetPublished returns the catalog visible to learners.
func (s *CourseService) GetPublished(ctx context.Context) ([]domain.Course, error) {
	return s.list(ctx, ports.Where(ports.Eq("status", string(domain.StatusPublished))).Order("name", false))
}

func (s *CourseService) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	return s.find(ctx, "id", id)
}

func (s *CourseService) GetByCode(ctx context.Context, code string) (*domain.Course, error) {
	return s.find(ctx, "code", code)
}

func (s *CourseService) Create(ctx context.Context, c domain.Course) (domain.Course, error) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Status == "" {
		c.Status = domain.StatusDraft
	}
	if c.Level == "" {
		c.Level = domain.LevelBeginner
	}
	if c.Prerequisites == nil {
		c.Prerequisites = []string{}
	}
	if c.Status == domain.StatusPublished && c.PublishedAt == nil {
		c.PublishedAt = &now
	}
	if err := s.check(c); err != nil {
		return domain.Course{}, err
	}
	if err := s.ensureUnique(ctx, c.ID, courseID, ports.Eq("code", c.Code)); err != nil {
		return domain.Course{}, err
	}
	return s.insert(ctx, c)
}

// Update stamps published_at when the status moves to published and the
// caller supplied no timestamp.
func (s *CourseService) Update(ctx context.Context, id string, upd domain.CourseUpdate) (domain.Course, error) {
	if err := s.check(upd); err != nil {
		return domain.Course{}, err
	}
	if upd.Code != nil {
		if err := s.ensureUnique(ctx, id, courseID, ports.Eq("code", *upd.Code)); err != nil {
			return domain.Course{}, err
		}
	}
	now := s.now()
	upd.UpdatedAt = &now
	if upd.Status != nil && *upd.Status == domain.StatusPublished && upd.PublishedAt == nil {
		upd.PublishedAt = &now
	}
	return s.update(ctx, id, upd)
}

func (s *CourseService) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

func (s *CourseService) Subscribe(fn func(domain.Change[domain.Course])) (*ports.Subscription, error) {
	return s.subscribe(nil, fn)
}

func (s *CourseService) Unsubscribe(sub *ports.Subscription) {
	s.unsubscribe(sub)
}
