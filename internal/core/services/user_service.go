package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

const minPasswordLength = 8

type UserService struct {
	base[domain.User]
	allowPlaceholderLogin bool
}

var _ ports.UserService = (*UserService)(nil)

// NewUserService builds the user façade. With allowPlaceholderLogin set, users
// without a stored password hash log in with any password.
func NewUserService(table ports.Table[domain.User], feed ports.ChangeFeed, allowPlaceholderLogin bool, opts ...Option) *UserService {
	return &UserService{base: newBase(table, feed, opts), allowPlaceholderLogin: allowPlaceholderLogin}
}

func userID(u domain.User) string { return u.ID }

// GetAll returns every user, newest first.
func (s *UserService) GetAll(ctx context.Context) ([]domain.User, error) {
	return s.list(ctx, ports.Query{}.Order("created_at", true))
}

// GetByCompany returns the users of one company, newest first.
func (s *UserService) GetByCompany(ctx context.Context, companyID string) ([]domain.User, error) {
	return s.list(ctx, ports.Where(ports.Eq("company_id", companyID)).Order("created_at", true))
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.find(ctx, "id", id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.find(ctx, "email", email)
}

func (s *UserService) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		u.ID = s.newID()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Role == "" {
		u.Role = domain.RoleLearner
	}
	if u.Status == "" {
		u.Status = domain.UserActive
	}
	if u.AuthProvider == "" {
		u.AuthProvider = domain.AuthEmail
	}
	if err := s.check(u); err != nil {
		return domain.User{}, err
	}
	if err := s.ensureUnique(ctx, u.ID, userID, ports.Eq("company_id", u.CompanyID), ports.Eq("email", u.Email)); err != nil {
		return domain.User{}, err
	}
	return s.insert(ctx, u)
}

func (s *UserService) Update(ctx context.Context, id string, upd domain.UserUpdate) (domain.User, error) {
	if err := s.check(upd); err != nil {
		return domain.User{}, err
	}
	if upd.Email != nil {
		cur, err := s.GetByID(ctx, id)
		if err != nil {
			return domain.User{}, err
		}
		if cur == nil {
			return domain.User{}, fmt.Errorf("%s %s: %w", domain.TableUsers, id, domain.ErrNotFound)
		}
		if err := s.ensureUnique(ctx, id, userID, ports.Eq("company_id", cur.CompanyID), ports.Eq("email", *upd.Email)); err != nil {
			return domain.User{}, err
		}
	}
	now := s.now()
	upd.UpdatedAt = &now
	return s.update(ctx, id, upd)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// Authenticate checks password against the stored bcrypt hash and stamps the
// login time. It returns nil for an unknown email or a wrong password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil || u == nil {
		return nil, err
	}

	switch {
	case u.PasswordHash != nil && *u.PasswordHash != "":
		err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("verify password for %s: %w", u.ID, err)
		}
	case s.allowPlaceholderLogin:
		s.logger.Warn("placeholder login accepted without password check", "user_id", u.ID, "company_id", u.CompanyID)
	default:
		return nil, nil
	}

	now := s.now()
	updated, err := s.update(ctx, u.ID, domain.UserUpdate{LastLoginAt: &now, UpdatedAt: &now})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetPassword stores a bcrypt hash of password.
func (s *UserService) SetPassword(ctx context.Context, id, password string) (domain.User, error) {
	if len(password) < minPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password shorter than %d characters", domain.ErrInvalidRecord, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	h := string(hash)
	now := s.now()
	return s.update(ctx, id, domain.UserUpdate{PasswordHash: &h, UpdatedAt: &now})
}

// Subscribe follows the users of one company.
func (s *UserService) Subscribe(companyID string, fn func(domain.Change[domain.User])) (*ports.Subscription, error) {
	return s.subscribe(scoped("company_id", companyID), fn)
}

func (s *UserService) Unsubscribe(sub *ports.Subscription) {
	s.unsubscribe(sub)
}
