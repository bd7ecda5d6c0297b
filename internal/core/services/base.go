// Package services holds the entity façades. Each one wraps a ports.Table
// chosen once at start-up (remote backend or local mirror) and owns the
// entity's derived fields: identifiers, timestamps and status transitions.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NewValidator returns the record validator with the custom "slug" rule.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

type settings struct {
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
	validate *validator.Validate
}

type Option func(*settings)

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *settings) { s.newID = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) settings {
	s := settings{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.validate == nil {
		s.validate = NewValidator()
	}
	return s
}

// base is the CRUD core shared by every façade.
type base[T any] struct {
	settings
	table ports.Table[T]
	// feed is nil on the local mirror.
	feed ports.ChangeFeed
}

func newBase[T any](table ports.Table[T], feed ports.ChangeFeed, opts []Option) base[T] {
	return base[T]{settings: newSettings(opts), table: table, feed: feed}
}

func (b *base[T]) check(v any) error {
	if err := b.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidRecord, b.table.Name(), err)
	}
	return nil
}

func (b *base[T]) list(ctx context.Context, q ports.Query) ([]T, error) {
	return b.table.Select(ctx, q)
}

func (b *base[T]) find(ctx context.Context, column, value string) (*T, error) {
	return b.table.SelectOne(ctx, ports.Eq(column, value))
}

func (b *base[T]) insert(ctx context.Context, rec T) (T, error) {
	out, err := b.table.Insert(ctx, rec)
	if err != nil {
		b.logger.Error("insert failed", "table", b.table.Name(), "error", err)
	}
	return out, err
}

func (b *base[T]) update(ctx context.Context, id string, patch any) (T, error) {
	out, err := b.table.Update(ctx, id, patch)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		b.logger.Error("update failed", "table", b.table.Name(), "id", id, "error", err)
	}
	return out, err
}

func (b *base[T]) delete(ctx context.Context, id string) error {
	err := b.table.Delete(ctx, id)
	if err != nil {
		b.logger.Error("delete failed", "table", b.table.Name(), "id", id, "error", err)
	}
	return err
}

// ensureUnique fails with ErrConflict when column already holds value on a
// record other than selfID.
func (b *base[T]) ensureUnique(ctx context.Context, selfID string, idOf func(T) string, filters ...ports.Filter) error {
	existing, err := b.table.SelectOne(ctx, filters...)
	if err != nil {
		return err
	}
	if existing != nil && idOf(*existing) != selfID {
		return fmt.Errorf("%w: %s %v", domain.ErrConflict, b.table.Name(), filters)
	}
	return nil
}

// subscribe decodes raw row changes into T. On the local mirror it returns a
// nil subscription and no error.
func (b *base[T]) subscribe(filter *ports.Filter, fn func(domain.Change[T])) (*ports.Subscription, error) {
	if b.feed == nil {
		return nil, nil
	}
	table := b.table.Name()
	return b.feed.Subscribe(table, filter, func(rc domain.RowChange) {
		change := domain.Change[T]{EventType: rc.EventType}
		var err error
		if change.New, err = decodeRecord[T](rc.New); err != nil {
			b.logger.Warn("dropping undecodable change", "table", table, "error", err)
			return
		}
		if change.Old, err = decodeRecord[T](rc.Old); err != nil {
			b.logger.Warn("dropping undecodable change", "table", table, "error", err)
			return
		}
		fn(change)
	})
}

func (b *base[T]) unsubscribe(sub *ports.Subscription) {
	if b.feed == nil || sub == nil {
		return
	}
	b.feed.Unsubscribe(sub)
}

func decodeRecord[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func scoped(column, value string) *ports.Filter {
	f := ports.Eq(column, value)
	return &f
}
