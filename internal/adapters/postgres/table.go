package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// Table is a ports.Table over one relation of the remote backend.
type Table[T any] struct {
	db   *sql.DB
	name domain.Table
	cb   *gobreaker.CircuitBreaker
}

var (
	_ ports.Table[domain.Company]      = (*Table[domain.Company])(nil)
	_ ports.Table[domain.User]         = (*Table[domain.User])(nil)
	_ ports.Table[domain.Course]       = (*Table[domain.Course])(nil)
	_ ports.Table[domain.Enrollment]   = (*Table[domain.Enrollment])(nil)
	_ ports.Table[domain.PortalAccess] = (*Table[domain.PortalAccess])(nil)
)

// NewTable shares cb across every table of one backend so a dead database
// trips once for all of them.
func NewTable[T any](db *sql.DB, name domain.Table, cb *gobreaker.CircuitBreaker) *Table[T] {
	return &Table[T]{db: db, name: name, cb: cb}
}

func (t *Table[T]) Name() domain.Table { return t.name }

func (t *Table[T]) Select(ctx context.Context, q ports.Query) ([]T, error) {
	query, args, err := buildSelect(t.name, q, 0)
	if err != nil {
		return nil, domain.NewStoreError(t.name, "select", err)
	}

	res, err := t.cb.Execute(func() (interface{}, error) {
		rows, err := t.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := make([]T, 0)
		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				return nil, err
			}
			var rec T
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, fmt.Errorf("decode row: %w", err)
			}
			out = append(out, rec)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, domain.NewStoreError(t.name, "select", err)
	}
	return res.([]T), nil
}

func (t *Table[T]) SelectOne(ctx context.Context, filters ...ports.Filter) (*T, error) {
	query, args, err := buildSelect(t.name, ports.Where(filters...), 1)
	if err != nil {
		return nil, domain.NewStoreError(t.name, "select", err)
	}

	raw, err := t.queryRow(ctx, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStoreError(t.name, "select", err)
	}

	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, domain.NewStoreError(t.name, "select", fmt.Errorf("decode row: %w", err))
	}
	return &rec, nil
}

func (t *Table[T]) Insert(ctx context.Context, rec T) (T, error) {
	var zero T
	body, cols, err := encode(rec)
	if err != nil {
		return zero, domain.NewStoreError(t.name, "insert", err)
	}
	query, err := buildInsert(t.name, cols)
	if err != nil {
		return zero, domain.NewStoreError(t.name, "insert", err)
	}

	raw, err := t.queryRow(ctx, query, string(body))
	if err != nil {
		return zero, domain.NewStoreError(t.name, "insert", conflictOr(err))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, domain.NewStoreError(t.name, "insert", fmt.Errorf("decode row: %w", err))
	}
	return out, nil
}

func (t *Table[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	var zero T
	body, cols, err := encode(patch)
	if err != nil {
		return zero, domain.NewStoreError(t.name, "update", err)
	}

	// An empty patch changes nothing but must still address an existing row.
	if len(cols) == 0 {
		cur, err := t.SelectOne(ctx, ports.Eq("id", id))
		if err != nil {
			return zero, err
		}
		if cur == nil {
			return zero, fmt.Errorf("%s %s: %w", t.name, id, domain.ErrNotFound)
		}
		return *cur, nil
	}

	query, err := buildUpdate(t.name, cols)
	if err != nil {
		return zero, domain.NewStoreError(t.name, "update", err)
	}
	raw, err := t.queryRow(ctx, query, string(body), id)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s %s: %w", t.name, id, domain.ErrNotFound)
	}
	if err != nil {
		return zero, domain.NewStoreError(t.name, "update", err)
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, domain.NewStoreError(t.name, "update", fmt.Errorf("decode row: %w", err))
	}
	return out, nil
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	query, err := buildDelete(t.name)
	if err != nil {
		return domain.NewStoreError(t.name, "delete", err)
	}
	_, err = t.cb.Execute(func() (interface{}, error) {
		return t.db.ExecContext(ctx, query, id)
	})
	return domain.NewStoreError(t.name, "delete", err)
}

func (t *Table[T]) queryRow(ctx context.Context, query string, args ...any) ([]byte, error) {
	res, err := t.cb.Execute(func() (interface{}, error) {
		var raw []byte
		err := t.db.QueryRowContext(ctx, query, args...).Scan(&raw)
		return raw, err
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

const uniqueViolation = "23505"

// conflictOr marks unique key violations, including a duplicate id, as
// ErrConflict.
func conflictOr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Message)
	}
	return err
}
