package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// Table is a ports.Table over one mirror slot. Records travel through their
// JSON form, so patches merge column by column like the remote update does.
type Table[T any] struct {
	store *Store
	name  domain.Table
}

var (
	_ ports.Table[domain.Company]      = (*Table[domain.Company])(nil)
	_ ports.Table[domain.User]         = (*Table[domain.User])(nil)
	_ ports.Table[domain.Course]       = (*Table[domain.Course])(nil)
	_ ports.Table[domain.Enrollment]   = (*Table[domain.Enrollment])(nil)
	_ ports.Table[domain.PortalAccess] = (*Table[domain.PortalAccess])(nil)
)

func NewTable[T any](store *Store, name domain.Table) *Table[T] {
	return &Table[T]{store: store, name: name}
}

func (t *Table[T]) Name() domain.Table { return t.name }

func (t *Table[T]) Select(ctx context.Context, q ports.Query) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError(t.name, "select", err)
	}
	rows, err := t.store.load(t.name)
	if err != nil {
		return nil, domain.NewStoreError(t.name, "select", err)
	}

	matched := make([]row, 0, len(rows))
	for _, r := range rows {
		if matches(r, q.Filters) {
			matched = append(matched, r)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i][q.OrderBy], matched[j][q.OrderBy])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}

	out := make([]T, 0, len(matched))
	for _, r := range matched {
		rec, err := fromRow[T](r)
		if err != nil {
			t.store.logger.Warn("mirror: skipping undecodable record", "table", t.name, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (t *Table[T]) SelectOne(ctx context.Context, filters ...ports.Filter) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError(t.name, "select", err)
	}
	rows, err := t.store.load(t.name)
	if err != nil {
		return nil, domain.NewStoreError(t.name, "select", err)
	}
	for _, r := range rows {
		if !matches(r, filters) {
			continue
		}
		rec, err := fromRow[T](r)
		if err != nil {
			return nil, domain.NewStoreError(t.name, "select", err)
		}
		return &rec, nil
	}
	return nil, nil
}

func (t *Table[T]) Insert(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, domain.NewStoreError(t.name, "insert", err)
	}
	r, err := toRow(rec)
	if err != nil {
		return zero, domain.NewStoreError(t.name, "insert", err)
	}

	id := valueText(r["id"])
	err = t.store.mutate(ctx, t.name, func(rows []row) ([]row, error) {
		for _, existing := range rows {
			if valueText(existing["id"]) == id {
				return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrConflict, id)
			}
		}
		return append(rows, r), nil
	})
	if err != nil {
		return zero, domain.NewStoreError(t.name, "insert", err)
	}
	out, err := fromRow[T](r)
	return out, domain.NewStoreError(t.name, "insert", err)
}

func (t *Table[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, domain.NewStoreError(t.name, "update", err)
	}
	p, err := toRow(patch)
	if err != nil {
		return zero, domain.NewStoreError(t.name, "update", err)
	}

	var merged row
	err = t.store.mutate(ctx, t.name, func(rows []row) ([]row, error) {
		for i, r := range rows {
			if valueText(r["id"]) != id {
				continue
			}
			for col, v := range p {
				r[col] = v
			}
			rows[i] = r
			merged = r
			return rows, nil
		}
		return nil, fmt.Errorf("%s %s: %w", t.name, id, domain.ErrNotFound)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return zero, err
		}
		return zero, domain.NewStoreError(t.name, "update", err)
	}
	out, err := fromRow[T](merged)
	return out, domain.NewStoreError(t.name, "update", err)
}

// Delete filters id out of the container. A missing id still rewrites the
// slot and notifies, leaving the records unchanged.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError(t.name, "delete", err)
	}
	err := t.store.mutate(ctx, t.name, func(rows []row) ([]row, error) {
		kept := rows[:0]
		for _, r := range rows {
			if valueText(r["id"]) != id {
				kept = append(kept, r)
			}
		}
		return kept, nil
	})
	return domain.NewStoreError(t.name, "delete", err)
}

func matches(r row, filters []ports.Filter) bool {
	for _, f := range filters {
		if valueText(r[f.Column]) != f.Value {
			return false
		}
	}
	return true
}

// valueText renders a decoded JSON value the way a text comparison in the
// remote backend would see it.
func valueText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// compareValues orders numbers numerically, timestamps chronologically and
// everything else as text. Nulls sort first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if na, ok := a.(json.Number); ok {
		if nb, ok := b.(json.Number); ok {
			fa, errA := na.Float64()
			fb, errB := nb.Float64()
			if errA == nil && errB == nil {
				switch {
				case fa < fb:
					return -1
				case fa > fb:
					return 1
				}
				return 0
			}
		}
	}
	sa, sb := valueText(a), valueText(b)
	if ta, err := time.Parse(time.RFC3339Nano, sa); err == nil {
		if tb, err := time.Parse(time.RFC3339Nano, sb); err == nil {
			return ta.Compare(tb)
		}
	}
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func toRow(v any) (row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r row
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	if r == nil {
		r = row{}
	}
	return r, nil
}

func fromRow[T any](r row) (T, error) {
	var out T
	b, err := json.Marshal(r)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}
