// Package mocks provides in-memory implementations of the port interfaces so
// services and handlers can be tested without a database or broker.
package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// MockTable implements ports.Table[T] over a slice of JSON rows.
//
// Filters compare the text form of the column, the same way both real
// backends do. Ordering is insertion order; Query.OrderBy is recorded but not
// applied.
type MockTable[T any] struct {
	mu   sync.Mutex
	name domain.Table
	rows []map[string]any

	// Call tracking for verification
	SelectCalls    []ports.Query
	SelectOneCalls [][]ports.Filter
	InsertCalls    []T
	UpdateCalls    []string
	DeleteCalls    []string

	// Error injection for testing error scenarios
	SelectError error
	InsertError error
	UpdateError error
	DeleteError error
}

var _ ports.Table[domain.User] = (*MockTable[domain.User])(nil)

func NewMockTable[T any](name domain.Table) *MockTable[T] {
	return &MockTable[T]{name: name}
}

// Seed stores records without tracking the call.
func (m *MockTable[T]) Seed(recs ...T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		r, err := rowOf(rec)
		if err != nil {
			panic(err)
		}
		m.rows = append(m.rows, r)
	}
}

func (m *MockTable[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *MockTable[T]) Name() domain.Table { return m.name }

func (m *MockTable[T]) Select(_ context.Context, q ports.Query) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SelectCalls = append(m.SelectCalls, q)
	if m.SelectError != nil {
		return nil, domain.NewStoreError(m.name, "select", m.SelectError)
	}
	out := []T{}
	for _, r := range m.rows {
		if !match(r, q.Filters) {
			continue
		}
		rec, err := recordOf[T](r)
		if err != nil {
			return nil, domain.NewStoreError(m.name, "select", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *MockTable[T]) SelectOne(_ context.Context, filters ...ports.Filter) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SelectOneCalls = append(m.SelectOneCalls, filters)
	if m.SelectError != nil {
		return nil, domain.NewStoreError(m.name, "select", m.SelectError)
	}
	for _, r := range m.rows {
		if match(r, filters) {
			rec, err := recordOf[T](r)
			if err != nil {
				return nil, domain.NewStoreError(m.name, "select", err)
			}
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *MockTable[T]) Insert(_ context.Context, rec T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls = append(m.InsertCalls, rec)
	if m.InsertError != nil {
		var zero T
		return zero, domain.NewStoreError(m.name, "insert", m.InsertError)
	}
	r, err := rowOf(rec)
	if err != nil {
		return rec, domain.NewStoreError(m.name, "insert", err)
	}
	m.rows = append(m.rows, r)
	return recordOf[T](r)
}

func (m *MockTable[T]) Update(_ context.Context, id string, patch any) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, id)
	var zero T
	if m.UpdateError != nil {
		return zero, domain.NewStoreError(m.name, "update", m.UpdateError)
	}
	fields, err := rowOf(patch)
	if err != nil {
		return zero, domain.NewStoreError(m.name, "update", err)
	}
	for _, r := range m.rows {
		if text(r["id"]) != id {
			continue
		}
		for k, v := range fields {
			r[k] = v
		}
		return recordOf[T](r)
	}
	return zero, fmt.Errorf("%s %s: %w", m.name, id, domain.ErrNotFound)
}

func (m *MockTable[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeleteError != nil {
		return domain.NewStoreError(m.name, "delete", m.DeleteError)
	}
	kept := m.rows[:0]
	for _, r := range m.rows {
		if text(r["id"]) != id {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}

// Reset clears stored rows, call tracking and injected errors.
func (m *MockTable[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = nil
	m.SelectCalls, m.SelectOneCalls, m.InsertCalls = nil, nil, nil
	m.UpdateCalls, m.DeleteCalls = nil, nil
	m.SelectError, m.InsertError, m.UpdateError, m.DeleteError = nil, nil, nil, nil
}

func match(r map[string]any, filters []ports.Filter) bool {
	for _, f := range filters {
		if text(r[f.Column]) != f.Value {
			return false
		}
	}
	return true
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func rowOf(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := map[string]any{}
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func recordOf[T any](r map[string]any) (T, error) {
	var rec T
	b, err := json.Marshal(r)
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(b, &rec)
	return rec, err
}
