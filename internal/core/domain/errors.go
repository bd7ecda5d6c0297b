package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by updates that address an id with no record.
	// Single-row lookups never return it; they return a nil record instead.
	ErrNotFound = errors.New("record not found")

	ErrInvalidRecord      = errors.New("invalid record")
	ErrConflict           = errors.New("record already exists")
	ErrUnknownRole        = errors.New("unknown portal role")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StoreError wraps any backend failure other than "no rows".
type StoreError struct {
	Table Table
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError returns nil when err is nil so callers can wrap unconditionally.
func NewStoreError(table Table, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Table: table, Op: op, Err: err}
}

// IsStoreError reports whether err carries a backend failure.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
