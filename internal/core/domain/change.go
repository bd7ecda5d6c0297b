package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// RowChange is a raw row-level notification from the remote backend.
// Truncated changes carry only the key columns of the row.
type RowChange struct {
	Table     Table           `json:"table"`
	EventType EventType       `json:"type"`
	New       json.RawMessage `json:"record"`
	Old       json.RawMessage `json:"old_record"`
	Truncated bool            `json:"truncated,omitempty"`
}

// Change is a RowChange decoded into the entity type. New is nil for deletes,
// Old is nil for inserts.
type Change[T any] struct {
	EventType EventType
	New       *T
	Old       *T
}

// SlotChange is emitted after every local mirror mutation: the slot key and
// the full container it now holds.
type SlotChange struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	SyncedAt time.Time       `json:"synced_at"`
	Origin   string          `json:"origin,omitempty"`
}
