// Package mirror is the local persisted fallback used when no remote backend
// is configured. Each table is one slot in a bbolt file holding the whole
// container as a JSON array; every mutation rewrites the slot, bumps the sync
// timestamp slot and notifies listeners.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

const (
	bucketName = "slots"
	syncSlot   = "sync_timestamp"
	openWait   = 2 * time.Second
)

type row = map[string]any

// Store owns the bbolt file backing every slot.
type Store struct {
	db       *bbolt.DB
	prefix   string
	notifier ports.Notifier
	logger   *slog.Logger
	now      func() time.Time

	// mu orders mutations and guards pending.
	mu       sync.Mutex
	lastSync int64
	pending  []domain.SlotChange
	// delivering is held by the goroutine draining pending. Notifications run
	// outside mu so a slow transport never blocks writes.
	delivering sync.Mutex
}

type Option func(*Store)

// WithClock overrides the wall clock used for sync timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNotifier installs the receiver of slot changes. Without one, mutations
// are persisted but not broadcast.
func WithNotifier(n ports.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func Open(path, prefix string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mirror: create dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openWait})
	if err != nil {
		return nil, fmt.Errorf("mirror: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("mirror: create bucket: %w", err)
	}

	s := &Store{db: db, prefix: prefix, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if ts, err := s.LastSync(); err == nil && !ts.IsZero() {
		s.lastSync = ts.UnixMilli()
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SlotKey is the persisted key holding table's container.
func (s *Store) SlotKey(table domain.Table) string {
	return s.prefix + string(table)
}

// SyncKey is the persisted key holding the last mutation timestamp.
func (s *Store) SyncKey() string {
	return s.prefix + syncSlot
}

// Keys lists every slot key the mirror writes, including the sync key.
func (s *Store) Keys() []string {
	return SlotKeys(s.prefix)
}

// SlotKeys lists the keys a mirror opened with prefix writes. Processes that
// only watch the mirror use it without holding the file lock.
func SlotKeys(prefix string) []string {
	keys := make([]string, 0, len(domain.MirroredTables)+1)
	for _, t := range domain.MirroredTables {
		keys = append(keys, prefix+string(t))
	}
	return append(keys, prefix+syncSlot)
}

// LastSync returns the timestamp written by the most recent mutation, or the
// zero time when nothing was ever written.
func (s *Store) LastSync() (time.Time, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw = copyBytes(tx.Bucket([]byte(bucketName)).Get([]byte(s.SyncKey())))
		return nil
	})
	if err != nil || raw == nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

// Raw returns the persisted bytes of key, or nil.
func (s *Store) Raw(key string) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw = copyBytes(tx.Bucket([]byte(bucketName)).Get([]byte(key)))
		return nil
	})
	return raw, err
}

// load reads a slot. A missing or unreadable slot is an empty container.
func (s *Store) load(table domain.Table) ([]row, error) {
	key := s.SlotKey(table)
	raw, err := s.Raw(key)
	if err != nil {
		return nil, err
	}
	return s.decodeSlot(key, raw), nil
}

func (s *Store) decodeSlot(key string, raw []byte) []row {
	if len(raw) == 0 {
		return []row{}
	}
	var rows []row
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		s.logger.Warn("mirror: unreadable slot, using empty container", "key", key, "error", err)
		return []row{}
	}
	if rows == nil {
		rows = []row{}
	}
	return rows
}

// mutate runs a read-modify-write of one slot and writes the sync timestamp,
// then notifies. Exactly one notification follows each successful mutation,
// in mutation order.
func (s *Store) mutate(ctx context.Context, table domain.Table, fn func([]row) ([]row, error)) error {
	if err := s.commit(table, fn); err != nil {
		return err
	}
	s.deliver(ctx)
	return nil
}

func (s *Store) commit(table domain.Table, fn func([]row) ([]row, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.SlotKey(table)
	var data []byte
	var ms int64

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		rows, err := fn(s.decodeSlot(key, b.Get([]byte(key))))
		if err != nil {
			return err
		}
		if rows == nil {
			rows = []row{}
		}
		data, err = json.Marshal(rows)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(key), data); err != nil {
			return err
		}
		ms = s.nextSync()
		return b.Put([]byte(s.SyncKey()), []byte(strconv.FormatInt(ms, 10)))
	})
	if err != nil {
		return err
	}
	s.lastSync = ms

	if s.notifier != nil {
		s.pending = append(s.pending, domain.SlotChange{
			Key:      key,
			Data:     json.RawMessage(data),
			SyncedAt: time.UnixMilli(ms),
		})
	}
	return nil
}

// deliver drains pending unless another goroutine already is. A notifier that
// writes to the mirror only queues its change for the active drain.
func (s *Store) deliver(ctx context.Context) {
	for {
		if !s.delivering.TryLock() {
			return
		}
		for {
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, change := range batch {
				s.notifier.Notify(ctx, change)
			}
		}
		s.delivering.Unlock()

		// A change queued between the last drain and the unlock is ours.
		s.mu.Lock()
		empty := len(s.pending) == 0
		s.mu.Unlock()
		if empty {
			return
		}
	}
}

// nextSync is the wall clock in milliseconds, forced strictly past the
// previous value.
func (s *Store) nextSync() int64 {
	ms := s.now().UnixMilli()
	if ms <= s.lastSync {
		ms = s.lastSync + 1
	}
	return ms
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
