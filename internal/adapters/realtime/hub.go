// Package realtime delivers row-level changes from the remote backend to
// in-process subscribers. The database trigger installed by the postgres
// migrations publishes every change on one NOTIFY channel; the hub fans those
// out by table and optional column filter.
package realtime

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

const (
	// PostgreSQL NOTIFY/LISTEN configuration
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	ChannelName                  = "portal_changes"

	pingInterval = 90 * time.Second

	// Health check configuration
	healthCheckStaleThreshold = 5 * time.Minute

	rereadTimeout = 5 * time.Second
)

type subscriber struct {
	sub     *ports.Subscription
	handler func(domain.RowChange)
}

// Hub is the ports.ChangeFeed of the remote backend.
type Hub struct {
	dsn    string
	logger *slog.Logger
	cb     *gobreaker.CircuitBreaker
	// db re-reads rows whose notification was truncated; optional.
	db *sql.DB

	mu     sync.RWMutex
	subs   map[uint64]subscriber
	nextID atomic.Uint64

	healthy  atomic.Bool
	lastSeen atomic.Int64
}

var _ ports.ChangeFeed = (*Hub)(nil)

type Option func(*Hub)

// WithDB lets the hub re-read the full row of a truncated notification.
func WithDB(db *sql.DB) Option {
	return func(h *Hub) { h.db = db }
}

func NewHub(dsn string, logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		dsn:    dsn,
		logger: logger,
		cb:     config.NewCircuitBreaker("Realtime-PostgreSQL"),
		subs:   make(map[uint64]subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.healthy.Store(true)
	h.lastSeen.Store(time.Now().UnixNano())
	return h
}

// ChannelFor names the logical channel of a subscription. Scoped
// subscriptions carry the filter value so concurrent scopes never collide.
func ChannelFor(table domain.Table, filter *ports.Filter) string {
	if filter == nil {
		return string(table) + "-changes"
	}
	return fmt.Sprintf("%s-%s-changes", table, filter.Value)
}

// Subscribe registers handler for changes on table, limited to rows whose
// filter column equals the filter value when filter is set.
func (h *Hub) Subscribe(table domain.Table, filter *ports.Filter, handler func(domain.RowChange)) (*ports.Subscription, error) {
	if !table.Valid() {
		return nil, fmt.Errorf("realtime: unknown table %q", table)
	}
	if handler == nil {
		return nil, fmt.Errorf("realtime: nil handler for %s", table)
	}

	sub := &ports.Subscription{
		ID:      h.nextID.Add(1),
		Channel: ChannelFor(table, filter),
		Table:   table,
	}
	if filter != nil {
		f := *filter
		sub.Filter = &f
	}

	h.mu.Lock()
	h.subs[sub.ID] = subscriber{sub: sub, handler: handler}
	h.mu.Unlock()

	h.logger.Debug("realtime: subscribed", "channel", sub.Channel, "id", sub.ID)
	return sub, nil
}

func (h *Hub) Unsubscribe(sub *ports.Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, sub.ID)
	h.mu.Unlock()
	h.logger.Debug("realtime: unsubscribed", "channel", sub.Channel, "id", sub.ID)
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// IsHealthy returns true if the hub loop is alive and its listener connected.
// Liveness only; an open circuit is degraded, not dead.
func (h *Hub) IsHealthy() bool {
	return h.healthy.Load()
}

// IsReady returns true if notifications are flowing (for readiness probes).
func (h *Hub) IsReady() bool {
	if h.cb.State() == gobreaker.StateOpen {
		return false
	}
	if time.Since(time.Unix(0, h.lastSeen.Load())) > healthCheckStaleThreshold {
		return false
	}
	return h.healthy.Load()
}

// Start listens for change notifications and dispatches them until ctx is
// cancelled. This is a blocking call.
func (h *Hub) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			h.logger.Error("realtime: listener error", "event", int(ev), "error", err)
		}
	}

	listener := pq.NewListener(h.dsn, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer listener.Close()

	if err := listener.Listen(ChannelName); err != nil {
		return fmt.Errorf("realtime: listen %s: %w", ChannelName, err)
	}
	h.logger.Info("realtime: listening for changes", "channel", ChannelName)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("realtime: shutting down")
			return ctx.Err()

		case n := <-listener.Notify:
			if n == nil {
				// pq sends nil after re-establishing a dropped connection.
				h.logger.Warn("realtime: connection re-established, changes may have been missed")
				h.healthy.Store(true)
				continue
			}
			h.touch()
			h.Dispatch([]byte(n.Extra))

		case <-time.After(pingInterval):
			_, err := h.cb.Execute(func() (interface{}, error) {
				return nil, listener.Ping()
			})
			if err != nil {
				h.logger.Warn("realtime: ping failed", "error", err)
				h.healthy.Store(false)
			} else {
				h.touch()
			}
		}
	}
}

func (h *Hub) touch() {
	h.healthy.Store(true)
	h.lastSeen.Store(time.Now().UnixNano())
}

// Dispatch decodes one notification payload and hands it to every matching
// subscriber. Malformed payloads are logged and dropped.
func (h *Hub) Dispatch(payload []byte) {
	var change domain.RowChange
	if err := json.Unmarshal(payload, &change); err != nil {
		h.logger.Warn("realtime: dropping malformed notification", "error", err)
		return
	}
	if change.Truncated {
		h.reread(&change)
	}

	h.mu.RLock()
	targets := make([]subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		if s.sub.Table == change.Table && matchesFilter(change, s.sub.Filter) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.handler(change)
	}
}

// reread replaces the key-only record of a truncated insert or update with
// the current row. On failure the key-only record is delivered, which still
// satisfies scope filters.
func (h *Hub) reread(change *domain.RowChange) {
	if h.db == nil || isNull(change.New) || !change.Table.Valid() {
		return
	}
	var keys struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(change.New, &keys); err != nil || keys.ID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rereadTimeout)
	defer cancel()
	query := fmt.Sprintf("SELECT row_to_json(t) FROM %s t WHERE t.id = $1", pq.QuoteIdentifier(string(change.Table)))
	out, err := h.cb.Execute(func() (interface{}, error) {
		var raw []byte
		err := h.db.QueryRowContext(ctx, query, keys.ID).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			// Deleted since the notification; the key-only record stands.
			return []byte(nil), nil
		}
		return raw, err
	})
	if err != nil {
		h.logger.Warn("realtime: could not re-read truncated change", "table", change.Table, "id", keys.ID, "error", err)
		return
	}
	if raw := out.([]byte); len(raw) > 0 {
		change.New = raw
		change.Truncated = false
	}
}

// matchesFilter checks the new record, or the old one for deletes.
func matchesFilter(change domain.RowChange, f *ports.Filter) bool {
	if f == nil {
		return true
	}
	rec := change.New
	if isNull(rec) {
		rec = change.Old
	}
	if isNull(rec) {
		return false
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(rec))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return false
	}
	return text(fields[f.Column]) == f.Value
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func text(v any) string {
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
