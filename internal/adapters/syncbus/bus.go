// Package syncbus propagates local mirror mutations. A Bus fans slot changes
// out to in-process listeners; a Broadcaster feeds it from the mirror and from
// a cross-process Transport, so every process sharing a mirror eventually
// sees every change.
package syncbus

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/learnova/portal-service/internal/core/domain"
)

// Listener receives slot changes. It must not block.
type Listener func(domain.SlotChange)

// Bus is an in-process publish/subscribe hub keyed by slot.
type Bus struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[uint64]Listener
	next      uint64
	known     map[string]struct{}
}

var (
	defaultBus  *Bus
	defaultOnce sync.Once
)

// Default returns the process-wide bus.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultBus = NewBus(slog.Default())
	})
	return defaultBus
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:    logger,
		listeners: make(map[uint64]Listener),
		known:     make(map[string]struct{}),
	}
}

// Allow restricts delivery to the given slot keys. With no allowed keys every
// key is delivered.
func (b *Bus) Allow(keys ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		b.known[k] = struct{}{}
	}
}

// Listen registers fn and returns the function that removes it.
func (b *Bus) Listen(fn Listener) (cancel func()) {
	b.mu.Lock()
	b.next++
	id := b.next
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers change to every listener. Unknown keys and payloads that
// are not valid JSON are dropped.
func (b *Bus) Publish(change domain.SlotChange) bool {
	b.mu.RLock()
	_, ok := b.known[change.Key]
	if len(b.known) > 0 && !ok {
		b.mu.RUnlock()
		b.logger.Debug("syncbus: ignoring unknown key", "key", change.Key)
		return false
	}
	if !json.Valid(change.Data) {
		b.mu.RUnlock()
		b.logger.Warn("syncbus: dropping malformed slot value", "key", change.Key)
		return false
	}
	targets := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		targets = append(targets, l)
	}
	b.mu.RUnlock()

	for _, l := range targets {
		l(change)
	}
	return true
}

// Listeners reports the number of registered listeners.
func (b *Bus) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
