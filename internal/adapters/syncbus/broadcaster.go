package syncbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

const (
	retryMin = time.Second
	retryMax = time.Minute
)

// Event sources reported to the observer.
const (
	SourceLocal  = "local"
	SourceRemote = "transport"
)

// Broadcaster is the mirror's ports.Notifier. Local changes go straight to the
// bus and out over the transport; inbound transport messages from other
// processes are replayed onto the bus by Run.
type Broadcaster struct {
	bus       *Bus
	transport ports.Transport
	origin    string
	logger    *slog.Logger
	observe   func(source string)

	retryMin, retryMax time.Duration
}

var _ ports.Notifier = (*Broadcaster)(nil)

type Option func(*Broadcaster)

// WithTransport enables cross-process propagation.
func WithTransport(t ports.Transport) Option {
	return func(b *Broadcaster) { b.transport = t }
}

// WithObserver is called once per change delivered to the bus.
func WithObserver(fn func(source string)) Option {
	return func(b *Broadcaster) { b.observe = fn }
}

// WithRetry bounds the backoff between transport reconnect attempts.
func WithRetry(first, limit time.Duration) Option {
	return func(b *Broadcaster) { b.retryMin, b.retryMax = first, limit }
}

func NewBroadcaster(bus *Bus, logger *slog.Logger, opts ...Option) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{
		bus:    bus,
		origin:   uuid.NewString(),
		logger:   logger,
		retryMin: retryMin,
		retryMax: retryMax,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Origin identifies this process on the transport.
func (b *Broadcaster) Origin() string { return b.origin }

func (b *Broadcaster) Notify(ctx context.Context, change domain.SlotChange) {
	change.Origin = b.origin
	if b.bus.Publish(change) {
		b.observed(SourceLocal)
	}

	if b.transport == nil {
		return
	}
	if err := b.transport.Publish(ctx, change); err != nil {
		// The local write already succeeded; peers catch up on their next change.
		b.logger.Warn("syncbus: transport publish failed", "key", change.Key, "error", err)
	}
}

// Run receives changes from other processes until ctx is done. A failed or
// closed subscription is retried with exponential backoff, so a broker that is
// down at startup is picked up once it returns. Without a transport it just
// waits for ctx.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.transport == nil {
		<-ctx.Done()
		return nil
	}
	wait := b.retryMin
	for {
		started := time.Now()
		err := b.transport.Receive(ctx, b.deliver)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > b.retryMax {
			// The subscription was healthy for a while; start over.
			wait = b.retryMin
		}
		b.logger.Warn("syncbus: transport receive stopped, retrying", "error", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait = min(wait*2, b.retryMax)
	}
}

func (b *Broadcaster) deliver(payload []byte) {
	var change domain.SlotChange
	if err := json.Unmarshal(payload, &change); err != nil {
		b.logger.Warn("syncbus: dropping malformed transport message", "error", err)
		return
	}
	if change.Origin == b.origin {
		return
	}
	if b.bus.Publish(change) {
		b.observed(SourceRemote)
	}
}

func (b *Broadcaster) observed(source string) {
	if b.observe != nil {
		b.observe(source)
	}
}
