package ports

import (
	"context"

	"github.com/learnova/portal-service/internal/core/domain"
)

// Subscription is the handle returned by ChangeFeed.Subscribe.
type Subscription struct {
	ID      uint64
	Channel string
	Table   domain.Table
	Filter  *Filter
}

// ChangeFeed pushes row-level changes from the remote backend.
type ChangeFeed interface {
	Subscribe(table domain.Table, filter *Filter, handler func(domain.RowChange)) (*Subscription, error)
	// Unsubscribe releases sub. A nil sub is a no-op.
	Unsubscribe(sub *Subscription)
}

// Notifier receives every local mirror mutation.
type Notifier interface {
	Notify(ctx context.Context, change domain.SlotChange)
}

// Transport carries slot changes between processes sharing a local mirror.
type Transport interface {
	Publish(ctx context.Context, change domain.SlotChange) error
	// Receive blocks, handing every inbound payload to deliver, until ctx is
	// done or the transport fails.
	Receive(ctx context.Context, deliver func(payload []byte)) error
	Close() error
}
