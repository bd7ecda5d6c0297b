package mocks

import (
	"encoding/json"
	"sync"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// MockFeed implements ports.ChangeFeed. Emit hands a change to every
// subscriber of its table whose filter matches, without any network.
type MockFeed struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]feedSub

	SubscribeCalls   []ports.Subscription
	UnsubscribeCalls []*ports.Subscription
	SubscribeError   error
}

type feedSub struct {
	sub     ports.Subscription
	handler func(domain.RowChange)
}

var _ ports.ChangeFeed = (*MockFeed)(nil)

func NewMockFeed() *MockFeed {
	return &MockFeed{subs: make(map[uint64]feedSub)}
}

func (m *MockFeed) Subscribe(table domain.Table, filter *ports.Filter, handler func(domain.RowChange)) (*ports.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubscribeError != nil {
		return nil, m.SubscribeError
	}
	m.nextID++
	sub := ports.Subscription{ID: m.nextID, Table: table, Filter: filter}
	m.subs[sub.ID] = feedSub{sub: sub, handler: handler}
	m.SubscribeCalls = append(m.SubscribeCalls, sub)
	return &sub, nil
}

func (m *MockFeed) Unsubscribe(sub *ports.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UnsubscribeCalls = append(m.UnsubscribeCalls, sub)
	if sub != nil {
		delete(m.subs, sub.ID)
	}
}

func (m *MockFeed) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Emit delivers change synchronously and returns how many handlers ran.
func (m *MockFeed) Emit(change domain.RowChange) int {
	m.mu.Lock()
	var targets []func(domain.RowChange)
	for _, s := range m.subs {
		if s.sub.Table == change.Table && feedMatch(change, s.sub.Filter) {
			targets = append(targets, s.handler)
		}
	}
	m.mu.Unlock()

	for _, fn := range targets {
		fn(change)
	}
	return len(targets)
}

func feedMatch(change domain.RowChange, f *ports.Filter) bool {
	if f == nil {
		return true
	}
	raw := change.New
	if change.EventType == domain.EventDelete {
		raw = change.Old
	}
	var r map[string]any
	if err := json.Unmarshal(raw, &r); err != nil {
		return false
	}
	return text(r[f.Column]) == f.Value
}

// RecordChange builds a RowChange from typed records; nil old or new become
// JSON null.
func RecordChange(table domain.Table, typ domain.EventType, newRec, oldRec any) domain.RowChange {
	enc := func(v any) json.RawMessage {
		if v == nil {
			return json.RawMessage("null")
		}
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		return b
	}
	return domain.RowChange{Table: table, EventType: typ, New: enc(newRec), Old: enc(oldRec)}
}
