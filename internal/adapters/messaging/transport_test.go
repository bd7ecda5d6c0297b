package messaging

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

func TestEncodeChange(t *testing.T) {
	tests := []struct {
		name    string
		change  domain.SlotChange
		wantErr bool
	}{
		{"valid", domain.SlotChange{Key: "learnova_users", Data: json.RawMessage(`[]`), Origin: "p-1"}, false},
		{"missing key", domain.SlotChange{Data: json.RawMessage(`[]`)}, true},
		{"invalid data", domain.SlotChange{Key: "learnova_users", Data: json.RawMessage(`[`)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := encodeChange(tt.change)
			if (err != nil) != tt.wantErr {
				t.Fatalf("encodeChange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !json.Valid(b) {
				t.Errorf("encodeChange() produced invalid JSON: %s", b)
			}
		})
	}
}

func TestNewTransport(t *testing.T) {
	for _, name := range []string{"", "none"} {
		tr, err := NewTransport(config.SyncConfig{Transport: name})
		if err != nil || tr != nil {
			t.Errorf("NewTransport(%q) = %v, %v; want nil, nil", name, tr, err)
		}
	}

	tr, err := NewTransport(config.SyncConfig{Transport: "redis", RedisAddr: "127.0.0.1:0", Channel: "c"})
	if err != nil {
		t.Fatalf("NewTransport(redis) error = %v", err)
	}
	if _, ok := tr.(*RedisTransport); !ok {
		t.Errorf("NewTransport(redis) = %T", tr)
	}
	tr.Close()

	if _, err := NewTransport(config.SyncConfig{Transport: "kafka"}); err == nil {
		t.Error("NewTransport(kafka) error = nil")
	}
}

// roundTrip publishes on one transport and expects the same change on another.
func roundTrip(t *testing.T, pub, sub ports.Transport) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan []byte, 1)
	done := make(chan error, 1)
	go func() {
		done <- sub.Receive(ctx, func(b []byte) {
			select {
			case got <- b:
			default:
			}
		})
	}()
	// Give the subscriber time to bind before publishing.
	time.Sleep(300 * time.Millisecond)

	want := domain.SlotChange{Key: "learnova_users", Data: json.RawMessage(`[{"id":"u-1"}]`), Origin: uuid.NewString()}
	if err := pub.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case b := <-got:
		var change domain.SlotChange
		if err := json.Unmarshal(b, &change); err != nil {
			t.Fatalf("payload is not a slot change: %v", err)
		}
		if change.Key != want.Key || change.Origin != want.Origin {
			t.Errorf("received %+v, want %+v", change, want)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the published change")
	}
	cancel()
	<-done
}

func TestRedisTransportIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	channel := "portal-sync-test-" + uuid.NewString()
	pub := NewRedisTransport(addr, "", channel)
	defer pub.Close()
	sub := NewRedisTransport(addr, "", channel)
	defer sub.Close()

	if err := pub.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	roundTrip(t, pub, sub)
}

func TestRabbitTransportIntegration(t *testing.T) {
	url := os.Getenv("TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TEST_RABBITMQ_URL not set")
	}
	exchange := "portal.sync.test." + uuid.NewString()
	pub, err := NewRabbitTransport(url, exchange)
	if err != nil {
		t.Fatalf("NewRabbitTransport() error = %v", err)
	}
	defer pub.Close()
	sub, err := NewRabbitTransport(url, exchange)
	if err != nil {
		t.Fatalf("NewRabbitTransport() error = %v", err)
	}
	defer sub.Close()

	roundTrip(t, pub, sub)
}
