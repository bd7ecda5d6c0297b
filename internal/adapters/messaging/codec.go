package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// encodeChange is the wire form shared by every transport.
func encodeChange(change domain.SlotChange) ([]byte, error) {
	if change.Key == "" {
		return nil, fmt.Errorf("messaging: change without key")
	}
	if !json.Valid(change.Data) {
		return nil, fmt.Errorf("messaging: %s carries invalid JSON", change.Key)
	}
	return json.Marshal(change)
}

// NewTransport builds the cross-process transport named by cfg. It returns a
// nil transport for "none" or an empty name.
func NewTransport(cfg config.SyncConfig) (ports.Transport, error) {
	switch cfg.Transport {
	case "", "none":
		return nil, nil
	case "redis":
		return NewRedisTransport(cfg.RedisAddr, cfg.RedisPassword, cfg.Channel), nil
	case "rabbitmq":
		t, err := NewRabbitTransport(cfg.RabbitMQURL, cfg.Exchange)
		if err != nil {
			return nil, fmt.Errorf("messaging: connect rabbitmq: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("messaging: unknown transport %q", cfg.Transport)
	}
}
