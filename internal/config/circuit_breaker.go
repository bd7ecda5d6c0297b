package config

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// NewCircuitBreaker creates a circuit breaker with standard settings.
// The name parameter uniquely identifies the circuit breaker instance.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	var timeout time.Duration

	// Use different timeouts for different dependencies
	switch name {
	case "Redis-Sync":
		timeout = time.Second * 5
	case "PostgreSQL", "Realtime-PostgreSQL":
		timeout = time.Second * 10
	default:
		timeout = time.Second * 30 // RabbitMQ and other operations
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Second * 10,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open circuit after 3 consecutive failures
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: IsBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Error("[CRITICAL] circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// IsBreakerSuccess reports whether err leaves the dependency healthy. An empty
// result and a caller giving up are not the dependency's fault.
func IsBreakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
