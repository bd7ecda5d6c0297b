package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const probeTimeout = 5 * time.Second

// Probe is one named readiness dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// DatabaseProbe pings the remote backend.
func DatabaseProbe(db *sql.DB) Probe {
	return Probe{Name: "database", Check: func(ctx context.Context) error {
		if db == nil {
			return errors.New("Database connection is not initialized")
		}
		if err := db.PingContext(ctx); err != nil {
			return errors.New("Cannot connect to database")
		}
		return nil
	}}
}

// RedisProbe pings the sync transport's Redis server.
func RedisProbe(client *redis.Client) Probe {
	return Probe{Name: "redis", Check: func(ctx context.Context) error {
		if client == nil {
			return errors.New("Redis client is not initialized")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.New("Cannot connect to Redis")
		}
		return nil
	}}
}

// ReadyProbe adapts a component that reports its own readiness, such as the
// realtime hub.
func ReadyProbe(name string, ready func() bool) Probe {
	return Probe{Name: name, Check: func(context.Context) error {
		if !ready() {
			return errors.New(name + " is not ready")
		}
		return nil
	}}
}

type HealthHandler struct {
	probes    []Probe
	mode      string
	startTime time.Time
	version   string
}

// NewHealthHandler reports mode ("remote" or "mirror") and checks probes on
// readiness.
func NewHealthHandler(mode string, probes ...Probe) *HealthHandler {
	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "unknown"
	}
	return &HealthHandler{
		probes:    probes,
		mode:      mode,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse follows Kubernetes/OpenShift health check conventions
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Mode      string           `json:"mode"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is a simple liveness check - just confirms the Go process is running
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "UP",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Mode:      h.mode,
		Checks:    map[string]Check{"process": {Status: "UP"}},
	})
}

// Ready checks if the service is ready to accept traffic (readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	checks := make(map[string]Check, len(h.probes))
	status := "UP"
	httpStatus := http.StatusOK
	for _, p := range h.probes {
		if err := p.Check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", p.Name, "error", err)
			checks[p.Name] = Check{Status: "DOWN", Message: err.Error()}
			status = "DOWN"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[p.Name] = Check{Status: "UP"}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"mode":   h.mode,
		"checks": checks,
	})
}

// Live is an alias for Health - simple liveness check
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Health(w, r)
}
