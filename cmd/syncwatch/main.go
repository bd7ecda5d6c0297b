// Command syncwatch follows portal data changes without serving the API. In
// mirror mode it relays slot changes arriving over the sync transport; with a
// remote backend it also logs every row change the realtime hub receives.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/learnova/portal-service/internal/adapters/messaging"
	"github.com/learnova/portal-service/internal/adapters/mirror"
	"github.com/learnova/portal-service/internal/adapters/realtime"
	"github.com/learnova/portal-service/internal/adapters/syncbus"
	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/domain"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	healthAddr := flag.String("health-addr", ":8090", "health check listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})).
		With("component", "syncwatch")

	transport, err := messaging.NewTransport(cfg.Sync)
	if err != nil {
		logger.Error("failed to create sync transport", "error", err)
		os.Exit(1)
	}

	bus := syncbus.NewBus(logger)
	bus.Allow(mirror.SlotKeys(cfg.Mirror.KeyPrefix)...)
	bus.Listen(func(c domain.SlotChange) {
		logger.Info("mirror slot changed", "key", c.Key, "origin", c.Origin, "bytes", len(c.Data), "synced_at", c.SyncedAt)
	})

	var opts []syncbus.Option
	if transport != nil {
		defer transport.Close()
		opts = append(opts, syncbus.WithTransport(transport))
	} else {
		logger.Warn("no sync transport configured, only remote changes are watched")
	}
	broadcaster := syncbus.NewBroadcaster(bus, logger, opts...)

	var hub *realtime.Hub
	if cfg.Backend.Configured() {
		hub = realtime.NewHub(cfg.Backend.DSN(), logger)
		for _, table := range domain.MirroredTables {
			sub, err := hub.Subscribe(table, nil, func(c domain.RowChange) {
				logger.Info("row changed", "table", c.Table, "type", c.EventType)
			})
			if err != nil {
				logger.Error("failed to subscribe", "table", table, "error", err)
				os.Exit(1)
			}
			defer hub.Unsubscribe(sub)
		}
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "UP"
		httpStatus := http.StatusOK

		if hub != nil && !hub.IsHealthy() {
			status = "DOWN"
			httpStatus = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    status,
			"component": "syncwatch",
		})
	})

	healthServer := &http.Server{
		Addr:              *healthAddr,
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting health check server", "addr", *healthAddr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fatal errors from either worker
	errChan := make(chan error, 2)

	go run(ctx, "sync receiver", broadcaster.Run, errChan, logger)
	if hub != nil {
		go run(ctx, "realtime hub", hub.Start, errChan, logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating shutdown", "signal", sig.String())
	case err := <-errChan:
		logger.Error("fatal error, shutting down", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down health server", "error", err)
	}

	logger.Info("shutdown complete")
}

func run(ctx context.Context, name string, worker func(context.Context) error, errChan chan<- error, logger *slog.Logger) {
	logger.Info("starting worker", "worker", name)
	if err := worker(ctx); err != nil && !errors.Is(err, context.Canceled) {
		errChan <- err
	}
}
