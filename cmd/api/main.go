package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/learnova/portal-service/internal/adapters/handler"
	"github.com/learnova/portal-service/internal/adapters/messaging"
	"github.com/learnova/portal-service/internal/adapters/middleware"
	"github.com/learnova/portal-service/internal/adapters/mirror"
	"github.com/learnova/portal-service/internal/adapters/postgres"
	"github.com/learnova/portal-service/internal/adapters/realtime"
	"github.com/learnova/portal-service/internal/adapters/syncbus"
	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/credentials"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
	"github.com/learnova/portal-service/internal/core/services"
	"github.com/learnova/portal-service/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	deriver := credentials.NewDeriver(cfg.Portal)
	bus := syncbus.Default()

	transport, err := messaging.NewTransport(cfg.Sync)
	if err != nil {
		// Cross-process sync is best effort; the mirror still works locally.
		logger.Warn("sync transport unavailable, continuing without it", "transport", cfg.Sync.Transport, "error", err)
	}
	bopts := []syncbus.Option{syncbus.WithObserver(m.ObserveSync)}
	if transport != nil {
		defer transport.Close()
		bopts = append(bopts, syncbus.WithTransport(transport))
	}
	broadcaster := syncbus.NewBroadcaster(bus, logger, bopts...)

	var (
		tables  services.Tables
		feed    ports.ChangeFeed
		session *middleware.Session
		probes  []handler.Probe
		mode    string
	)

	if cfg.Backend.Configured() {
		mode = "remote"
		db, err := postgres.Open(ctx, cfg.Backend.DSN())
		if err != nil {
			logger.Error("failed to connect to backend", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db, postgres.Migrations); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}

		hub := realtime.NewHub(cfg.Backend.DSN(), logger, realtime.WithDB(db))
		go func() {
			if err := hub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("realtime hub stopped", "error", err)
			}
		}()

		tables = remoteTables(db, m)
		feed = hub
		probes = append(probes, handler.DatabaseProbe(db), handler.ReadyProbe("realtime", hub.IsReady))
	} else {
		mode = "mirror"
		store, err := mirror.Open(cfg.Mirror.Path, cfg.Mirror.KeyPrefix, logger, mirror.WithNotifier(broadcaster))
		if err != nil {
			logger.Error("failed to open local mirror", "path", cfg.Mirror.Path, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		bus.Allow(store.Keys()...)
		tables = mirrorTables(store, m)
	}

	if rt, ok := transport.(*messaging.RedisTransport); ok {
		probes = append(probes, handler.RedisProbe(rt.Client()))
	}

	svc := services.New(tables, feed, deriver, cfg.Auth.AllowPlaceholderLogin, services.WithLogger(logger))
	if cfg.Auth.AllowPlaceholderLogin {
		logger.Warn("placeholder login enabled: users without a password hash log in with any password")
	}

	if cfg.Backend.Configured() {
		session = middleware.NewSession(cfg.Backend.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.RefreshTTL, svc.Users.GetByID, logger)
	}

	go func() {
		if err := broadcaster.Run(ctx); err != nil {
			logger.Error("sync receiver stopped", "error", err)
		}
	}()

	router := handler.NewRouter(handler.Deps{
		Companies:    svc.Companies,
		Users:        svc.Users,
		Courses:      svc.Courses,
		Enrollments:  svc.Enrollments,
		PortalAccess: svc.PortalAccess,
		Bus:          bus,
		Session:      session,
		Health:       handler.NewHealthHandler(mode, probes...),
		Metrics:      m.Handler(),
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Wrap(router, cfg.CORS.AllowedOrigins, session),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "mode", mode, "transport", cfg.Sync.Transport)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("could not start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down server", "error", err)
	}
	logger.Info("shutdown complete")
}

func remoteTables(db *sql.DB, m *metrics.Metrics) services.Tables {
	cb := config.NewCircuitBreaker("PostgreSQL")
	return services.Tables{
		Companies:    metrics.Instrument[domain.Company](postgres.NewTable[domain.Company](db, domain.TableCompanies, cb), "remote", m),
		Users:        metrics.Instrument[domain.User](postgres.NewTable[domain.User](db, domain.TableUsers, cb), "remote", m),
		Courses:      metrics.Instrument[domain.Course](postgres.NewTable[domain.Course](db, domain.TableCourses, cb), "remote", m),
		Enrollments:  metrics.Instrument[domain.Enrollment](postgres.NewTable[domain.Enrollment](db, domain.TableEnrollments, cb), "remote", m),
		PortalAccess: metrics.Instrument[domain.PortalAccess](postgres.NewTable[domain.PortalAccess](db, domain.TablePortalAccess, cb), "remote", m),
	}
}

func mirrorTables(store *mirror.Store, m *metrics.Metrics) services.Tables {
	return services.Tables{
		Companies:    metrics.Instrument[domain.Company](mirror.NewTable[domain.Company](store, domain.TableCompanies), "mirror", m),
		Users:        metrics.Instrument[domain.User](mirror.NewTable[domain.User](store, domain.TableUsers), "mirror", m),
		Courses:      metrics.Instrument[domain.Course](mirror.NewTable[domain.Course](store, domain.TableCourses), "mirror", m),
		Enrollments:  metrics.Instrument[domain.Enrollment](mirror.NewTable[domain.Enrollment](store, domain.TableEnrollments), "mirror", m),
		PortalAccess: metrics.Instrument[domain.PortalAccess](mirror.NewTable[domain.PortalAccess](store, domain.TablePortalAccess), "mirror", m),
	}
}
