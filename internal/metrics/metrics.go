// Package metrics exposes Prometheus instrumentation for the store layer and
// the sync stream from a private registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

const namespace = "portal"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	syncEvents *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Store operations by table, operation, backend and outcome.",
		}, []string{"table", "op", "backend", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op", "backend"}),
		syncEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_events_total",
			Help:      "Local mirror change notifications by source.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		m.operations, m.duration, m.syncEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSync counts one sync event. Its signature matches the broadcaster
// observer hook.
func (m *Metrics) ObserveSync(source string) {
	m.syncEvents.WithLabelValues(source).Inc()
}

func (m *Metrics) observe(table domain.Table, op, backend string, start time.Time, err error) {
	outcome := OutcomeOK
	switch {
	case errors.Is(err, domain.ErrNotFound):
		outcome = OutcomeNotFound
	case err != nil:
		outcome = OutcomeError
	}
	m.operations.WithLabelValues(table.String(), op, backend, outcome).Inc()
	m.duration.WithLabelValues(table.String(), op, backend).Observe(time.Since(start).Seconds())
}

// instrumented decorates a Table with operation counters and latency.
type instrumented[T any] struct {
	next    ports.Table[T]
	backend string
	m       *Metrics
}

// Instrument wraps t so every call is recorded under backend ("remote" or
// "mirror"). A nil Metrics returns t unchanged.
func Instrument[T any](t ports.Table[T], backend string, m *Metrics) ports.Table[T] {
	if m == nil {
		return t
	}
	return &instrumented[T]{next: t, backend: backend, m: m}
}

func (i *instrumented[T]) Name() domain.Table { return i.next.Name() }

func (i *instrumented[T]) Select(ctx context.Context, q ports.Query) ([]T, error) {
	start := time.Now()
	out, err := i.next.Select(ctx, q)
	i.m.observe(i.Name(), "select", i.backend, start, err)
	return out, err
}

func (i *instrumented[T]) SelectOne(ctx context.Context, filters ...ports.Filter) (*T, error) {
	start := time.Now()
	out, err := i.next.SelectOne(ctx, filters...)
	if err == nil && out == nil {
		i.m.observe(i.Name(), "select_one", i.backend, start, domain.ErrNotFound)
		return nil, nil
	}
	i.m.observe(i.Name(), "select_one", i.backend, start, err)
	return out, err
}

func (i *instrumented[T]) Insert(ctx context.Context, rec T) (T, error) {
	start := time.Now()
	out, err := i.next.Insert(ctx, rec)
	i.m.observe(i.Name(), "insert", i.backend, start, err)
	return out, err
}

func (i *instrumented[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	start := time.Now()
	out, err := i.next.Update(ctx, id, patch)
	i.m.observe(i.Name(), "update", i.backend, start, err)
	return out, err
}

func (i *instrumented[T]) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := i.next.Delete(ctx, id)
	i.m.observe(i.Name(), "delete", i.backend, start, err)
	return err
}
