// Package metrics instruments a contentrepo.Service with Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/content-repository/pkg/contentrepo"
)

const metricsNamespace = "contentrepo"

// Collector is a prometheus.Collector that collects metrics about entity
// lifecycle operations.
type Collector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "The number of lifecycle operations by outcome.",
			}, []string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "operation_duration_seconds",
				Help:      "The time taken by lifecycle operations.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			}, []string{"operation"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.operations.Describe(ch)
	c.duration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.operations.Collect(ch)
	c.duration.Collect(ch)
}

func (c *Collector) observe(operation string, started time.Time, now time.Time, err error) {
	c.operations.WithLabelValues(operation, Outcome(err)).Inc()
	c.duration.WithLabelValues(operation).Observe(now.Sub(started).Seconds())
}

// Outcome classifies an operation error into a metric label
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, contentrepo.ErrEntityNotFound):
		return "not_found"
	case errors.Is(err, contentrepo.ErrAccessDenied):
		return "denied"
	case errors.Is(err, contentrepo.ErrEntityLocked):
		return "locked"
	case errors.Is(err, contentrepo.ErrGroupNotEmpty):
		return "not_empty"
	case errors.Is(err, contentrepo.ErrParentMissing):
		return "parent_missing"
	case errors.Is(err, contentrepo.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}

type instrumented struct {
	next      contentrepo.Service
	collector *Collector
	clock     clock.Clock
}

// Instrument wraps svc so every call is counted and timed by collector
func Instrument(svc contentrepo.Service, collector *Collector, clk clock.Clock) contentrepo.Service {
	if clk == nil {
		clk = clock.WallClock
	}
	return &instrumented{next: svc, collector: collector, clock: clk}
}

func (s *instrumented) Store(ctx context.Context, entity contentrepo.Entity) (contentrepo.Identifier, error) {
	started := s.clock.Now()
	operation := "update"
	if _, ok := entity.Identifier(); !ok {
		operation = "create"
	}
	identifier, err := s.next.Store(ctx, entity)
	s.collector.observe(operation, started, s.clock.Now(), err)
	return identifier, err
}

func (s *instrumented) Remove(ctx context.Context, id contentrepo.ID) error {
	started := s.clock.Now()
	err := s.next.Remove(ctx, id)
	s.collector.observe("remove", started, s.clock.Now(), err)
	return err
}

func (s *instrumented) Recover(ctx context.Context, id contentrepo.ID) error {
	started := s.clock.Now()
	err := s.next.Recover(ctx, id)
	s.collector.observe("recover", started, s.clock.Now(), err)
	return err
}
