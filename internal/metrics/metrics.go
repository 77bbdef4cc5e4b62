// Package metrics exposes Prometheus metrics for feed reloads and coverage
// queries. All Collector methods are safe on a nil receiver.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "adsb_coverage"

// Collector holds the coverage service metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	ReloadsTotal     *prometheus.CounterVec
	ReloadDuration   prometheus.Histogram
	StationsLoaded   prometheus.Gauge
	StationsRejected prometheus.Counter
	QueriesTotal     *prometheus.CounterVec
	CacheHitsTotal   prometheus.Counter
}

// New registers coverage metrics against the provided registerer.
// A nil registerer uses the Prometheus default registry.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	reloads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reloads_total",
		Help:      "Station feed reloads by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reload_duration_seconds",
		Help:      "Time to fetch the feed and build a station set.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}))
	if err != nil {
		return nil, err
	}

	loaded, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stations_loaded",
		Help:      "Stations in the current station set.",
	}))
	if err != nil {
		return nil, err
	}

	rejected, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stations_rejected_total",
		Help:      "Feed records dropped as malformed.",
	}))
	if err != nil {
		return nil, err
	}

	queries, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coverage_queries_total",
		Help:      "Coverage queries by result (covered, none, error).",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	hits, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coverage_cache_hits_total",
		Help:      "Coverage queries answered from the query cache.",
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		ReloadsTotal:     reloads,
		ReloadDuration:   duration,
		StationsLoaded:   loaded,
		StationsRejected: rejected,
		QueriesTotal:     queries,
		CacheHitsTotal:   hits,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveReload records one reload attempt.
func (c *Collector) ObserveReload(d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.ReloadsTotal.WithLabelValues(result).Inc()
	c.ReloadDuration.Observe(d.Seconds())
}

// SetStationsLoaded updates the station count gauge.
func (c *Collector) SetStationsLoaded(n int) {
	if c == nil {
		return
	}
	c.StationsLoaded.Set(float64(n))
}

// AddRejected counts malformed feed records.
func (c *Collector) AddRejected(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.StationsRejected.Add(float64(n))
}

// ObserveQuery records a coverage query outcome.
func (c *Collector) ObserveQuery(stations int, cached bool, err error) {
	if c == nil {
		return
	}
	switch {
	case err != nil:
		c.QueriesTotal.WithLabelValues("error").Inc()
	case stations > 0:
		c.QueriesTotal.WithLabelValues("covered").Inc()
	default:
		c.QueriesTotal.WithLabelValues("none").Inc()
	}
	if cached {
		c.CacheHitsTotal.Inc()
	}
}

// register adds col to reg, reusing an existing collector of the same type.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
