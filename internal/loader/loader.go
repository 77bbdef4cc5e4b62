// Package loader keeps a coverage.Store filled from a station feed.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unklstewy/ads-bcoverage/internal/metrics"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
	"github.com/unklstewy/ads-bcoverage/pkg/feed"
)

// DefaultInterval between scheduled reloads.
const DefaultInterval = 5 * time.Minute

// ErrReloadInProgress is returned by TryReload when a reload is already running.
var ErrReloadInProgress = errors.New("reload already in progress")

// Config wires a Refresher.
type Config struct {
	Source   feed.DataSource
	Store    *coverage.Store
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	Interval time.Duration
	Build    coverage.BuildOptions
}

// Status summarises recent reload activity.
type Status struct {
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	Reloads     int       `json:"reloads"`
	Failures    int       `json:"failures"`
	Rejected    int       `json:"rejected_last_reload"`
}

// Refresher fetches the feed, builds a station set and publishes it.
// A failed reload leaves the previously published set in place.
type Refresher struct {
	source   feed.DataSource
	store    *coverage.Store
	metrics  *metrics.Collector
	logger   *zap.Logger
	interval time.Duration
	build    coverage.BuildOptions

	// reloadMu serialises reloads so sets are published in fetch order.
	reloadMu sync.Mutex

	statusMu sync.RWMutex
	status   Status
}

// New creates a Refresher.
func New(cfg Config) (*Refresher, error) {
	if cfg.Source == nil {
		return nil, errors.New("loader: source is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("loader: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Refresher{
		source:   cfg.Source,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		interval: cfg.Interval,
		build:    cfg.Build,
	}, nil
}

// Reload runs one fetch, prepare, build and publish cycle.
func (r *Refresher) Reload(ctx context.Context) (*coverage.StationSet, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
	return r.reload(ctx)
}

// TryReload is Reload but fails fast with ErrReloadInProgress instead of
// queueing behind a running reload.
func (r *Refresher) TryReload(ctx context.Context) (*coverage.StationSet, error) {
	if !r.reloadMu.TryLock() {
		return nil, ErrReloadInProgress
	}
	defer r.reloadMu.Unlock()
	return r.reload(ctx)
}

func (r *Refresher) reload(ctx context.Context) (set *coverage.StationSet, err error) {
	start := time.Now()
	rejected := 0
	defer func() {
		elapsed := time.Since(start)
		r.metrics.ObserveReload(elapsed, err)
		r.recordStatus(start, rejected, err)
		if err != nil {
			r.logger.Error("station reload failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		}
	}()

	records, err := r.source.FetchStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stations: %w", err)
	}

	inputs, rejections := feed.Prepare(records, r.logger)
	rejected = len(rejections)
	r.metrics.AddRejected(rejected)

	set, err = coverage.BuildStationSet(ctx, inputs, r.build)
	if err != nil {
		return nil, fmt.Errorf("build station set: %w", err)
	}

	r.store.Replace(set)
	r.metrics.SetStationsLoaded(set.Len())

	r.logger.Info("station set loaded",
		zap.Uint64("generation", set.Generation()),
		zap.Int("stations", set.Len()),
		zap.Int("records", len(records)),
		zap.Int("rejected", rejected),
		zap.Duration("elapsed", time.Since(start)))

	return set, nil
}

func (r *Refresher) recordStatus(start time.Time, rejected int, err error) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	r.status.LastAttempt = start
	r.status.Reloads++
	r.status.Rejected = rejected
	if err != nil {
		r.status.Failures++
		r.status.LastError = err.Error()
		return
	}
	r.status.LastSuccess = start
	r.status.LastError = ""
}

// Status returns a snapshot of reload activity.
func (r *Refresher) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// Run reloads immediately and then every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("performing initial station load", zap.Duration("interval", r.interval))
	r.safeReload(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.safeReload(ctx)
		}
	}
}

// safeReload keeps the loop alive if a reload panics.
func (r *Refresher) safeReload(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic during station reload; will retry next cycle", zap.Any("panic", rec))
		}
	}()
	_, _ = r.Reload(ctx)
}
