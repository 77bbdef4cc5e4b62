package coverage

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
)

var (
	// ErrDuplicateStation is returned when two stations share an ID.
	ErrDuplicateStation = errors.New("duplicate station")

	// ErrNoStations is returned by queries made before any station set has
	// been loaded.
	ErrNoStations = errors.New("no station set loaded")
)

// StationSet is the immutable collection of stations from one feed load.
// It keeps feed order, which is the order coverage results are reported in.
type StationSet struct {
	stations    []*Station
	byID        map[string]*Station
	containment Containment
	generation  uint64
	loadedAt    time.Time
}

// BuildOptions controls BuildStationSet.
type BuildOptions struct {
	// Workers bounds the number of stations built concurrently.
	// Zero means GOMAXPROCS.
	Workers int

	// Containment is the test used by the set's membership queries.
	Containment Containment
}

// NewStationSet wraps already built stations.
func NewStationSet(stations []*Station, c Containment) (*StationSet, error) {
	set := &StationSet{
		stations:    make([]*Station, 0, len(stations)),
		byID:        make(map[string]*Station, len(stations)),
		containment: c,
		loadedAt:    time.Now().UTC(),
	}
	for _, s := range stations {
		if _, ok := set.byID[s.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStation, s.ID)
		}
		set.byID[s.ID] = s
		set.stations = append(set.stations, s)
	}
	return set, nil
}

// BuildStationSet builds a station for every online input and returns them as
// one set. Stations are built concurrently but the set keeps input order.
// Any failing input fails the whole set; offline inputs are skipped.
func BuildStationSet(ctx context.Context, inputs []StationInput, opts BuildOptions) (*StationSet, error) {
	online := make([]StationInput, 0, len(inputs))
	for _, in := range inputs {
		if in.Online {
			online = append(online, in)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	built := make([]*Station, len(online))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range online {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := NewStation(in)
			if err != nil {
				return err
			}
			built[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewStationSet(built, opts.Containment)
}

// Stations returns the stations in feed order. The slice must not be modified.
func (s *StationSet) Stations() []*Station {
	return s.stations
}

// Len returns the number of stations.
func (s *StationSet) Len() int {
	return len(s.stations)
}

// Station looks up a station by ID.
func (s *StationSet) Station(id string) (*Station, bool) {
	st, ok := s.byID[id]
	return st, ok
}

// Containment returns the test used by FindCoverage.
func (s *StationSet) Containment() Containment {
	return s.containment
}

// Generation is assigned by the Store that published the set. Zero means the
// set was never published.
func (s *StationSet) Generation() uint64 {
	return s.generation
}

// LoadedAt returns when the set was built.
func (s *StationSet) LoadedAt() time.Time {
	return s.loadedAt
}

// FindCoverage validates point and returns the stations covering it.
func (s *StationSet) FindCoverage(point coordinates.Geographic) (Result, error) {
	if err := point.Validate(); err != nil {
		return Result{}, err
	}
	return findCoverage(point, s.stations, s.containment), nil
}

// Store publishes the current StationSet. Sets are swapped whole, so readers
// always see a complete collection.
type Store struct {
	current    atomic.Pointer[StationSet]
	generation atomic.Uint64

	mu          sync.Mutex
	subscribers map[chan *StationSet]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		subscribers: make(map[chan *StationSet]struct{}),
	}
}

// Load returns the current set, or nil if none has been published.
func (s *Store) Load() *StationSet {
	return s.current.Load()
}

// Replace publishes set and notifies subscribers. The store takes ownership of
// set and stamps its generation; a set must be published at most once. A nil
// set is ignored and the current set stays published.
func (s *Store) Replace(set *StationSet) {
	if set == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set.generation = s.generation.Add(1)
	s.current.Store(set)

	for ch := range s.subscribers {
		// Keep only the newest set for slow subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- set
	}
}

// Subscribe returns a channel that receives each newly published set and a
// function that cancels the subscription.
func (s *Store) Subscribe() (<-chan *StationSet, func()) {
	ch := make(chan *StationSet, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

// FindCoverage queries the current set.
func (s *Store) FindCoverage(point coordinates.Geographic) (Result, error) {
	set := s.Load()
	if set == nil {
		return Result{}, ErrNoStations
	}
	return set.FindCoverage(point)
}
