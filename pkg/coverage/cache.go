package coverage

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
)

// DefaultCacheSize is the number of query results kept by a CachedQuerier.
const DefaultCacheSize = 4096

type cacheKey struct {
	generation uint64
	lat, lng   uint64
}

// CachedQuerier answers coverage queries against a Store, remembering recent
// results. Entries are keyed by the exact point and the set generation, so a
// reload never serves results from the previous set.
type CachedQuerier struct {
	store *Store
	cache *lru.Cache[cacheKey, Result]
}

// NewCachedQuerier creates a querier over store holding up to size results.
func NewCachedQuerier(store *Store, size int) (*CachedQuerier, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, Result](size)
	if err != nil {
		return nil, err
	}
	return &CachedQuerier{store: store, cache: cache}, nil
}

// FindCoverage returns the coverage at point and whether it came from the cache.
func (q *CachedQuerier) FindCoverage(point coordinates.Geographic) (Result, bool, error) {
	set := q.store.Load()
	if set == nil {
		return Result{}, false, ErrNoStations
	}

	key := cacheKey{
		generation: set.Generation(),
		lat:        math.Float64bits(point.Latitude),
		lng:        math.Float64bits(point.Longitude),
	}
	if res, ok := q.cache.Get(key); ok {
		return res.Clone(), true, nil
	}

	res, err := set.FindCoverage(point)
	if err != nil {
		return Result{}, false, err
	}
	q.cache.Add(key, res)
	return res.Clone(), false, nil
}

// Len returns the number of cached results.
func (q *CachedQuerier) Len() int {
	return q.cache.Len()
}
