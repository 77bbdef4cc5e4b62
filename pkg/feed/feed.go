// Package feed reads the station performance feed: one record per ADS-B ground
// station with its position and per-bearing reception ranges.
//
// The feed is a JSON array:
//
//	[{"id": 17, "name": "Malvern", "online": true,
//	  "pos": {"lat": 52.1, "lng": -2.3},
//	  "perf": [{"ave": 61.2, "max": 143.0}, ... 36 entries ...]}, ...]
//
// Records are validated and converted to coverage.StationInput before they
// reach the coverage package.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

// ErrMalformedRecord is returned when a feed record fails shape validation.
var ErrMalformedRecord = errors.New("malformed feed record")

// DataSource is the interface that all station feed providers must implement.
type DataSource interface {
	// FetchStations returns every record currently published by the feed,
	// in feed order.
	FetchStations(ctx context.Context) ([]Record, error)

	// Close cleanly shuts down the data source.
	Close() error
}

// Record is one station in the feed.
type Record struct {
	ID     StationID   `json:"id"`
	Name   string      `json:"name"`
	Online *bool       `json:"online"`
	Pos    *Position   `json:"pos"`
	Perf   []PerfEntry `json:"perf"`
}

// Position is the station location in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PerfEntry is the reception range for one bearing bucket, in nautical miles.
type PerfEntry struct {
	Ave float64 `json:"ave"`
	Max float64 `json:"max"`

	// Bearing is present in some feed versions. It is only checked against
	// the bucket position, never used to place vertices.
	Bearing *float64 `json:"bearing,omitempty"`
}

// StationID accepts both numeric and string IDs.
type StationID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *StationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StationID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("station id: %w", err)
	}
	*id = StationID(n.String())
	return nil
}

// IsOnline reports the online flag. Records without the flag count as online;
// only an explicit false excludes a station.
func (r Record) IsOnline() bool {
	return r.Online == nil || *r.Online
}

// Validate checks the record shape before it is handed to the coverage core.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if r.Pos == nil {
		return fmt.Errorf("%w: station %s has no position", ErrMalformedRecord, r.ID)
	}
	if err := coverage.ValidateInput(r.ToStationInput()); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return nil
}

// BearingMismatches returns the bucket indexes whose reported bearing differs
// from 10×index. Positional bearings are still used; callers log these.
func (r Record) BearingMismatches() []int {
	var out []int
	for i, p := range r.Perf {
		if p.Bearing == nil {
			continue
		}
		diff := math.Abs(coordinates.NormalizeAzimuth(*p.Bearing) - coverage.BucketBearing(i))
		if diff > 1e-6 && math.Abs(diff-360) > 1e-6 {
			out = append(out, i)
		}
	}
	return out
}

// ToStationInput converts the record for the coverage builder.
func (r Record) ToStationInput() coverage.StationInput {
	in := coverage.StationInput{
		ID:      string(r.ID),
		Name:    r.Name,
		Online:  r.IsOnline(),
		Samples: make([]coverage.BearingSample, len(r.Perf)),
	}
	if r.Pos != nil {
		in.Origin = coordinates.Geographic{Latitude: r.Pos.Lat, Longitude: r.Pos.Lng}
	}
	for i, p := range r.Perf {
		bearing := coverage.BucketBearing(i)
		if p.Bearing != nil {
			bearing = *p.Bearing
		}
		in.Samples[i] = coverage.BearingSample{BearingDeg: bearing, AverageNM: p.Ave, MaximumNM: p.Max}
	}
	return in
}

// Rejection records a feed record dropped by Prepare.
type Rejection struct {
	ID  string
	Err error
}

// Prepare filters offline records, validates the rest and converts them to
// coverage inputs in feed order. Invalid records are returned as rejections
// and logged; they never reach the coverage core.
func Prepare(records []Record, logger *zap.Logger) ([]coverage.StationInput, []Rejection) {
	if logger == nil {
		logger = zap.NewNop()
	}

	inputs := make([]coverage.StationInput, 0, len(records))
	var rejected []Rejection
	seen := make(map[StationID]bool, len(records))

	for i, r := range records {
		if !r.IsOnline() {
			continue
		}
		if err := r.Validate(); err != nil {
			id := string(r.ID)
			if id == "" {
				id = "#" + strconv.Itoa(i)
			}
			logger.Warn("rejecting feed record", zap.String("station", id), zap.Error(err))
			rejected = append(rejected, Rejection{ID: id, Err: err})
			continue
		}
		// Stations are addressed by id, so only the first record with an id is kept.
		if seen[r.ID] {
			err := fmt.Errorf("%w: %w: %s", ErrMalformedRecord, coverage.ErrDuplicateStation, r.ID)
			logger.Warn("rejecting feed record", zap.String("station", string(r.ID)), zap.Error(err))
			rejected = append(rejected, Rejection{ID: string(r.ID), Err: err})
			continue
		}
		seen[r.ID] = true

		if idx := r.BearingMismatches(); len(idx) > 0 {
			logger.Warn("feed bearings differ from bucket positions; using positional bearings",
				zap.String("station", string(r.ID)), zap.Ints("buckets", idx))
		}
		inputs = append(inputs, r.ToStationInput())
	}

	return inputs, rejected
}

// Decode parses a feed document.
func Decode(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return records, nil
}
