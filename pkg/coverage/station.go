package coverage

import (
	"fmt"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
)

// StationInput is the per-station data handed to the core by the feed loader.
type StationInput struct {
	ID      string
	Name    string
	Online  bool
	Origin  coordinates.Geographic
	Samples []BearingSample
}

// Station is a ground station with its derived coverage polygons.
// Stations are built once per load and must not be modified afterwards.
type Station struct {
	ID     string
	Name   string
	Online bool
	Origin coordinates.Geographic

	// Samples holds the 36 bearing buckets in bearing order.
	Samples []BearingSample

	// Average is the average-range polygon, used for membership queries.
	Average Polygon

	// Maximum is the maximum-range polygon, used for display only.
	Maximum Polygon
}

// RangeSummary aggregates a station's bucket ranges.
type RangeSummary struct {
	MeanAverageNM float64 `json:"mean_average_nm"`
	PeakAverageNM float64 `json:"peak_average_nm"`
	MeanMaximumNM float64 `json:"mean_maximum_nm"`
	PeakMaximumNM float64 `json:"peak_maximum_nm"`
}

// ValidateInput checks the origin and samples of in without building anything.
func ValidateInput(in StationInput) error {
	if err := in.Origin.Validate(); err != nil {
		return fmt.Errorf("station %s: %w", in.ID, err)
	}
	if err := validateSamples(in.Samples); err != nil {
		return fmt.Errorf("station %s: %w", in.ID, err)
	}
	return nil
}

// NewStation validates in and builds its polygons.
func NewStation(in StationInput) (*Station, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	samples := make([]BearingSample, len(in.Samples))
	copy(samples, in.Samples)

	average, maximum, err := BuildStationPolygons(in.Origin, samples)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", in.ID, err)
	}

	return &Station{
		ID:      in.ID,
		Name:    in.Name,
		Online:  in.Online,
		Origin:  in.Origin,
		Samples: samples,
		Average: average,
		Maximum: maximum,
	}, nil
}

// DistanceTo returns the great-circle distance from the station to point,
// rounded to the nearest nautical mile.
func (s *Station) DistanceTo(point coordinates.Geographic) int {
	return roundNM(coordinates.DistanceNauticalMiles(s.Origin, point))
}

// Summary returns mean and peak ranges across all buckets.
func (s *Station) Summary() RangeSummary {
	var sum RangeSummary
	if len(s.Samples) == 0 {
		return sum
	}
	for _, b := range s.Samples {
		sum.MeanAverageNM += b.AverageNM
		sum.MeanMaximumNM += b.MaximumNM
		if b.AverageNM > sum.PeakAverageNM {
			sum.PeakAverageNM = b.AverageNM
		}
		if b.MaximumNM > sum.PeakMaximumNM {
			sum.PeakMaximumNM = b.MaximumNM
		}
	}
	n := float64(len(s.Samples))
	sum.MeanAverageNM /= n
	sum.MeanMaximumNM /= n
	return sum
}
