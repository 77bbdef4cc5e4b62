// Package coverage turns per-bearing range statistics of ADS-B ground
// stations into coverage polygons and answers which stations cover a point.
//
// A station reports one BearingSample per 10° bucket. BuildStationPolygons
// projects each bucket's average and maximum range along its bearing and
// joins the results into two closed rings. Membership queries test only the
// average ring; the maximum ring is for display.
package coverage

import (
	"errors"
	"fmt"
	"math"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
)

const (
	// SampleCount is the number of bearing buckets reported per station.
	SampleCount = 36

	// BucketWidthDeg is the angular width of a bearing bucket.
	BucketWidthDeg = 360.0 / SampleCount
)

var (
	// ErrInvalidSampleCount is returned when a station does not report
	// exactly SampleCount bearing samples.
	ErrInvalidSampleCount = errors.New("invalid sample count")

	// ErrInvalidSample is returned for a negative or non-finite range.
	ErrInvalidSample = errors.New("invalid sample")
)

// BearingSample is the reception range reported for one bearing bucket.
type BearingSample struct {
	// BearingDeg is the bucket bearing as reported by the feed. It is
	// informational: polygon vertices are placed at 10×index degrees.
	BearingDeg float64 `json:"bearing"`

	// AverageNM is the average received range in nautical miles.
	AverageNM float64 `json:"ave"`

	// MaximumNM is the maximum received range in nautical miles.
	MaximumNM float64 `json:"max"`
}

// BucketBearing returns the bearing of bucket index i in degrees.
func BucketBearing(i int) float64 {
	return float64(i) * BucketWidthDeg
}

// BuildStationPolygons projects the 36 samples around origin and returns the
// average-range and maximum-range polygons, vertex i lying at bearing 10×i.
//
// The bearing is derived from the sample position, never from
// BearingSample.BearingDeg; callers must supply the buckets in order starting
// at 0°.
func BuildStationPolygons(origin coordinates.Geographic, samples []BearingSample) (average, maximum Polygon, err error) {
	if len(samples) != SampleCount {
		return Polygon{}, Polygon{}, fmt.Errorf("%w: got %d, want %d",
			ErrInvalidSampleCount, len(samples), SampleCount)
	}

	aveRing := make([]coordinates.Geographic, SampleCount)
	maxRing := make([]coordinates.Geographic, SampleCount)
	for i, s := range samples {
		bearing := BucketBearing(i)
		aveRing[i] = coordinates.DestinationPoint(origin, s.AverageNM, bearing)
		maxRing[i] = coordinates.DestinationPoint(origin, s.MaximumNM, bearing)
	}

	return newPolygon(aveRing), newPolygon(maxRing), nil
}

// validateSamples checks ranges before projection so NaN never reaches the
// trigonometry.
func validateSamples(samples []BearingSample) error {
	if len(samples) != SampleCount {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidSampleCount, len(samples), SampleCount)
	}
	for i, s := range samples {
		if !validRange(s.AverageNM) {
			return fmt.Errorf("%w: bucket %d average %v", ErrInvalidSample, i, s.AverageNM)
		}
		if !validRange(s.MaximumNM) {
			return fmt.Errorf("%w: bucket %d maximum %v", ErrInvalidSample, i, s.MaximumNM)
		}
	}
	return nil
}

// validRange accepts any finite, non-negative range. NaN fails v >= 0.
func validRange(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
