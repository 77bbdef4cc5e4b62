package coverage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
)

var testOrigin = coordinates.Geographic{Latitude: 52.0, Longitude: -1.0}

func uniformSamples(ave, max float64) []BearingSample {
	samples := make([]BearingSample, SampleCount)
	for i := range samples {
		samples[i] = BearingSample{BearingDeg: BucketBearing(i), AverageNM: ave, MaximumNM: max}
	}
	return samples
}

func angleDiff(a, b float64) float64 {
	d := math.Abs(coordinates.NormalizeAzimuth(a) - coordinates.NormalizeAzimuth(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

func TestBuildStationPolygonsSampleCount(t *testing.T) {
	for _, n := range []int{0, 1, 35, 37, 72} {
		samples := make([]BearingSample, n)
		_, _, err := BuildStationPolygons(testOrigin, samples)
		assert.ErrorIs(t, err, ErrInvalidSampleCount, "n=%d", n)
	}

	ave, max, err := BuildStationPolygons(testOrigin, uniformSamples(50, 80))
	require.NoError(t, err)
	assert.Equal(t, SampleCount, ave.Len())
	assert.Equal(t, SampleCount, max.Len())
}

func TestBuildStationPolygonsPositionalBearing(t *testing.T) {
	samples := make([]BearingSample, SampleCount)
	for i := range samples {
		samples[i] = BearingSample{
			// Deliberately wrong: the bearing field must be ignored.
			BearingDeg: float64((SampleCount - i) * 7),
			AverageNM:  40 + float64(i),
			MaximumNM:  100 + float64(i),
		}
	}

	ave, max, err := BuildStationPolygons(testOrigin, samples)
	require.NoError(t, err)

	for i := 0; i < SampleCount; i++ {
		want := float64(10 * i)

		v := ave.Vertex(i)
		assert.InDelta(t, 0, angleDiff(coordinates.Bearing(testOrigin, v), want), 1e-6, "average vertex %d bearing", i)
		assert.InDelta(t, samples[i].AverageNM, coordinates.DistanceNauticalMiles(testOrigin, v), samples[i].AverageNM*0.002)

		m := max.Vertex(i)
		assert.InDelta(t, 0, angleDiff(coordinates.Bearing(testOrigin, m), want), 1e-6, "maximum vertex %d bearing", i)
		assert.InDelta(t, samples[i].MaximumNM, coordinates.DistanceNauticalMiles(testOrigin, m), samples[i].MaximumNM*0.002)
	}
}

func TestBuildStationPolygonsZeroRange(t *testing.T) {
	samples := uniformSamples(50, 80)
	samples[9].AverageNM = 0

	ave, _, err := BuildStationPolygons(testOrigin, samples)
	require.NoError(t, err)

	v := ave.Vertex(9)
	assert.InDelta(t, testOrigin.Latitude, v.Latitude, 1e-9)
	assert.InDelta(t, testOrigin.Longitude, v.Longitude, 1e-9)
}

func TestPolygonRingIsClosedCopy(t *testing.T) {
	ave, _, err := BuildStationPolygons(testOrigin, uniformSamples(50, 80))
	require.NoError(t, err)

	ring := ave.Ring()
	require.Len(t, ring, SampleCount+1)
	assert.Equal(t, ring[0], ring[len(ring)-1])
	assert.InDelta(t, ave.Vertex(0).Longitude, ring[0][0], 1e-12)
	assert.InDelta(t, ave.Vertex(0).Latitude, ring[0][1], 1e-12)

	vs := ave.Vertices()
	vs[0] = coordinates.Geographic{}
	assert.NotEqual(t, coordinates.Geographic{}, ave.Vertex(0), "Vertices must return a copy")
}

func TestNewStationValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      StationInput
		wantErr error
	}{
		{
			name:    "Latitude out of range",
			in:      StationInput{ID: "a", Online: true, Origin: coordinates.Geographic{Latitude: 95}, Samples: uniformSamples(50, 80)},
			wantErr: coordinates.ErrInvalidCoordinate,
		},
		{
			name:    "Too few samples",
			in:      StationInput{ID: "b", Online: true, Origin: testOrigin, Samples: uniformSamples(50, 80)[:35]},
			wantErr: ErrInvalidSampleCount,
		},
		{
			name: "Negative range",
			in: func() StationInput {
				s := uniformSamples(50, 80)
				s[3].AverageNM = -1
				return StationInput{ID: "c", Online: true, Origin: testOrigin, Samples: s}
			}(),
			wantErr: ErrInvalidSample,
		},
		{
			name: "NaN range",
			in: func() StationInput {
				s := uniformSamples(50, 80)
				s[30].MaximumNM = math.NaN()
				return StationInput{ID: "d", Online: true, Origin: testOrigin, Samples: s}
			}(),
			wantErr: ErrInvalidSample,
		},
		{
			name: "Infinite range",
			in: func() StationInput {
				s := uniformSamples(50, 80)
				s[7].MaximumNM = math.Inf(1)
				return StationInput{ID: "e", Online: true, Origin: testOrigin, Samples: s}
			}(),
			wantErr: ErrInvalidSample,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStation(tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewStationAcceptsLongRanges(t *testing.T) {
	s := uniformSamples(50, 80)
	s[12].MaximumNM = 1200
	s[13].AverageNM = 1500
	st, err := NewStation(StationInput{ID: "far", Online: true, Origin: testOrigin, Samples: s})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, st.Summary().PeakMaximumNM)
	assert.False(t, FindCoverage(testOrigin, []*Station{st}).Empty())
}

func TestStationSummary(t *testing.T) {
	samples := uniformSamples(50, 80)
	samples[0].AverageNM = 140
	samples[0].MaximumNM = 260

	st, err := NewStation(StationInput{ID: "s", Name: "S", Online: true, Origin: testOrigin, Samples: samples})
	require.NoError(t, err)

	sum := st.Summary()
	assert.InDelta(t, 50+90.0/36, sum.MeanAverageNM, 1e-9)
	assert.InDelta(t, 140, sum.PeakAverageNM, 1e-9)
	assert.InDelta(t, 80+180.0/36, sum.MeanMaximumNM, 1e-9)
	assert.InDelta(t, 260, sum.PeakMaximumNM, 1e-9)
}
