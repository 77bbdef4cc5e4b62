package coordinates

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

// TestDestinationPointZeroDistance verifies that a zero distance returns the origin.
func TestDestinationPointZeroDistance(t *testing.T) {
	origins := []Geographic{
		{Latitude: 52.0, Longitude: -1.0},
		{Latitude: 0.0, Longitude: 0.0},
		{Latitude: -33.9, Longitude: 151.2},
		{Latitude: 64.1, Longitude: -21.9},
	}
	bearings := []float64{0, 10, 90, 180, 270, 350, -45, 725}

	for _, origin := range origins {
		for _, bearing := range bearings {
			got := DestinationPoint(origin, 0, bearing)
			if math.Abs(got.Latitude-origin.Latitude) > epsilon ||
				math.Abs(got.Longitude-origin.Longitude) > epsilon {
				t.Errorf("DestinationPoint(%v, 0, %.0f) = %v, want origin", origin, bearing, got)
			}
		}
	}
}

// TestDestinationPointCardinal tests projection along the cardinal bearings.
func TestDestinationPointCardinal(t *testing.T) {
	origin := Geographic{Latitude: 52.0, Longitude: -1.0}
	// One degree of arc on the projection sphere
	oneDegreeNM := EarthRadiusNM * DegreesToRadians

	tests := []struct {
		name    string
		bearing float64
		check   func(Geographic) bool
	}{
		{
			name:    "Due north adds one degree of latitude",
			bearing: 0,
			check: func(g Geographic) bool {
				return math.Abs(g.Latitude-53.0) < 1e-6 && math.Abs(g.Longitude+1.0) < 1e-6
			},
		},
		{
			name:    "Due south subtracts one degree of latitude",
			bearing: 180,
			check: func(g Geographic) bool {
				return math.Abs(g.Latitude-51.0) < 1e-6 && math.Abs(g.Longitude+1.0) < 1e-6
			},
		},
		{
			name:    "Due east increases longitude",
			bearing: 90,
			check: func(g Geographic) bool {
				return g.Longitude > -1.0 && math.Abs(g.Latitude-52.0) < 0.02
			},
		},
		{
			name:    "Due west decreases longitude",
			bearing: 270,
			check: func(g Geographic) bool {
				return g.Longitude < -1.0 && math.Abs(g.Latitude-52.0) < 0.02
			},
		},
		{
			name:    "Bearing 450 equals bearing 90",
			bearing: 450,
			check: func(g Geographic) bool {
				east := DestinationPoint(origin, oneDegreeNM, 90)
				return math.Abs(g.Latitude-east.Latitude) < 1e-9 && math.Abs(g.Longitude-east.Longitude) < 1e-9
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DestinationPoint(origin, oneDegreeNM, tt.bearing)
			if !tt.check(got) {
				t.Errorf("DestinationPoint(%v, %.2f, %.0f) = %v", origin, oneDegreeNM, tt.bearing, got)
			}
		})
	}
}

// TestDestinationPointRoundTrip checks that the distance back to the origin
// matches the projected distance within the spherical model tolerance.
func TestDestinationPointRoundTrip(t *testing.T) {
	origins := []Geographic{
		{Latitude: 52.0, Longitude: -1.0},
		{Latitude: 35.5, Longitude: -80.8},
		{Latitude: -45.0, Longitude: 170.0},
	}
	distances := []float64{1, 50, 100, 250, 300}

	for _, origin := range origins {
		for _, d := range distances {
			for bearing := 0.0; bearing < 360; bearing += 10 {
				dest := DestinationPoint(origin, d, bearing)
				got := DistanceNauticalMiles(origin, dest)
				// The projector and the distance formula use slightly different radii.
				tolerance := d*0.002 + 1e-6
				if math.Abs(got-d) > tolerance {
					t.Errorf("distance(%v, dest(%.0f nm @ %.0f°)) = %.4f, want %.4f ±%.4f",
						origin, d, bearing, got, d, tolerance)
				}
			}
		}
	}
}

// TestDestinationPointBearing checks that the initial bearing back from the
// origin matches the requested bearing.
func TestDestinationPointBearing(t *testing.T) {
	origin := Geographic{Latitude: 40.0, Longitude: -74.0}
	for bearing := 0.0; bearing < 360; bearing += 10 {
		dest := DestinationPoint(origin, 120, bearing)
		got := Bearing(origin, dest)
		diff := math.Abs(got - bearing)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 1e-6 {
			t.Errorf("Bearing to dest(%.0f°) = %.6f", bearing, got)
		}
	}
}

// TestDistanceNauticalMiles tests the haversine distance against known values.
func TestDistanceNauticalMiles(t *testing.T) {
	tests := []struct {
		name      string
		from, to  Geographic
		want      float64
		tolerance float64
	}{
		{
			name: "Same point",
			from: Geographic{Latitude: 52.0, Longitude: -1.0},
			to:   Geographic{Latitude: 52.0, Longitude: -1.0},
			want: 0,
		},
		{
			name:      "One degree of latitude is about 60 nm",
			from:      Geographic{Latitude: 10.0, Longitude: 20.0},
			to:        Geographic{Latitude: 11.0, Longitude: 20.0},
			want:      60.04,
			tolerance: 0.05,
		},
		{
			name:      "London to Paris",
			from:      Geographic{Latitude: 51.4700, Longitude: -0.4543},
			to:        Geographic{Latitude: 49.0097, Longitude: 2.5479},
			want:      187.35,
			tolerance: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceNauticalMiles(tt.from, tt.to)
			if math.Abs(got-tt.want) > tt.tolerance+epsilon {
				t.Errorf("DistanceNauticalMiles = %.3f, want %.3f (±%.3f)", got, tt.want, tt.tolerance)
			}
		})
	}
}

// TestValidate tests coordinate range validation.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		g       Geographic
		wantErr bool
	}{
		{"Valid midlatitude", Geographic{Latitude: 52.0, Longitude: -1.0}, false},
		{"North pole", Geographic{Latitude: 90, Longitude: 0}, false},
		{"Antimeridian", Geographic{Latitude: 0, Longitude: -180}, false},
		{"Latitude too large", Geographic{Latitude: 90.1, Longitude: 0}, true},
		{"Latitude too small", Geographic{Latitude: -91, Longitude: 0}, true},
		{"Longitude too large", Geographic{Latitude: 0, Longitude: 180.5}, true},
		{"NaN latitude", Geographic{Latitude: math.NaN(), Longitude: 0}, true},
		{"Infinite longitude", Geographic{Latitude: 0, Longitude: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCoordinate) {
					t.Errorf("Expected ErrInvalidCoordinate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

// TestNormalizeAzimuth tests azimuth normalization
func TestNormalizeAzimuth(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{0.0, 0.0},
		{359.0, 359.0},
		{360.0, 0.0},
		{361.0, 1.0},
		{-1.0, 359.0},
		{-90.0, 270.0},
		{720.0, 0.0},
	}

	for _, tt := range tests {
		got := NormalizeAzimuth(tt.input)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("NormalizeAzimuth(%.1f) = %.1f, want %.1f", tt.input, got, tt.want)
		}
	}
}
