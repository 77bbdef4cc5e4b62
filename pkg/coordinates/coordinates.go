// Package coordinates provides spherical-earth helpers for station coverage:
// great-circle destination projection, distance and bearing, all in
// nautical miles and decimal degrees.
package coordinates

import (
	"errors"
	"fmt"
	"math"
)

// Constants for coordinate calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusNM is the earth radius used for range projection, in nautical miles.
	EarthRadiusNM = 3443.92

	// EarthRadiusKm is the Earth's radius in kilometers (mean radius)
	EarthRadiusKm = 6371.0

	// KmPerNauticalMile converts nautical miles to kilometers
	KmPerNauticalMile = 1.852

	// MetersPerNauticalMile converts nautical miles to meters
	MetersPerNauticalMile = 1852.0
)

// ErrInvalidCoordinate is returned when a latitude or longitude is outside
// its valid range or is not a finite number.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Geographic represents a position on Earth's surface.
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64 `json:"lat"`

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64 `json:"lng"`
}

// ToRadians converts the Geographic coordinates to radians.
// Returns (latRad, lonRad).
func (g Geographic) ToRadians() (float64, float64) {
	return g.Latitude * DegreesToRadians, g.Longitude * DegreesToRadians
}

// Validate reports ErrInvalidCoordinate if the position is out of range.
func (g Geographic) Validate() error {
	if math.IsNaN(g.Latitude) || math.IsInf(g.Latitude, 0) ||
		g.Latitude < -90 || g.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, g.Latitude)
	}
	if math.IsNaN(g.Longitude) || math.IsInf(g.Longitude, 0) ||
		g.Longitude < -180 || g.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, g.Longitude)
	}
	return nil
}

func (g Geographic) String() string {
	return fmt.Sprintf("%.4f,%.4f", g.Latitude, g.Longitude)
}

// NormalizeAzimuth ensures azimuth is in the range [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	return az
}

// DestinationPoint returns the point reached by travelling distanceNM nautical
// miles from origin along the great circle with the given initial bearing.
// Bearing is in degrees clockwise from north and may be any real value.
//
// The sphere radius is EarthRadiusNM. A zero distance returns the origin.
func DestinationPoint(origin Geographic, distanceNM, bearingDeg float64) Geographic {
	lat1, lon1 := origin.ToRadians()
	theta := bearingDeg * DegreesToRadians
	delta := distanceNM / EarthRadiusNM

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) +
		math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Geographic{
		Latitude:  lat2 * RadiansToDegrees,
		Longitude: lon2 * RadiansToDegrees,
	}
}

// Bearing calculates the initial bearing (forward azimuth) from one point to another.
// Returns bearing in degrees (0-360), where 0/360 = North, 90 = East, 180 = South, 270 = West.
func Bearing(from, to Geographic) float64 {
	lat1, lon1 := from.ToRadians()
	lat2, lon2 := to.ToRadians()

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return NormalizeAzimuth(math.Atan2(y, x) * RadiansToDegrees)
}

// DistanceNauticalMiles calculates the great-circle distance between two points.
// Uses the Haversine formula on the mean earth radius, the same model web map
// libraries use for their distance readouts.
func DistanceNauticalMiles(from, to Geographic) float64 {
	lat1Rad, lon1Rad := from.ToRadians()
	lat2Rad, lon2Rad := to.ToRadians()

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c / KmPerNauticalMile
}

// NauticalMilesToMeters converts a range in nautical miles to meters.
func NauticalMilesToMeters(nm float64) float64 {
	return nm * MetersPerNauticalMile
}
