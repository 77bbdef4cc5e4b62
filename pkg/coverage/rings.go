package coverage

import (
	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
)

// DefaultRingRadiiNM are the reference rings drawn around an isolated station.
var DefaultRingRadiiNM = []float64{100, 200, 300}

// DefaultRingSegments is the vertex count of a reference ring.
const DefaultRingSegments = 72

// MaxRingRadiusNM bounds a configured reference ring radius.
const MaxRingRadiusNM = 1000.0

// RangeRing returns a polygon approximating the circle of radiusNM around
// origin, with vertices at equal bearing steps starting at 0°.
func RangeRing(origin coordinates.Geographic, radiusNM float64, segments int) Polygon {
	if segments < 3 {
		segments = DefaultRingSegments
	}
	step := 360.0 / float64(segments)
	vertices := make([]coordinates.Geographic, segments)
	for i := range vertices {
		vertices[i] = coordinates.DestinationPoint(origin, radiusNM, float64(i)*step)
	}
	return newPolygon(vertices)
}

// Ring is a labelled reference ring.
type Ring struct {
	RadiusNM float64
	Polygon  Polygon
}

// ReferenceRings returns one ring per radius around origin.
func ReferenceRings(origin coordinates.Geographic, radiiNM []float64, segments int) []Ring {
	rings := make([]Ring, 0, len(radiiNM))
	for _, r := range radiiNM {
		if r <= 0 {
			continue
		}
		rings = append(rings, Ring{RadiusNM: r, Polygon: RangeRing(origin, r, segments)})
	}
	return rings
}
