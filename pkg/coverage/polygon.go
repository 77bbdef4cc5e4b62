package coverage

import (
	"fmt"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
)

// Containment selects the point-in-polygon test used by membership queries.
type Containment int

const (
	// Planar treats (longitude, latitude) as plane coordinates and ray-casts
	// against the ring, the way web map polygons answer contains(). Points on
	// the boundary count as inside.
	Planar Containment = iota

	// Spherical tests the ring as a loop of great-circle edges.
	Spherical
)

func (c Containment) String() string {
	switch c {
	case Planar:
		return "planar"
	case Spherical:
		return "spherical"
	default:
		return fmt.Sprintf("Containment(%d)", int(c))
	}
}

// ParseContainment parses "planar" or "spherical". An empty string selects Planar.
func ParseContainment(s string) (Containment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "planar":
		return Planar, nil
	case "spherical":
		return Spherical, nil
	default:
		return Planar, fmt.Errorf("unknown containment %q (want planar or spherical)", s)
	}
}

// Polygon is an implicitly closed ring of vertices in bearing order.
// The first vertex is not repeated at the end. A Polygon is never modified
// after construction and is safe for concurrent use.
type Polygon struct {
	vertices []coordinates.Geographic

	// ring is the closed (lng, lat) ring used for planar tests and GeoJSON.
	ring  orb.Ring
	bound orb.Bound

	// loop is nil when the vertices do not span an area on the sphere.
	loop *s2.Loop
}

func newPolygon(vertices []coordinates.Geographic) Polygon {
	p := Polygon{vertices: vertices}
	if len(vertices) == 0 {
		return p
	}

	p.ring = make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		p.ring = append(p.ring, orb.Point{v.Longitude, v.Latitude})
	}
	p.ring = append(p.ring, p.ring[0])
	p.bound = p.ring.Bound()
	p.loop = newLoop(vertices)

	return p
}

// newLoop builds a counter-clockwise s2 loop from clockwise bearing-ordered
// vertices, dropping repeated points.
func newLoop(vertices []coordinates.Geographic) *s2.Loop {
	points := make([]s2.Point, 0, len(vertices))
	for i := len(vertices) - 1; i >= 0; i-- {
		v := vertices[i]
		p := s2.PointFromLatLng(s2.LatLngFromDegrees(v.Latitude, v.Longitude))
		if n := len(points); n > 0 && points[n-1].ApproxEqual(p) {
			continue
		}
		points = append(points, p)
	}
	if n := len(points); n > 1 && points[0].ApproxEqual(points[n-1]) {
		points = points[:n-1]
	}
	if len(points) < 3 {
		return nil
	}

	loop := s2.LoopFromPoints(points)
	loop.Normalize()
	return loop
}

// Len returns the number of vertices.
func (p Polygon) Len() int {
	return len(p.vertices)
}

// Vertex returns vertex i.
func (p Polygon) Vertex(i int) coordinates.Geographic {
	return p.vertices[i]
}

// Vertices returns a copy of the vertices in bearing order.
func (p Polygon) Vertices() []coordinates.Geographic {
	out := make([]coordinates.Geographic, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// Ring returns a closed (longitude, latitude) ring suitable for GeoJSON.
// The returned ring must not be modified.
func (p Polygon) Ring() orb.Ring {
	return p.ring
}

// Bound returns the (longitude, latitude) bounding box of the polygon.
func (p Polygon) Bound() orb.Bound {
	return p.bound
}

// Contains reports whether point lies inside the polygon under the given test.
func (p Polygon) Contains(point coordinates.Geographic, c Containment) bool {
	if len(p.vertices) == 0 {
		return false
	}

	switch c {
	case Spherical:
		if p.loop == nil {
			return false
		}
		return p.loop.ContainsPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(point.Latitude, point.Longitude)))
	default:
		pt := orb.Point{point.Longitude, point.Latitude}
		if !p.bound.Contains(pt) {
			return false
		}
		return planar.RingContains(p.ring, pt)
	}
}
