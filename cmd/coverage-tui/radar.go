package main

import (
	"math"
	"strings"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

// Character aspect ratio correction: terminal characters are ~2:1 (height:width)
// so X distances are doubled to make circles look round.
const aspectRatio = 0.5

// Radar glyphs, in increasing draw priority.
const (
	glyphEmpty   = ' '
	glyphRing    = '·'
	glyphMaximum = '+'
	glyphAverage = '#'
	glyphProbe   = 'x'
	glyphStation = '◉'
)

// radarView projects geographic points onto a character grid centred on a
// station, north up.
type radarView struct {
	width, height int
	center        coordinates.Geographic
	radiusNM      float64
}

// scale returns screen rows per nautical mile.
func (r radarView) scale() float64 {
	maxY := float64(r.height/2 - 1)
	maxX := float64(r.width/2-1) * aspectRatio
	return math.Min(maxX, maxY) / r.radiusNM
}

// project converts p to grid coordinates. ok is false when p falls off the grid.
func (r radarView) project(p coordinates.Geographic) (x, y int, ok bool) {
	if r.radiusNM <= 0 || r.width < 3 || r.height < 3 {
		return 0, 0, false
	}
	distanceNM := coordinates.DistanceNauticalMiles(r.center, p)
	bearingRad := coordinates.Bearing(r.center, p) * coordinates.DegreesToRadians
	screenDist := distanceNM * r.scale()

	// Bearing 0° = North = up = negative Y
	fx := float64(r.width/2) + screenDist*math.Sin(bearingRad)/aspectRatio
	fy := float64(r.height/2) - screenDist*math.Cos(bearingRad)
	x, y = int(math.Round(fx)), int(math.Round(fy))

	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return x, y, false
	}
	return x, y, true
}

type radarGrid [][]rune

func newRadarGrid(width, height int) radarGrid {
	g := make(radarGrid, height)
	for i := range g {
		g[i] = []rune(strings.Repeat(string(glyphEmpty), width))
	}
	return g
}

func (g radarGrid) set(x, y int, ch rune) {
	if y < 0 || y >= len(g) || x < 0 || x >= len(g[y]) {
		return
	}
	if priority(ch) >= priority(g[y][x]) {
		g[y][x] = ch
	}
}

func priority(ch rune) int {
	switch ch {
	case glyphRing:
		return 1
	case glyphMaximum:
		return 2
	case glyphAverage:
		return 3
	case glyphProbe:
		return 4
	case glyphStation:
		return 5
	}
	return 0
}

// line draws between two grid points by stepping along the longer axis.
func (g radarGrid) line(x0, y0, x1, y1 int, ch rune) {
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		g.set(x0, y0, ch)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		g.set(x0+int(math.Round(t*float64(dx))), y0+int(math.Round(t*float64(dy))), ch)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// polygon outlines p. Edges with an off-grid endpoint are skipped.
func (g radarGrid) polygon(r radarView, p coverage.Polygon, ch rune) {
	n := p.Len()
	for i := 0; i < n; i++ {
		x0, y0, ok0 := r.project(p.Vertex(i))
		x1, y1, ok1 := r.project(p.Vertex((i + 1) % n))
		if ok0 && ok1 {
			g.line(x0, y0, x1, y1, ch)
		}
	}
}

// renderRadar draws the station's maximum and average polygons, reference
// rings and an optional probe point.
func renderRadar(r radarView, st *coverage.Station, rings []coverage.Ring, probe *coordinates.Geographic) []string {
	g := newRadarGrid(r.width, r.height)

	for _, ring := range rings {
		n := ring.Polygon.Len()
		for i := 0; i < n; i++ {
			if x, y, ok := r.project(ring.Polygon.Vertex(i)); ok {
				g.set(x, y, glyphRing)
			}
		}
	}
	g.polygon(r, st.Maximum, glyphMaximum)
	g.polygon(r, st.Average, glyphAverage)

	if probe != nil {
		if x, y, ok := r.project(*probe); ok {
			g.set(x, y, glyphProbe)
		}
	}
	if x, y, ok := r.project(st.Origin); ok {
		g.set(x, y, glyphStation)
	}

	lines := make([]string, len(g))
	for i, row := range g {
		lines[i] = string(row)
	}
	return lines
}

// radarRadius picks a display radius that fits the station's maximum range
// and the outermost reference ring.
func radarRadius(st *coverage.Station, rings []coverage.Ring) float64 {
	radius := st.Summary().PeakMaximumNM
	for _, ring := range rings {
		radius = math.Max(radius, ring.RadiusNM)
	}
	if radius <= 0 {
		radius = 50
	}
	return radius * 1.1
}
