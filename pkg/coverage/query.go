package coverage

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
)

// NoCoverage is the text shown when no station covers a point.
const NoCoverage = "No coverage"

// Entry is one station covering a queried point.
type Entry struct {
	StationID   string `json:"id"`
	StationName string `json:"name"`
	DistanceNM  int    `json:"distance_nm"`
}

// Result lists the stations whose average polygon contains Point, in station
// iteration order. An empty result means no coverage and is not an error.
type Result struct {
	Point   coordinates.Geographic `json:"point"`
	Entries []Entry                `json:"stations"`
}

// Empty reports whether no station covers the point.
func (r Result) Empty() bool {
	return len(r.Entries) == 0
}

// FindCoverage returns every station whose average polygon contains point,
// using the planar containment test. Stations are visited in slice order and
// the result keeps that order.
func FindCoverage(point coordinates.Geographic, stations []*Station) Result {
	return findCoverage(point, stations, Planar)
}

func findCoverage(point coordinates.Geographic, stations []*Station, c Containment) Result {
	res := Result{Point: point}
	for _, s := range stations {
		// Maximum polygons are display-only.
		if !s.Average.Contains(point, c) {
			continue
		}
		res.Entries = append(res.Entries, Entry{
			StationID:   s.ID,
			StationName: s.Name,
			DistanceNM:  s.DistanceTo(point),
		})
	}
	return res
}

func roundNM(nm float64) int {
	if nm <= 0 || math.IsNaN(nm) {
		return 0
	}
	return int(math.Round(nm))
}

// String renders the result as a two-column text table, or NoCoverage.
func (r Result) String() string {
	if r.Empty() {
		return NoCoverage
	}
	width := 0
	for _, e := range r.Entries {
		if len(e.StationName) > width {
			width = len(e.StationName)
		}
	}
	var b strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%-*s %5d nm\n", width, e.StationName, e.DistanceNM)
	}
	return b.String()
}

// HTML renders the result as the map popup table, or NoCoverage.
func (r Result) HTML() string {
	if r.Empty() {
		return NoCoverage
	}
	var b strings.Builder
	b.WriteString("<table><tbody>")
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "<tr><td>%s</td><td ALIGN=RIGHT>%d</td></tr>",
			html.EscapeString(e.StationName), e.DistanceNM)
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// Clone returns a copy that shares no memory with r.
func (r Result) Clone() Result {
	out := Result{Point: r.Point}
	if r.Entries != nil {
		out.Entries = make([]Entry, len(r.Entries))
		copy(out.Entries, r.Entries)
	}
	return out
}
