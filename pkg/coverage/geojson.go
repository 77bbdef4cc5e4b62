package coverage

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Metric names a station polygon.
type Metric string

const (
	MetricAverage Metric = "average"
	MetricMaximum Metric = "maximum"
)

// ParseMetric accepts "average"/"ave" and "maximum"/"max".
func ParseMetric(s string) (Metric, bool) {
	switch s {
	case "average", "ave":
		return MetricAverage, true
	case "maximum", "max":
		return MetricMaximum, true
	}
	return "", false
}

// Polygon returns the station polygon for metric m.
func (s *Station) Polygon(m Metric) Polygon {
	if m == MetricMaximum {
		return s.Maximum
	}
	return s.Average
}

// Feature returns the polygon as a GeoJSON feature without properties. The
// exterior ring is wound counter-clockwise as RFC 7946 requires; vertices are
// stored in bearing order, which is clockwise.
func (p Polygon) Feature() *geojson.Feature {
	ring := p.Ring().Clone()
	if ring.Orientation() == orb.CW {
		ring.Reverse()
	}
	return geojson.NewFeature(orb.Polygon{ring})
}

// Feature returns station polygon m as a GeoJSON feature.
func (s *Station) Feature(m Metric) *geojson.Feature {
	f := s.Polygon(m).Feature()
	f.ID = s.ID + "/" + string(m)
	f.Properties["station_id"] = s.ID
	f.Properties["station_name"] = s.Name
	f.Properties["metric"] = string(m)
	return f
}

// FeatureCollection returns both polygons of the station plus its origin point.
func (s *Station) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(s.Feature(MetricAverage))
	fc.Append(s.Feature(MetricMaximum))

	origin := geojson.NewFeature(orb.Point{s.Origin.Longitude, s.Origin.Latitude})
	origin.ID = s.ID
	origin.Properties["station_id"] = s.ID
	origin.Properties["station_name"] = s.Name
	fc.Append(origin)
	return fc
}

// LayerFeatureCollection returns metric m polygons for every station in the set.
func (s *StationSet) LayerFeatureCollection(m Metric) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, st := range s.stations {
		fc.Append(st.Feature(m))
	}
	return fc
}

// RingsFeatureCollection returns reference rings as GeoJSON features.
func RingsFeatureCollection(rings []Ring) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range rings {
		f := r.Polygon.Feature()
		f.Properties["radius_nm"] = r.RadiusNM
		fc.Append(f)
	}
	return fc
}
