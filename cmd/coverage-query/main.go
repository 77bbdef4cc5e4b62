// Command coverage-query answers one coverage question from the command line.
//
// Examples:
//
//	coverage-query -lat 52.2 -lng -1.9
//	coverage-query -file stations.json -lat 52.2 -lng -1.9 -html
//	coverage-query -station 17 -geojson > malvern.geojson
//	coverage-query -layer maximum > max.geojson
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/unklstewy/ads-bcoverage/internal/loader"
	"github.com/unklstewy/ads-bcoverage/internal/logging"
	"github.com/unklstewy/ads-bcoverage/pkg/config"
	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
	"github.com/unklstewy/ads-bcoverage/pkg/feed"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	file := flag.String("file", "", "Read stations from a saved feed document instead of the network")
	lat := flag.Float64("lat", 0, "Latitude of the query point")
	lng := flag.Float64("lng", 0, "Longitude of the query point")
	stationID := flag.String("station", "", "Show one station instead of running a point query")
	layer := flag.String("layer", "", "Print all stations' polygons for a metric (average or maximum)")
	asGeoJSON := flag.Bool("geojson", false, "With -station, print polygons and range rings as GeoJSON")
	asHTML := flag.Bool("html", false, "Print the coverage result as the map popup table")
	asJSON := flag.Bool("json", false, "Print the coverage result as JSON")
	containment := flag.String("containment", "", "Override containment mode (planar or spherical)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *file != "" {
		cfg.Feed.File = *file
	}
	if *containment != "" {
		cfg.Coverage.Containment = *containment
	}
	if cfg.Logging.Level == "" || cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	cfg.Logging.File = ""
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}
	defer logger.Sync()

	source, err := loader.SourceFromConfig(cfg.Feed, logger)
	if err != nil {
		log.Fatalf("Failed to open feed: %v", err)
	}
	defer source.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	records, err := source.FetchStations(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch stations: %v", err)
	}
	inputs, rejected := feed.Prepare(records, logger)
	if len(rejected) > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  %d malformed station records skipped\n", len(rejected))
	}

	set, err := coverage.BuildStationSet(ctx, inputs, coverage.BuildOptions{
		Workers:     cfg.Coverage.BuildWorkers,
		Containment: cfg.Coverage.ContainmentMode(),
	})
	if err != nil {
		log.Fatalf("Failed to build station set: %v", err)
	}

	switch {
	case *stationID != "":
		showStation(set, *stationID, *asGeoJSON, cfg.Coverage)
	case *layer != "":
		metric, ok := coverage.ParseMetric(*layer)
		if !ok {
			log.Fatalf("Unknown layer %q (want average or maximum)", *layer)
		}
		writeJSON(set.LayerFeatureCollection(metric))
	default:
		query(set, coordinates.Geographic{Latitude: *lat, Longitude: *lng}, *asHTML, *asJSON)
	}
}

func query(set *coverage.StationSet, point coordinates.Geographic, asHTML, asJSON bool) {
	res, err := set.FindCoverage(point)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	switch {
	case asJSON:
		writeJSON(res)
	case asHTML:
		fmt.Println(res.HTML())
	default:
		fmt.Printf("Coverage at %s (%d stations loaded)\n\n", point, set.Len())
		fmt.Print(res.String())
		if res.Empty() {
			fmt.Println()
		}
	}
}

func showStation(set *coverage.StationSet, id string, asGeoJSON bool, cfg config.CoverageConfig) {
	st, ok := set.Station(id)
	if !ok {
		log.Fatalf("Station %s not found (or offline)", id)
	}

	if asGeoJSON {
		fc := st.FeatureCollection()
		for _, f := range coverage.RingsFeatureCollection(coverage.ReferenceRings(st.Origin, cfg.RingRadiiNM, cfg.RingSegments)).Features {
			fc.Append(f)
		}
		writeJSON(fc)
		return
	}

	sum := st.Summary()
	fmt.Printf("Station %s: %s\n", st.ID, st.Name)
	fmt.Printf("Position: %s\n", st.Origin)
	fmt.Printf("Average range: mean %.1f nm, peak %.1f nm\n", sum.MeanAverageNM, sum.PeakAverageNM)
	fmt.Printf("Maximum range: mean %.1f nm, peak %.1f nm\n\n", sum.MeanMaximumNM, sum.PeakMaximumNM)
	fmt.Println("Bearing   Ave    Max")
	for i, s := range st.Samples {
		fmt.Printf("  %03.0f°  %5.1f  %5.1f\n", coverage.BucketBearing(i), s.AverageNM, s.MaximumNM)
	}
}

func writeJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}
