// Command station-browser is a table view of the loaded receiver stations
// and their per-bearing range samples.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unklstewy/ads-bcoverage/internal/loader"
	"github.com/unklstewy/ads-bcoverage/internal/logging"
	"github.com/unklstewy/ads-bcoverage/pkg/config"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

const loaderTimeout = 2 * time.Minute

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	file := flag.String("file", "", "Read stations from a saved feed document instead of the network")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("station-browser version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *file != "" {
		cfg.Feed.File = *file
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fileLogger, err := logging.NewFile(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}
	defer fileLogger.Sync()

	logs := NewLogPanel(200)
	logger := logs.Tee(fileLogger)

	source, err := loader.SourceFromConfig(cfg.Feed, logger)
	if err != nil {
		log.Fatalf("Failed to open feed: %v", err)
	}
	defer source.Close()

	store := coverage.NewStore()
	refresher, err := loader.New(loader.Config{
		Source:   source,
		Store:    store,
		Logger:   logger,
		Interval: cfg.Feed.RefreshInterval(),
		Build: coverage.BuildOptions{
			Workers:     cfg.Coverage.BuildWorkers,
			Containment: cfg.Coverage.ContainmentMode(),
		},
	})
	if err != nil {
		log.Fatalf("Failed to create loader: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(refresher, store, logs, logger)
	if err := app.Run(ctx); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// printHelp prints usage information
func printHelp() {
	fmt.Println("station-browser - Terminal browser for ADS-B receiver stations")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  station-browser [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to configuration file (default: configs/config.json)")
	fmt.Println("  -file string")
	fmt.Println("        Read stations from a saved feed document")
	fmt.Println("  -version")
	fmt.Println("        Show version information")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("KEYBOARD SHORTCUTS:")
	fmt.Println("    ↑/↓            Select station")
	fmt.Println("    PgUp/PgDn      Fast scroll")
	fmt.Println("    r              Reload stations now")
	fmt.Println("    q or Esc       Quit application")
}
