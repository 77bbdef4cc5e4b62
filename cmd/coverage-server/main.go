// Command coverage-server serves station coverage polygons and point coverage
// queries over HTTP, refreshing station data from the feed on a schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unklstewy/ads-bcoverage/internal/auth"
	"github.com/unklstewy/ads-bcoverage/internal/loader"
	"github.com/unklstewy/ads-bcoverage/internal/logging"
	"github.com/unklstewy/ads-bcoverage/internal/metrics"
	"github.com/unklstewy/ads-bcoverage/internal/server"
	"github.com/unklstewy/ads-bcoverage/pkg/config"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

var configPath = flag.String("config", "configs/config.json", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting coverage server",
		zap.String("config", *configPath),
		zap.String("feed", feedDescription(cfg.Feed)),
		zap.String("containment", cfg.Coverage.Containment))

	collector, err := metrics.New(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	source, err := loader.SourceFromConfig(cfg.Feed, logger)
	if err != nil {
		return fmt.Errorf("feed source: %w", err)
	}
	defer source.Close()

	store := coverage.NewStore()

	refresher, err := loader.New(loader.Config{
		Source:   source,
		Store:    store,
		Metrics:  collector,
		Logger:   logger,
		Interval: cfg.Feed.RefreshInterval(),
		Build: coverage.BuildOptions{
			Workers:     cfg.Coverage.BuildWorkers,
			Containment: cfg.Coverage.ContainmentMode(),
		},
	})
	if err != nil {
		return err
	}

	var querier *coverage.CachedQuerier
	if cfg.Coverage.QueryCacheSize > 0 {
		querier, err = coverage.NewCachedQuerier(store, cfg.Coverage.QueryCacheSize)
		if err != nil {
			return fmt.Errorf("query cache: %w", err)
		}
	}

	authSvc := auth.NewService(auth.Config{
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		JWTSecret:         cfg.Auth.JWTSecret,
		TokenDuration:     cfg.Auth.TokenDuration(),
	})
	if !authSvc.Enabled() {
		logger.Info("admin login disabled; set auth.admin_password_hash and a JWT secret to enable forced reloads")
	}

	srv := server.New(server.Options{
		Store:          store,
		Querier:        querier,
		Reloader:       refresher,
		Auth:           authSvc,
		Metrics:        collector,
		Logger:         logger,
		RingRadiiNM:    cfg.Coverage.RingRadiiNM,
		RingSegments:   cfg.Coverage.RingSegments,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go refresher.Run(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", httpServer.Addr), zap.Bool("tls", cfg.Server.TLSEnabled))
		var err error
		if cfg.Server.TLSEnabled {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func feedDescription(cfg config.FeedConfig) string {
	if cfg.File != "" {
		return "file:" + cfg.File
	}
	return cfg.URL
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config path]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Environment overrides: ADS_BCOVERAGE_PORT, ADS_BCOVERAGE_FEED_URL, ADS_BCOVERAGE_FEED_KEY,")
		fmt.Fprintln(os.Stderr, "ADS_BCOVERAGE_JWT_SECRET, ADS_BCOVERAGE_ADMIN_PASSWORD_HASH, ADS_BCOVERAGE_LOG_LEVEL")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
}
