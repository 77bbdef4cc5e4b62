package loader

import (
	"time"

	"go.uber.org/zap"

	"github.com/unklstewy/ads-bcoverage/pkg/config"
	"github.com/unklstewy/ads-bcoverage/pkg/feed"
)

// SourceFromConfig returns a file-backed source when cfg.File is set and an
// HTTP feed client otherwise.
func SourceFromConfig(cfg config.FeedConfig, logger *zap.Logger) (feed.DataSource, error) {
	if cfg.File != "" {
		src, err := feed.LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	retry := feed.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	retry.MaxDelay = 2 * time.Minute
	retry.Logger = logger

	return feed.NewClient(feed.ClientConfig{
		URL:               cfg.URL,
		APIKey:            cfg.APIKey,
		Timeout:           cfg.Timeout(),
		RequestsPerMinute: cfg.RequestsPerMinute,
		Retry:             retry,
		Logger:            logger,
	}), nil
}
