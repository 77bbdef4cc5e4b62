package loader

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/ads-bcoverage/pkg/config"
	"github.com/unklstewy/ads-bcoverage/pkg/feed"
)

func TestSourceFromConfig(t *testing.T) {
	t.Run("File source", func(t *testing.T) {
		data, err := json.Marshal(testRecords(2))
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "stations.json")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		cfg := config.DefaultConfig().Feed
		cfg.File = path
		src, err := SourceFromConfig(cfg, nil)
		require.NoError(t, err)
		require.IsType(t, &feed.StaticSource{}, src)

		records, err := src.FetchStations(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("Missing file", func(t *testing.T) {
		cfg := config.DefaultConfig().Feed
		cfg.File = filepath.Join(t.TempDir(), "missing.json")
		_, err := SourceFromConfig(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("HTTP source", func(t *testing.T) {
		src, err := SourceFromConfig(config.DefaultConfig().Feed, nil)
		require.NoError(t, err)
		assert.IsType(t, &feed.Client{}, src)
		assert.NoError(t, src.Close())
	})
}
