package feed

import (
	"context"
	"fmt"
	"os"
)

// StaticSource serves a fixed set of records, typically read from a saved
// copy of the feed.
type StaticSource struct {
	records []Record
}

// NewStaticSource returns a source that always yields records.
func NewStaticSource(records []Record) *StaticSource {
	return &StaticSource{records: records}
}

// LoadFile reads a saved feed document.
func LoadFile(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}
	records, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewStaticSource(records), nil
}

// FetchStations returns a copy of the stored records.
func (s *StaticSource) FetchStations(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Close is a no-op.
func (s *StaticSource) Close() error {
	return nil
}
