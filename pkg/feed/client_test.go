package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		Multiplier:        2.0,
		RespectRetryAfter: false,
	}
}

func TestClientFetchStations(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedJSON(2)))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		URL:               server.URL + "/station_perf.php",
		APIKey:            "secret",
		RequestsPerMinute: 6000,
		Retry:             fastRetry(),
	})
	defer client.Close()

	records, err := client.FetchStations(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "secret", gotKey)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(feedJSON(1)))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL, RequestsPerMinute: 6000, Retry: fastRetry()})
	records, err := client.FetchStations(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{URL: server.URL, RequestsPerMinute: 6000, Retry: fastRetry()})
	_, err := client.FetchStations(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Contains(t, se.Body, "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientRateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.Header().Set("X-Rate-Limit-Limit", "10")
		w.Header().Set("X-Rate-Limit-Remaining", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	retry := fastRetry()
	retry.MaxRetries = 0
	client := NewClient(ClientConfig{URL: server.URL, RequestsPerMinute: 6000, Retry: retry})

	_, err := client.FetchStations(context.Background())
	require.Error(t, err)

	rle, ok := IsRateLimitError(err)
	require.True(t, ok, "Expected rate limit error, got %v", err)
	assert.Equal(t, time.Second, rle.RetryAfter)
	assert.Equal(t, 10, rle.Headers.Limit)
	assert.Equal(t, 0, rle.Headers.Remaining)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"broken"`))
	}))
	defer server.Close()

	retry := fastRetry()
	retry.MaxRetries = 0
	client := NewClient(ClientConfig{URL: server.URL, RequestsPerMinute: 6000, Retry: retry})
	_, err := client.FetchStations(context.Background())
	assert.ErrorContains(t, err, "failed to parse station feed")
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"Empty", "", 0},
		{"Seconds", "30", 30 * time.Second},
		{"Zero", "0", 0},
		{"Garbage", "soon", 0},
		{"Past date", "Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, parseRetryAfter(h))
		})
	}

	t.Run("Future date", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))
		d := parseRetryAfter(h)
		assert.Greater(t, d, 50*time.Second)
		assert.LessOrEqual(t, d, time.Minute)
	})
}

func TestExtractRateLimitHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "100")
	h.Set("X-RateLimit-Reset", "1700000000")

	rlh := extractRateLimitHeaders(h)
	assert.Equal(t, 100, rlh.Limit)
	assert.Equal(t, -1, rlh.Remaining)
	assert.Equal(t, int64(1700000000), rlh.Reset.Unix())
}
