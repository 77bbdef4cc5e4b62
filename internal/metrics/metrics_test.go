package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)
	assert.Equal(t, reg, c.Gatherer())

	c.ObserveReload(200*time.Millisecond, nil)
	c.ObserveReload(time.Second, errors.New("feed down"))
	c.ObserveReload(time.Second, errors.New("feed down"))
	c.SetStationsLoaded(42)
	c.AddRejected(3)
	c.AddRejected(0)
	c.ObserveQuery(2, false, nil)
	c.ObserveQuery(0, true, nil)
	c.ObserveQuery(0, false, errors.New("bad point"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ReloadsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ReloadsTotal.WithLabelValues("failure")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.StationsLoaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.StationsRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.QueriesTotal.WithLabelValues("covered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.QueriesTotal.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.QueriesTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHitsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(c.ReloadDuration))
}

func TestCollectorReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.SetStationsLoaded(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(second.StationsLoaded))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveReload(time.Second, nil)
		c.SetStationsLoaded(1)
		c.AddRejected(1)
		c.ObserveQuery(1, true, nil)
	})
	assert.Nil(t, c.Gatherer())
}
