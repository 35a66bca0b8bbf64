package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSampler struct {
	calls  int
	sample Sample
	err    error
}

func (c *countingSampler) Point(_ context.Context, _, _ float64, _ string) (Sample, error) {
	c.calls++
	return c.sample, c.err
}

type mapCache struct {
	data   map[SampleKey]Sample
	getErr error
	sets   int
}

func newMapCache() *mapCache { return &mapCache{data: map[SampleKey]Sample{}} }

func (m *mapCache) Get(_ context.Context, key SampleKey) (Sample, bool, error) {
	if m.getErr != nil {
		return Sample{}, false, m.getErr
	}
	s, ok := m.data[key]
	return s, ok, nil
}

func (m *mapCache) Set(_ context.Context, key SampleKey, s Sample) error {
	m.sets++
	m.data[key] = s
	return nil
}

func TestCachedPointSampler_Hit(t *testing.T) {
	inner := &countingSampler{sample: Sample{Value: 1.5, Valid: true}}
	cached := NewCachedPointSampler(inner, newMapCache(), "dtm_05m", discardLogger())

	for range 3 {
		s, err := cached.Point(context.Background(), 1, 2, "EPSG:28992")
		require.NoError(t, err)
		assert.Equal(t, 1.5, s.Value)
	}
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedPointSampler_EquivalentCRSShareEntry(t *testing.T) {
	inner := &countingSampler{sample: Sample{Value: 1.5, Valid: true}}
	cached := NewCachedPointSampler(inner, newMapCache(), "dtm_05m", discardLogger())

	_, _ = cached.Point(context.Background(), 1, 2, "EPSG:28992")
	_, _ = cached.Point(context.Background(), 1, 2, "urn:ogc:def:crs:EPSG::28992")
	assert.Equal(t, 1, inner.calls)
}

func TestCachedPointSampler_MissingNotCached(t *testing.T) {
	inner := &countingSampler{sample: Sample{}}
	cache := newMapCache()
	cached := NewCachedPointSampler(inner, cache, "dtm_05m", discardLogger())

	_, _ = cached.Point(context.Background(), 1, 2, "EPSG:28992")
	_, _ = cached.Point(context.Background(), 1, 2, "EPSG:28992")
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cache.sets)
}

func TestCachedPointSampler_CacheErrorFallsThrough(t *testing.T) {
	inner := &countingSampler{sample: Sample{Value: 2, Valid: true}}
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	cached := NewCachedPointSampler(inner, cache, "dtm_05m", discardLogger())

	s, err := cached.Point(context.Background(), 1, 2, "EPSG:28992")
	require.NoError(t, err)
	assert.True(t, s.Valid)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedPointSampler_InnerError(t *testing.T) {
	inner := &countingSampler{err: errors.New("boom")}
	cache := newMapCache()
	cached := NewCachedPointSampler(inner, cache, "dtm_05m", discardLogger())

	_, err := cached.Point(context.Background(), 1, 2, "EPSG:28992")
	require.Error(t, err)
	assert.Zero(t, cache.sets)
}
