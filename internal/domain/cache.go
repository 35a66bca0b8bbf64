package domain

import (
	"context"
	"log/slog"
)

// SampleKey identifies a cached point sample.
type SampleKey struct {
	Layer string
	CRS   string
	X, Y  float64
}

// ValueCache stores point samples between runs.
type ValueCache interface {
	Get(ctx context.Context, key SampleKey) (Sample, bool, error)
	Set(ctx context.Context, key SampleKey, s Sample) error
}

// CachedPointSampler wraps a PointSampler with a ValueCache. Cache failures
// are logged and fall through to the inner sampler.
type CachedPointSampler struct {
	inner  PointSampler
	cache  ValueCache
	layer  string
	logger *slog.Logger
}

// NewCachedPointSampler creates a cache decorator for samples of layer.
func NewCachedPointSampler(inner PointSampler, cache ValueCache, layer string, logger *slog.Logger) *CachedPointSampler {
	return &CachedPointSampler{inner: inner, cache: cache, layer: layer, logger: logger}
}

func (c *CachedPointSampler) Point(ctx context.Context, x, y float64, crs string) (Sample, error) {
	key := SampleKey{Layer: c.layer, CRS: NormalizeCRS(crs), X: x, Y: y}
	s, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("sample cache get failed", "layer", c.layer, "x", x, "y", y, "error", err)
	} else if ok {
		return s, nil
	}

	s, err = c.inner.Point(ctx, x, y, crs)
	if err != nil {
		return s, err
	}
	// Missing samples are not cached so a later coverage update can fill them.
	if s.Valid {
		if err := c.cache.Set(ctx, key, s); err != nil {
			c.logger.Warn("sample cache set failed", "layer", c.layer, "x", x, "y", y, "error", err)
		}
	}
	return s, nil
}
