package wcs

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openearth/coverage-etl/internal/domain"
	"github.com/openearth/coverage-etl/internal/observability"
)

// DescribingCoverage is a Coverage that can name the cache slot of its
// description.
type DescribingCoverage interface {
	domain.Coverage
	CacheKey() string
}

// CachedCoverage keeps Describe results in an LRU cache so each sample does
// not cost a DescribeCoverage round trip. GetCoverage is always forwarded.
type CachedCoverage struct {
	inner   DescribingCoverage
	cache   *lru.Cache[string, domain.Grid]
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedCoverage creates a caching decorator holding up to size grids.
func NewCachedCoverage(inner DescribingCoverage, size int, metrics *observability.Metrics, logger *slog.Logger) *CachedCoverage {
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[string, domain.Grid](size)
	return &CachedCoverage{inner: inner, cache: c, metrics: metrics, logger: logger}
}

func (c *CachedCoverage) Describe(ctx context.Context) (domain.Grid, error) {
	key := c.inner.CacheKey()
	if g, ok := c.cache.Get(key); ok {
		c.metrics.DescriptorCache.WithLabelValues("hit").Inc()
		return g, nil
	}
	c.metrics.DescriptorCache.WithLabelValues("miss").Inc()

	g, err := c.inner.Describe(ctx)
	if err != nil {
		return g, err
	}
	c.cache.Add(key, g)
	c.logger.Debug("coverage description cached", "key", key, "crs", g.CRS)
	return g, nil
}

func (c *CachedCoverage) GetCoverage(ctx context.Context, req domain.CoverageRequest) (domain.Raster, error) {
	return c.inner.GetCoverage(ctx, req)
}
