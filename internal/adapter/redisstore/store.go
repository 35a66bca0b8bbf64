// Package redisstore implements domain.ValueCache on Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/openearth/coverage-etl/internal/domain"
	"github.com/openearth/coverage-etl/internal/observability"
)

// Option overrides a client setting.
type Option func(*redis.Options)

// WithPoolSize sets the maximum number of socket connections.
func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

// WithDialTimeout bounds establishing new connections.
func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

// SampleCache stores valid point samples under hashed coordinate keys.
type SampleCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// New connects to addr and verifies the connection with PING. A ttl of zero
// keeps entries until evicted.
func New(ctx context.Context, addr string, ttl time.Duration, metrics *observability.Metrics, opts ...Option) (*SampleCache, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     16,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &SampleCache{rdb: rdb, ttl: ttl, metrics: metrics}, nil
}

// Key returns the Redis key for a sample. Coordinates are rounded to the
// micrometre so float noise does not split entries.
func Key(k domain.SampleKey) string {
	layer := strings.ReplaceAll(strings.TrimSpace(k.Layer), ":", "_")
	sum := xxhash.Sum64String(fmt.Sprintf("%s|%.6f|%.6f", domain.NormalizeCRS(k.CRS), k.X, k.Y))
	return fmt.Sprintf("sample:%s:%016x", layer, sum)
}

// Get returns the cached sample for k. A miss is (Sample{}, false, nil).
func (c *SampleCache) Get(ctx context.Context, k domain.SampleKey) (domain.Sample, bool, error) {
	key := Key(k)
	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		c.metrics.SampleCache.WithLabelValues("miss").Inc()
		return domain.Sample{}, false, nil
	case err != nil:
		c.metrics.SampleCache.WithLabelValues("error").Inc()
		return domain.Sample{}, false, fmt.Errorf("redis GET %q: %w", key, err)
	}

	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		c.metrics.SampleCache.WithLabelValues("error").Inc()
		return domain.Sample{}, false, fmt.Errorf("decode cached sample %q: %w", key, err)
	}
	c.metrics.SampleCache.WithLabelValues("hit").Inc()
	return domain.Sample{Value: v, Valid: true}, true, nil
}

// Set stores s. Samples that are not valid are ignored.
func (c *SampleCache) Set(ctx context.Context, k domain.SampleKey, s domain.Sample) error {
	if !s.Valid {
		return nil
	}
	key := Key(k)
	if err := c.rdb.Set(ctx, key, strconv.FormatFloat(s.Value, 'g', -1, 64), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

// CheckReadiness reports whether Redis answers PING.
func (c *SampleCache) CheckReadiness(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *SampleCache) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
