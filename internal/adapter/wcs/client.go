// Package wcs implements domain.Coverage against an OGC Web Coverage Service
// (version 1.0.0, KVP encoding).
package wcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openearth/coverage-etl/internal/domain"
	"github.com/openearth/coverage-etl/internal/observability"
	"github.com/openearth/coverage-etl/internal/raster"
)

const (
	serviceVersion = "1.0.0"
	maxBodyBytes   = 256 << 20
)

// ErrUpstream marks failures reported by the WCS server.
var ErrUpstream = errors.New("wcs upstream error")

// Options configures a Client.
type Options struct {
	URL      string
	Coverage string
	Format   string
	Username string
	Password string
	Timeout  time.Duration
}

// Client implements domain.Coverage using WCS DescribeCoverage and
// GetCoverage requests.
type Client struct {
	opts       Options
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a WCS client for a single coverage.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("wcs: url is required")
	}
	if strings.TrimSpace(opts.Coverage) == "" {
		return nil, errors.New("wcs: coverage is required")
	}
	if opts.Format == "" {
		opts.Format = raster.FormatArcGrid
	}
	if raster.Canonical(opts.Format) == "" {
		return nil, fmt.Errorf("wcs: unsupported format %q", opts.Format)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		opts:       opts,
		httpClient: newOutbound(opts.Timeout),
		metrics:    metrics,
		logger:     logger,
	}, nil
}

func newOutbound(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// CacheKey identifies the coverage this client serves.
func (c *Client) CacheKey() string {
	return c.opts.URL + "|" + c.opts.Coverage
}

// Describe returns the native grid of the coverage.
func (c *Client) Describe(ctx context.Context) (domain.Grid, error) {
	d, err := c.DescribeCoverage(ctx)
	if err != nil {
		return domain.Grid{}, err
	}
	return d.Grid, nil
}

// DescribeCoverage fetches and parses the full coverage description.
func (c *Client) DescribeCoverage(ctx context.Context) (Descriptor, error) {
	params := url.Values{
		"service":  {"WCS"},
		"version":  {serviceVersion},
		"request":  {"DescribeCoverage"},
		"coverage": {c.opts.Coverage},
	}
	body, _, err := c.get(ctx, "describe", params)
	if err != nil {
		return Descriptor{}, err
	}
	d, err := parseDescription(body, c.opts.Coverage)
	if err != nil {
		return Descriptor{}, err
	}
	if len(d.Formats) > 0 && !containsFold(d.Formats, c.opts.Format) {
		c.logger.Warn("configured format not advertised by coverage",
			"coverage", d.Name, "format", c.opts.Format, "advertised", d.Formats)
	}
	c.logger.Debug("coverage described",
		"coverage", d.Name,
		"crs", d.Grid.CRS,
		"width", d.Grid.Width,
		"height", d.Grid.Height,
		"resx", d.Grid.ResX,
		"resy", d.Grid.ResY,
	)
	return d, nil
}

// GetCoverage fetches the raster window described by req.
func (c *Client) GetCoverage(ctx context.Context, req domain.CoverageRequest) (domain.Raster, error) {
	params := url.Values{
		"service":  {"WCS"},
		"version":  {serviceVersion},
		"request":  {"GetCoverage"},
		"coverage": {c.opts.Coverage},
		"crs":      {req.CRS},
		"bbox":     {formatBBox(req)},
		"width":    {strconv.Itoa(req.Width)},
		"height":   {strconv.Itoa(req.Height)},
		"format":   {c.opts.Format},
	}
	body, contentType, err := c.get(ctx, "getcoverage", params)
	if err != nil {
		return nil, err
	}
	if strings.Contains(contentType, "xml") {
		c.metrics.CoverageRequestErrors.WithLabelValues("getcoverage").Inc()
		if msg, ok := exceptionMessage(body); ok {
			return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
		}
		return nil, fmt.Errorf("%w: unexpected content type %s", ErrUpstream, contentType)
	}

	band, err := raster.Decode(c.opts.Format, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode coverage: %w", err)
	}
	return band, nil
}

func (c *Client) get(ctx context.Context, op string, params url.Values) ([]byte, string, error) {
	u, err := c.requestURL(params)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	if c.opts.Username != "" && c.opts.Password != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.CoverageRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.CoverageRequestErrors.WithLabelValues(op).Inc()
		return nil, "", fmt.Errorf("wcs %s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.CoverageRequestErrors.WithLabelValues(op).Inc()
		return nil, "", fmt.Errorf("wcs %s read body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.CoverageRequestErrors.WithLabelValues(op).Inc()
		if msg, ok := exceptionMessage(body); ok {
			return nil, "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
		}
		return nil, "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(body, 512))
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) requestURL(params url.Values) (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", fmt.Errorf("parse wcs url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func formatBBox(req domain.CoverageRequest) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{
		f(req.BBox.Min[0]), f(req.BBox.Min[1]), f(req.BBox.Max[0]), f(req.BBox.Max[1]),
	}, ",")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
