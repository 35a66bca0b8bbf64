package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSampler struct {
	sample Sample
	err    error
	gotCRS string
}

func (s *stubSampler) Point(_ context.Context, _, _ float64, crs string) (Sample, error) {
	s.gotCRS = crs
	return s.sample, s.err
}

func TestParseRawLocation(t *testing.T) {
	received := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("numeric key with wgs84", func(t *testing.T) {
		data := []byte(`{"location_key":1042,"x":136204.5,"y":455331.2,"crs":"EPSG:28992","lon":5.12,"lat":52.09}`)
		loc, err := ParseRawLocation(RawEvent{Value: data, Timestamp: received})
		require.NoError(t, err)

		assert.Equal(t, "1042", loc.Key)
		assert.Equal(t, orb.Point{136204.5, 455331.2}, loc.Point)
		assert.Equal(t, "EPSG:28992", loc.CRS)
		require.NotNil(t, loc.WGS84)
		assert.Equal(t, orb.Point{5.12, 52.09}, *loc.WGS84)
		assert.Equal(t, received, loc.ReceivedAt)
		assert.Equal(t, data, loc.RawPayload)
	})

	t.Run("string key without wgs84", func(t *testing.T) {
		data := []byte(`{"location_key":"B38B0207","x":1,"y":2,"crs":"28992"}`)
		loc, err := ParseRawLocation(RawEvent{Value: data})
		require.NoError(t, err)
		assert.Equal(t, "B38B0207", loc.Key)
		assert.Equal(t, "EPSG:28992", loc.CRS)
		assert.Nil(t, loc.WGS84)
	})

	errCases := []struct {
		name string
		data string
		want string
	}{
		{"invalid json", `{invalid`, "parse raw location"},
		{"missing key", `{"x":1,"y":2,"crs":"EPSG:28992"}`, "location_key is required"},
		{"missing y", `{"location_key":1,"x":1,"crs":"EPSG:28992"}`, "x and y are required"},
		{"missing crs", `{"location_key":1,"x":1,"y":2}`, "crs is required"},
		{"lon without lat", `{"location_key":1,"x":1,"y":2,"crs":"EPSG:28992","lon":5}`, "lon and lat"},
		{"lat out of range", `{"location_key":1,"x":1,"y":2,"crs":"EPSG:28992","lon":5,"lat":95}`, "out of range"},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRawLocation(RawEvent{Value: []byte(tt.data)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnrichLocation(t *testing.T) {
	fixed := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	wgs := orb.Point{5.12, 52.09}
	loc := Location{Key: "1042", Point: orb.Point{136204.5, 455331.2}, CRS: "EPSG:28992", WGS84: &wgs}

	t.Run("coverage value", func(t *testing.T) {
		sampler := &stubSampler{sample: Sample{Value: -1.37, Valid: true}}
		out := EnrichLocation(context.Background(), loc, sampler, 9, discardLogger())

		assert.Equal(t, "1042", out.LocationKey)
		assert.Equal(t, 136204.5, out.X)
		require.NotNil(t, out.SurfaceLevel)
		assert.Equal(t, -1.37, *out.SurfaceLevel)
		assert.Equal(t, SurfaceFromCoverage, out.SurfaceSource)
		assert.Equal(t, "EPSG:28992", sampler.gotCRS)
		assert.True(t, strings.HasPrefix(out.Cell, "89"), "resolution 9 cell, got %q", out.Cell)
		require.NotNil(t, out.Lat)
		assert.Equal(t, 52.09, *out.Lat)
		assert.Equal(t, fixed, out.ProcessedAt)
	})

	t.Run("missing value", func(t *testing.T) {
		out := EnrichLocation(context.Background(), loc, &stubSampler{}, 9, discardLogger())
		assert.Nil(t, out.SurfaceLevel)
		assert.Equal(t, SurfaceMissing, out.SurfaceSource)
	})

	t.Run("sampler error degrades", func(t *testing.T) {
		out := EnrichLocation(context.Background(), loc, &stubSampler{err: errors.New("timeout")}, 9, discardLogger())
		assert.Nil(t, out.SurfaceLevel)
		assert.Equal(t, SurfaceFailed, out.SurfaceSource)
		assert.NotEmpty(t, out.Cell)
	})

	t.Run("nil sampler", func(t *testing.T) {
		out := EnrichLocation(context.Background(), loc, nil, 9, discardLogger())
		assert.Empty(t, out.SurfaceSource)
		assert.Equal(t, fixed, out.ProcessedAt)
	})

	t.Run("no wgs84 and invalid resolution", func(t *testing.T) {
		plain := Location{Key: "7", Point: orb.Point{1, 2}, CRS: "EPSG:28992"}
		out := EnrichLocation(context.Background(), plain, nil, 9, discardLogger())
		assert.Empty(t, out.Cell)
		assert.Nil(t, out.Lon)

		out = EnrichLocation(context.Background(), loc, nil, 16, discardLogger())
		assert.Empty(t, out.Cell)
	})
}
