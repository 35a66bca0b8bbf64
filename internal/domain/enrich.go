package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"
)

// ParseRawLocation deserializes a RawEvent's value into a Location.
func ParseRawLocation(raw RawEvent) (Location, error) {
	var rec RawLocationRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Location{}, fmt.Errorf("parse raw location: %w", err)
	}

	key := strings.TrimSpace(string(rec.LocationKey))
	if key == "" {
		return Location{}, errors.New("parse raw location: location_key is required")
	}
	if rec.X == nil || rec.Y == nil {
		return Location{}, fmt.Errorf("parse raw location %s: x and y are required", key)
	}
	p := orb.Point{*rec.X, *rec.Y}
	if !finitePoint(p) {
		return Location{}, fmt.Errorf("parse raw location %s: non-finite coordinate", key)
	}
	if strings.TrimSpace(rec.CRS) == "" {
		return Location{}, fmt.Errorf("parse raw location %s: crs is required", key)
	}

	loc := Location{
		Key:        key,
		Point:      p,
		CRS:        NormalizeCRS(rec.CRS),
		ReceivedAt: raw.Timestamp,
		RawPayload: raw.Value,
	}

	switch {
	case rec.Lon != nil && rec.Lat != nil:
		if *rec.Lat < -90 || *rec.Lat > 90 || *rec.Lon < -180 || *rec.Lon > 180 {
			return Location{}, fmt.Errorf("parse raw location %s: lon/lat out of range", key)
		}
		loc.WGS84 = &orb.Point{*rec.Lon, *rec.Lat}
	case rec.Lon != nil || rec.Lat != nil:
		return Location{}, fmt.Errorf("parse raw location %s: lon and lat must be given together", key)
	}

	return loc, nil
}

// EnrichLocation samples the surface level for loc and attaches the H3 cell of
// its WGS84 position. A nil sampler leaves the surface level unset. Sampling
// failures are logged and recorded in SurfaceSource, never dropped.
func EnrichLocation(ctx context.Context, loc Location, sampler PointSampler, cellRes int, logger *slog.Logger) EnrichedLocation {
	out := EnrichedLocation{
		LocationKey: loc.Key,
		X:           loc.Point[0],
		Y:           loc.Point[1],
		CRS:         loc.CRS,
	}
	if loc.WGS84 != nil {
		lon, lat := loc.WGS84[0], loc.WGS84[1]
		out.Lon, out.Lat = &lon, &lat
		out.Cell = cellFor(lat, lon, cellRes, loc.Key, logger)
	}

	if sampler != nil {
		s, err := sampler.Point(ctx, loc.Point[0], loc.Point[1], loc.CRS)
		switch {
		case err != nil:
			logger.Warn("surface level sampling failed",
				"location_key", loc.Key,
				"x", loc.Point[0],
				"y", loc.Point[1],
				"error", err,
			)
			out.SurfaceSource = SurfaceFailed
		case s.Valid:
			v := s.Value
			out.SurfaceLevel = &v
			out.SurfaceSource = SurfaceFromCoverage
		default:
			out.SurfaceSource = SurfaceMissing
		}
	}

	out.ProcessedAt = clock.Now()
	return out
}

func cellFor(lat, lon float64, res int, key string, logger *slog.Logger) string {
	if res < 0 || res > 15 {
		return ""
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), res)
	if err != nil {
		logger.Debug("h3 cell lookup failed", "location_key", key, "error", err)
		return ""
	}
	return cell.String()
}
