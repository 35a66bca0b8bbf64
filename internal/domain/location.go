package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// LocationKey accepts both JSON numbers and strings, since monitoring well
// identifiers arrive as integers from some sources and as codes from others.
type LocationKey string

func (k *LocationKey) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*k = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = LocationKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("location key: %w", err)
	}
	*k = LocationKey(n.String())
	return nil
}

// RawLocationRecord is the JSON payload published for each monitoring location.
// X and Y are in CRS, which must match the coverage grid. Lon and Lat are the
// optional WGS84 position.
type RawLocationRecord struct {
	LocationKey LocationKey `json:"location_key"`
	X           *float64    `json:"x"`
	Y           *float64    `json:"y"`
	CRS         string      `json:"crs"`
	Lon         *float64    `json:"lon,omitempty"`
	Lat         *float64    `json:"lat,omitempty"`
}

// Location is a parsed monitoring location.
type Location struct {
	Key        string
	Point      orb.Point
	CRS        string
	WGS84      *orb.Point // lon, lat
	ReceivedAt time.Time
	RawPayload []byte
}

// EnrichedLocation is published to the sink topic.
type EnrichedLocation struct {
	LocationKey   string    `json:"location_key"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	CRS           string    `json:"crs"`
	Lon           *float64  `json:"lon,omitempty"`
	Lat           *float64  `json:"lat,omitempty"`
	SurfaceLevel  *float64  `json:"surface_level"`
	SurfaceSource string    `json:"surface_source,omitempty"` // "coverage", "missing", "failed"
	Cell          string    `json:"h3_cell,omitempty"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// Surface level outcomes.
const (
	SurfaceFromCoverage = "coverage"
	SurfaceMissing      = "missing"
	SurfaceFailed       = "failed"
)
