package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
)

// Line is a two-point segment in a coverage's native CRS.
type Line struct {
	Start orb.Point `json:"start"`
	End   orb.Point `json:"end"`
	CRS   string    `json:"crs"`
}

// NewLine validates the endpoints and returns a Line.
func NewLine(start, end orb.Point, crs string) (Line, error) {
	if !finitePoint(start) || !finitePoint(end) {
		return Line{}, &GeometryError{Reason: "non-finite coordinate"}
	}
	return Line{Start: start, End: end, CRS: crs}, nil
}

// ParseLineWKT parses a "LINESTRING (x1 y1, x2 y2)" into a Line. Linestrings
// with other than two vertices and non-line geometries are rejected.
func ParseLineWKT(s, crs string) (Line, error) {
	geom, err := wkt.Unmarshal(s)
	if err != nil {
		return Line{}, &GeometryError{Reason: fmt.Sprintf("parse wkt: %v", err)}
	}
	ls, ok := geom.(orb.LineString)
	if !ok {
		return Line{}, &GeometryError{Reason: fmt.Sprintf("expected LineString, got %s", geom.GeoJSONType())}
	}
	if len(ls) != 2 {
		return Line{}, &GeometryError{Reason: fmt.Sprintf("expected 2 points, got %d", len(ls))}
	}
	return NewLine(ls[0], ls[1], crs)
}

// Length returns the planar length of the line in CRS units.
func (l Line) Length() float64 {
	return planar.Distance(l.Start, l.End)
}

// Reverse returns the line with its endpoints swapped.
func (l Line) Reverse() Line {
	return Line{Start: l.End, End: l.Start, CRS: l.CRS}
}

// WKT returns the line as a WKT LINESTRING.
func (l Line) WKT() string {
	return wkt.MarshalString(orb.LineString{l.Start, l.End})
}

// PointWindow returns the diagonal line from (x-buffer, y-buffer) to
// (x+buffer, y+buffer). Intersecting it yields the smallest pixel window that
// holds the point.
func PointWindow(p orb.Point, buffer float64, crs string) (Line, error) {
	if !(buffer > 0) || !isFinite(buffer) {
		return Line{}, &GeometryError{Reason: fmt.Sprintf("point buffer %g must be positive", buffer)}
	}
	return NewLine(
		orb.Point{p[0] - buffer, p[1] - buffer},
		orb.Point{p[0] + buffer, p[1] + buffer},
		crs,
	)
}

// clip returns l with both endpoints clamped into b.
func (l Line) clip(b orb.Bound) Line {
	clamp := func(p orb.Point) orb.Point {
		return orb.Point{
			math.Min(math.Max(p[0], b.Min[0]), b.Max[0]),
			math.Min(math.Max(p[1], b.Min[1]), b.Max[1]),
		}
	}
	return Line{Start: clamp(l.Start), End: clamp(l.End), CRS: l.CRS}
}

func finitePoint(p orb.Point) bool {
	return isFinite(p[0]) && isFinite(p[1])
}
