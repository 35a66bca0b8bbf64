package domain

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

var (
	// ErrGeometry is wrapped by every GeometryError.
	ErrGeometry = errors.New("invalid line geometry")
	// ErrCRSMismatch is wrapped by every CoordinateSystemMismatchError.
	ErrCRSMismatch = errors.New("coordinate system mismatch")
	// ErrDegenerateLine is wrapped by every DegenerateLineError.
	ErrDegenerateLine = errors.New("degenerate line")
	// ErrRasterMismatch is wrapped by every RasterMismatchError.
	ErrRasterMismatch = errors.New("raster does not match requested window")

	ErrInvalidSamplingFactor = errors.New("sampling factor must be a positive finite number")
	ErrInvalidGrid           = errors.New("invalid grid")
)

// GeometryError reports a line that cannot be intersected with a grid.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string { return "invalid line geometry: " + e.Reason }

func (e *GeometryError) Unwrap() error { return ErrGeometry }

// CoordinateSystemMismatchError reports a line expressed in a different CRS
// than the grid it is intersected with.
type CoordinateSystemMismatchError struct {
	LineCRS string
	GridCRS string
}

func (e *CoordinateSystemMismatchError) Error() string {
	return fmt.Sprintf("line CRS %q does not match grid CRS %q", e.LineCRS, e.GridCRS)
}

func (e *CoordinateSystemMismatchError) Unwrap() error { return ErrCRSMismatch }

// DegenerateLineError reports a zero-length line.
type DegenerateLineError struct {
	Point orb.Point
}

func (e *DegenerateLineError) Error() string {
	return fmt.Sprintf("degenerate line: start equals end at (%g, %g)", e.Point[0], e.Point[1])
}

func (e *DegenerateLineError) Unwrap() error { return ErrDegenerateLine }

// RasterMismatchError reports a fetched raster whose dimensions or footprint
// differ from the window that was requested for it.
type RasterMismatchError struct {
	WantCols, WantRows int
	GotCols, GotRows   int

	// Shifted is set when the sizes match but the footprint does not.
	Shifted bool

	WantBBox, GotBBox orb.Bound
}

func (e *RasterMismatchError) Error() string {
	if e.Shifted {
		return fmt.Sprintf("raster covers %v-%v, requested window is %v-%v",
			e.GotBBox.Min, e.GotBBox.Max, e.WantBBox.Min, e.WantBBox.Max)
	}
	return fmt.Sprintf("raster is %dx%d, requested window is %dx%d",
		e.GotCols, e.GotRows, e.WantCols, e.WantRows)
}

func (e *RasterMismatchError) Unwrap() error { return ErrRasterMismatch }
