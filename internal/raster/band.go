// Package raster decodes coverage windows returned by a WCS into in-memory
// bands.
package raster

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Band is a single-band raster with row 0 as the northern row.
type Band struct {
	Cols, Rows int
	// Values holds Rows*Cols cells in row-major order.
	Values    []float64
	NoData    float64
	HasNoData bool

	// Georeferencing of the lower-left corner, set when HasGeoref is true.
	XLL, YLL   float64
	CellWidth  float64
	CellHeight float64
	HasGeoref  bool
}

// Footprint returns the area the band covers in its CRS. TIFF bands decoded
// without geotags report false.
func (b *Band) Footprint() (orb.Bound, bool) {
	if !b.HasGeoref {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{b.XLL, b.YLL},
		Max: orb.Point{
			b.XLL + float64(b.Cols)*b.CellWidth,
			b.YLL + float64(b.Rows)*b.CellHeight,
		},
	}, true
}

// Dims returns the column and row counts.
func (b *Band) Dims() (int, int) { return b.Cols, b.Rows }

// At returns the value at (col, row) and false for NoData or out-of-range
// indices.
func (b *Band) At(col, row int) (float64, bool) {
	if col < 0 || row < 0 || col >= b.Cols || row >= b.Rows {
		return 0, false
	}
	v := b.Values[row*b.Cols+col]
	if b.HasNoData && v == b.NoData {
		return v, false
	}
	return v, true
}

func (b *Band) validate() error {
	if b.Cols <= 0 || b.Rows <= 0 {
		return fmt.Errorf("raster: invalid dimensions %dx%d", b.Cols, b.Rows)
	}
	if len(b.Values) != b.Cols*b.Rows {
		return fmt.Errorf("raster: expected %d values, got %d", b.Cols*b.Rows, len(b.Values))
	}
	return nil
}
