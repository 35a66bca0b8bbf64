package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Raster is a fetched coverage window. Row 0 is the northern row.
type Raster interface {
	Dims() (cols, rows int)
	// At returns the cell value and false when the cell holds NoData.
	At(col, row int) (float64, bool)
}

// GeoRaster is a Raster that knows where it lies. Windows whose footprint
// does not match the requested bbox are rejected.
type GeoRaster interface {
	Raster
	Footprint() (orb.Bound, bool)
}

// ProfilePoint is one sample of a raster along a line.
type ProfilePoint struct {
	Distance float64  `json:"distance"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Col      int      `json:"col"`
	Row      int      `json:"row"`
	Value    *float64 `json:"value"`
}

// Profile samples r at the positions in ix. The raster must have exactly the
// window size the intersection requested.
func Profile(r Raster, line Line, ix Intersection) ([]ProfilePoint, error) {
	if err := checkDims(r, ix); err != nil {
		return nil, err
	}
	_, rows := r.Dims()
	cols := ix.Width
	n := len(ix.Xs)
	length := line.Length()

	points := make([]ProfilePoint, n)
	for i := range n {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		col := clampIndex(ix.Xs[i], cols)
		row := rows - 1 - clampIndex(ix.Ys[i], rows)

		p := ProfilePoint{
			Distance: length * t,
			X:        line.Start[0] + (line.End[0]-line.Start[0])*t,
			Y:        line.Start[1] + (line.End[1]-line.Start[1])*t,
			Col:      col,
			Row:      row,
		}
		if v, ok := r.At(col, row); ok {
			p.Value = &v
		}
		points[i] = p
	}
	return points, nil
}

// ValueAt returns the value of the raster cell that contains p. The raster
// must be the window ix describes on grid.
func ValueAt(r Raster, ix Intersection, grid Grid, p orb.Point) (float64, bool, error) {
	if err := checkDims(r, ix); err != nil {
		return 0, false, err
	}
	col := clampIndex((p[0]-ix.BBox.Min[0])/grid.ResX, ix.Width)
	row := ix.Height - 1 - clampIndex((p[1]-ix.BBox.Min[1])/grid.ResY, ix.Height)
	v, ok := r.At(col, row)
	return v, ok, nil
}

func checkDims(r Raster, ix Intersection) error {
	if r == nil {
		return fmt.Errorf("%w: nil raster", ErrRasterMismatch)
	}
	cols, rows := r.Dims()
	if cols != ix.Width || rows != ix.Height {
		return &RasterMismatchError{
			WantCols: ix.Width, WantRows: ix.Height,
			GotCols: cols, GotRows: rows,
		}
	}
	geo, ok := r.(GeoRaster)
	if !ok {
		return nil
	}
	got, ok := geo.Footprint()
	if !ok || sameFootprint(got, ix) {
		return nil
	}
	return &RasterMismatchError{
		WantCols: ix.Width, WantRows: ix.Height,
		GotCols: cols, GotRows: rows,
		WantBBox: ix.BBox, GotBBox: got, Shifted: true,
	}
}

// sameFootprint allows corners to differ by less than half a pixel.
func sameFootprint(got orb.Bound, ix Intersection) bool {
	tolX := (ix.BBox.Max[0] - ix.BBox.Min[0]) / float64(ix.Width) / 2
	tolY := (ix.BBox.Max[1] - ix.BBox.Min[1]) / float64(ix.Height) / 2
	return math.Abs(got.Min[0]-ix.BBox.Min[0]) < tolX &&
		math.Abs(got.Max[0]-ix.BBox.Max[0]) < tolX &&
		math.Abs(got.Min[1]-ix.BBox.Min[1]) < tolY &&
		math.Abs(got.Max[1]-ix.BBox.Max[1]) < tolY
}

// clampIndex floors a fractional pixel offset into [0, size).
func clampIndex(v float64, size int) int {
	i := int(math.Floor(v))
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}
