package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Intersection is the pixel window a line crosses and the positions at which
// the line is sampled.
type Intersection struct {
	// BBox is pixel-aligned and in the grid's CRS.
	BBox orb.Bound `json:"bbox"`
	// MinCol and MinRow are the grid indices of BBox.Min.
	MinCol int `json:"min_col"`
	MinRow int `json:"min_row"`
	Width  int `json:"width"`
	Height int `json:"height"`
	// Xs and Ys are fractional pixel offsets from BBox.Min, ordered from the
	// line's start to its end.
	Xs []float64 `json:"xs"`
	Ys []float64 `json:"ys"`
}

// Subdivisions returns the number of sample positions.
func (ix Intersection) Subdivisions() int { return len(ix.Xs) }

// Intersect computes the pixel-aligned bounding box of line on grid and the
// sample positions along it. samplingFactor sets samples per pixel along the
// longer axis of the box.
func Intersect(line Line, grid Grid, samplingFactor float64) (Intersection, error) {
	if err := validateLine(line, grid); err != nil {
		return Intersection{}, err
	}
	if !(samplingFactor > 0) || math.IsInf(samplingFactor, 0) {
		return Intersection{}, fmt.Errorf("%w: got %g", ErrInvalidSamplingFactor, samplingFactor)
	}

	ax := line.Start[0] - grid.OriginX
	ay := line.Start[1] - grid.OriginY
	bx := line.End[0] - grid.OriginX
	by := line.End[1] - grid.OriginY

	flipX := line.Start[0] >= line.End[0]
	flipY := line.Start[1] >= line.End[1]

	var x1, y1, x2, y2 int
	switch {
	case flipX && flipY:
		// top right to bottom left
		x2, y2 = grid.cellX(bx), grid.cellY(by)
		x1, y1 = grid.cellX(ax)+1, grid.cellY(ay)+1
	case flipX:
		// bottom right to top left
		x2, y1 = grid.cellX(bx), grid.cellY(ay)
		x1, y2 = grid.cellX(ax)+1, grid.cellY(by)+1
	case flipY:
		// top left to bottom right
		x1, y2 = grid.cellX(ax), grid.cellY(by)
		x2, y1 = grid.cellX(bx)+1, grid.cellY(ay)+1
	default:
		x1, y1 = grid.cellX(ax), grid.cellY(ay)
		x2, y2 = grid.cellX(bx)+1, grid.cellY(by)+1
	}

	minCol, maxCol := min(x1, x2), max(x1, x2)
	minRow, maxRow := min(y1, y2), max(y1, y2)
	width := maxCol - minCol
	height := maxRow - minRow

	n := subdivisions(width, height, samplingFactor)

	return Intersection{
		BBox: orb.Bound{
			Min: orb.Point{
				float64(minCol)*grid.ResX + grid.OriginX,
				float64(minRow)*grid.ResY + grid.OriginY,
			},
			Max: orb.Point{
				float64(maxCol)*grid.ResX + grid.OriginX,
				float64(maxRow)*grid.ResY + grid.OriginY,
			},
		},
		MinCol: minCol,
		MinRow: minRow,
		Width:  width,
		Height: height,
		Xs:     linspace(ax/grid.ResX-float64(minCol), bx/grid.ResX-float64(minCol), n),
		Ys:     linspace(ay/grid.ResY-float64(minRow), by/grid.ResY-float64(minRow), n),
	}, nil
}

func validateLine(line Line, grid Grid) error {
	if !SameCRS(line.CRS, grid.CRS) {
		return &CoordinateSystemMismatchError{LineCRS: line.CRS, GridCRS: grid.CRS}
	}
	if !finitePoint(line.Start) || !finitePoint(line.End) {
		return &GeometryError{Reason: "non-finite coordinate"}
	}
	if line.Start.Equal(line.End) {
		return &DegenerateLineError{Point: line.Start}
	}
	extent := grid.Extent()
	for _, p := range []orb.Point{line.Start, line.End} {
		if !extent.Contains(p) {
			return &GeometryError{Reason: fmt.Sprintf("point (%g, %g) outside grid extent", p[0], p[1])}
		}
	}
	return nil
}

// subdivisions is round(max(width, height) * factor), never less than one.
func subdivisions(width, height int, factor float64) int {
	n := int(math.Round(float64(max(width, height)) * factor))
	return max(n, 1)
}

// linspace returns n evenly spaced values from start to stop inclusive. A
// single value is the start.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
