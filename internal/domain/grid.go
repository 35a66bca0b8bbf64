package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Grid is the native geometry of a coverage layer. It is read-only after
// construction and safe to share between goroutines.
type Grid struct {
	OriginX float64 `json:"origin_x"` // lower-left x
	OriginY float64 `json:"origin_y"` // lower-left y
	ResX    float64 `json:"res_x"`
	ResY    float64 `json:"res_y"`
	Width   int     `json:"width"`  // native pixel columns
	Height  int     `json:"height"` // native pixel rows
	CRS     string  `json:"crs"`
}

// NewGrid derives a Grid from a native extent (lx, ly)-(hx, hy) and its pixel
// counts cx by cy.
func NewGrid(lx, ly, hx, hy float64, cx, cy int, crs string) (Grid, error) {
	for _, v := range []float64{lx, ly, hx, hy} {
		if !isFinite(v) {
			return Grid{}, fmt.Errorf("%w: non-finite extent", ErrInvalidGrid)
		}
	}
	if cx <= 0 || cy <= 0 {
		return Grid{}, fmt.Errorf("%w: pixel counts %dx%d", ErrInvalidGrid, cx, cy)
	}
	if hx <= lx || hy <= ly {
		return Grid{}, fmt.Errorf("%w: empty extent (%g %g, %g %g)", ErrInvalidGrid, lx, ly, hx, hy)
	}
	norm := NormalizeCRS(crs)
	if norm == "" {
		return Grid{}, fmt.Errorf("%w: crs is required", ErrInvalidGrid)
	}

	return Grid{
		OriginX: lx,
		OriginY: ly,
		ResX:    (hx - lx) / float64(cx),
		ResY:    (hy - ly) / float64(cy),
		Width:   cx,
		Height:  cy,
		CRS:     norm,
	}, nil
}

// Extent returns the native bounds covered by the grid.
func (g Grid) Extent() orb.Bound {
	return orb.Bound{
		Min: orb.Point{g.OriginX, g.OriginY},
		Max: orb.Point{
			g.OriginX + float64(g.Width)*g.ResX,
			g.OriginY + float64(g.Height)*g.ResY,
		},
	}
}

// cellX returns the column index containing grid-local x. The far edge of
// the extent belongs to the last column.
func (g Grid) cellX(localX float64) int {
	return clampCell(int(math.Floor(localX/g.ResX)), g.Width)
}

// cellY returns the row index (from the bottom) containing grid-local y.
func (g Grid) cellY(localY float64) int {
	return clampCell(int(math.Floor(localY/g.ResY)), g.Height)
}

func clampCell(i, n int) int {
	return min(max(i, 0), n-1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
