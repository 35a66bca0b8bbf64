package domain

import (
	"context"

	"github.com/paulmach/orb"
)

// CoverageRequest describes a raster window to fetch from a coverage service.
type CoverageRequest struct {
	BBox   orb.Bound
	Width  int
	Height int
	CRS    string
}

// NewCoverageRequest builds the request for the window of ix on grid.
func NewCoverageRequest(ix Intersection, grid Grid) CoverageRequest {
	return CoverageRequest{
		BBox:   ix.BBox,
		Width:  ix.Width,
		Height: ix.Height,
		CRS:    grid.CRS,
	}
}

// Coverage is a remote raster layer.
type Coverage interface {
	// Describe returns the layer's native grid.
	Describe(ctx context.Context) (Grid, error)

	// GetCoverage fetches a raster window.
	GetCoverage(ctx context.Context, req CoverageRequest) (Raster, error)
}
