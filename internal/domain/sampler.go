package domain

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
)

// Sample is a single coverage value. Valid is false when the cell holds NoData
// or a value above the sampler's MaxValid threshold.
type Sample struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// PointSampler reads the coverage value at a point.
type PointSampler interface {
	Point(ctx context.Context, x, y float64, crs string) (Sample, error)
}

// SamplerOptions tunes a Sampler.
type SamplerOptions struct {
	// SamplingFactor is the default number of samples per pixel for profiles.
	SamplingFactor float64
	// PointBuffer is the half-width, in CRS units, of the window cut around a
	// point.
	PointBuffer float64
	// MaxValid marks values above it as missing. Zero disables the check.
	MaxValid float64
}

// LineProfile is the result of sampling a coverage along a line.
type LineProfile struct {
	Line         Line           `json:"line"`
	Intersection Intersection   `json:"intersection"`
	Points       []ProfilePoint `json:"points"`
}

// Sampler combines a Coverage with line intersection to extract values.
type Sampler struct {
	coverage Coverage
	opts     SamplerOptions
}

// NewSampler creates a Sampler over coverage.
func NewSampler(coverage Coverage, opts SamplerOptions) *Sampler {
	if opts.SamplingFactor <= 0 {
		opts.SamplingFactor = 1
	}
	if opts.PointBuffer <= 0 {
		opts.PointBuffer = 0.0001
	}
	return &Sampler{coverage: coverage, opts: opts}
}

// Grid returns the coverage's native grid.
func (s *Sampler) Grid(ctx context.Context) (Grid, error) {
	grid, err := s.coverage.Describe(ctx)
	if err != nil {
		return Grid{}, fmt.Errorf("describe coverage: %w", err)
	}
	return grid, nil
}

// Profile fetches the window line crosses and samples it. A samplingFactor of
// zero uses the configured default.
func (s *Sampler) Profile(ctx context.Context, line Line, samplingFactor float64) (LineProfile, error) {
	if samplingFactor == 0 {
		samplingFactor = s.opts.SamplingFactor
	}
	grid, err := s.Grid(ctx)
	if err != nil {
		return LineProfile{}, err
	}
	ix, err := Intersect(line, grid, samplingFactor)
	if err != nil {
		return LineProfile{}, err
	}
	r, err := s.coverage.GetCoverage(ctx, NewCoverageRequest(ix, grid))
	if err != nil {
		return LineProfile{}, fmt.Errorf("get coverage: %w", err)
	}
	points, err := Profile(r, line, ix)
	if err != nil {
		return LineProfile{}, err
	}
	for i := range points {
		if points[i].Value != nil && !s.withinRange(*points[i].Value) {
			points[i].Value = nil
		}
	}
	return LineProfile{Line: line, Intersection: ix, Points: points}, nil
}

// Point returns the value of the cell containing (x, y).
func (s *Sampler) Point(ctx context.Context, x, y float64, crs string) (Sample, error) {
	grid, err := s.Grid(ctx)
	if err != nil {
		return Sample{}, err
	}
	p := orb.Point{x, y}
	window, err := PointWindow(p, s.opts.PointBuffer, crs)
	if err != nil {
		return Sample{}, err
	}
	// A point near the edge keeps the part of its window inside the grid.
	// Points outside are left for Intersect to reject.
	if extent := grid.Extent(); extent.Contains(p) {
		window = window.clip(extent)
	}
	ix, err := Intersect(window, grid, 1)
	if err != nil {
		return Sample{}, err
	}
	r, err := s.coverage.GetCoverage(ctx, NewCoverageRequest(ix, grid))
	if err != nil {
		return Sample{}, fmt.Errorf("get coverage: %w", err)
	}
	v, ok, err := ValueAt(r, ix, grid, p)
	if err != nil {
		return Sample{}, err
	}
	if !ok || !s.withinRange(v) {
		return Sample{}, nil
	}
	return Sample{Value: v, Valid: true}, nil
}

func (s *Sampler) withinRange(v float64) bool {
	if !isFinite(v) {
		return false
	}
	return s.opts.MaxValid == 0 || v <= s.opts.MaxValid
}
