// Package domain models coverage sampling for monitoring locations.
//
// # Grid Conventions
//
// A coverage layer (for example a surface elevation DTM served over OGC WCS)
// is described by a [Grid]: the lower-left corner of its native extent, the
// pixel resolution along each axis and the native pixel counts. Resolution is
// derived once from the coverage description:
//
//	resx = (hx - lx) / cx
//	resy = (hy - ly) / cy
//
// Pixel indices are counted from the lower-left corner. Column i covers
// [lx + i*resx, lx + (i+1)*resx); row j covers [ly + j*resy, ly + (j+1)*resy).
// Rasters returned by a coverage service are stored north-up, so raster row 0
// is the highest grid row of the requested window.
//
// # Line Intersection
//
// [Intersect] maps a two-point line onto the grid. It returns a pixel-aligned
// bounding box that contains both endpoints and an evenly spaced list of
// sample positions in fractional pixel space relative to that box:
//
//	flipX = start.x >= end.x
//	flipY = start.y >= end.y
//
// The flip flags select which endpoint contributes the lower index and which
// one the upper, exclusive index (floor + 1). Ties count as flipped, so a line
// that stays inside one pixel still yields a 1x1 box.
//
// The number of samples is round(max(width, height) * samplingFactor), at
// least one, so neither axis is undersampled.
//
// # Missing Values
//
// Cells equal to the raster NoData value are reported as missing. Values above
// the sampler's MaxValid threshold are treated the same way; for Dutch AHN
// elevations anything above 100 m NAP is a fill value rather than terrain.
package domain
