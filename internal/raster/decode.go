package raster

import (
	"fmt"
	"io"
	"strings"
)

// Formats accepted by Decode.
const (
	FormatArcGrid = "ArcGrid"
	FormatGeoTIFF = "GeoTIFF"
)

// Canonical maps a WCS output format name or MIME type to FormatArcGrid or
// FormatGeoTIFF. It returns "" for formats Decode cannot read.
func Canonical(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "arcgrid", "aaigrid", "ascii", "text/plain", "application/x-ogc-aaigrid":
		return FormatArcGrid
	case "geotiff", "gtiff", "tiff", "image/tiff":
		return FormatGeoTIFF
	}
	return ""
}

// Decode reads a coverage window in the given WCS output format.
func Decode(format string, r io.Reader) (*Band, error) {
	switch Canonical(format) {
	case FormatArcGrid:
		return ParseASCIIGrid(r)
	case FormatGeoTIFF:
		return DecodeTIFF(r)
	default:
		return nil, fmt.Errorf("raster: unsupported format %q", format)
	}
}
