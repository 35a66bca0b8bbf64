package raster

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/tiff"
)

// DecodeTIFF reads the first band of an integer TIFF. Floating point GeoTIFFs
// are not supported by the decoder; request ArcGrid for those coverages.
// NoData must be supplied by the caller because the GDAL_NODATA tag is not
// exposed.
func DecodeTIFF(r io.Reader) (*Band, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("tiff: %w", err)
	}
	bounds := img.Bounds()
	b := &Band{
		Cols:   bounds.Dx(),
		Rows:   bounds.Dy(),
		Values: make([]float64, 0, bounds.Dx()*bounds.Dy()),
	}

	switch im := img.(type) {
	case *image.Gray:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				b.Values = append(b.Values, float64(im.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				b.Values = append(b.Values, float64(im.Gray16At(x, y).Y))
			}
		}
	default:
		return nil, fmt.Errorf("tiff: unsupported pixel layout %T", img)
	}

	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}
