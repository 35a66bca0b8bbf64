package raster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseASCIIGrid reads an Esri ASCII grid (GDAL's AAIGrid / ArcGrid). Header
// keys are case-insensitive; center-registered origins are shifted to the
// lower-left corner.
func ParseASCIIGrid(r io.Reader) (*Band, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)

	var (
		b                Band
		centerX, centerY bool
		haveX, haveY     bool
		cellsize         float64
		first            string
		haveFirst        bool
	)

	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			first, haveFirst = sc.Text(), true
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("ascii grid: missing value for %s", key)
		}
		val := sc.Text()

		var err error
		switch key {
		case "ncols":
			b.Cols, err = strconv.Atoi(val)
		case "nrows":
			b.Rows, err = strconv.Atoi(val)
		case "xllcorner":
			b.XLL, err = strconv.ParseFloat(val, 64)
			haveX = true
		case "xllcenter":
			b.XLL, err = strconv.ParseFloat(val, 64)
			haveX, centerX = true, true
		case "yllcorner":
			b.YLL, err = strconv.ParseFloat(val, 64)
			haveY = true
		case "yllcenter":
			b.YLL, err = strconv.ParseFloat(val, 64)
			haveY, centerY = true, true
		case "cellsize":
			cellsize, err = strconv.ParseFloat(val, 64)
		case "dx":
			b.CellWidth, err = strconv.ParseFloat(val, 64)
		case "dy":
			b.CellHeight, err = strconv.ParseFloat(val, 64)
		case "nodata_value":
			b.NoData, err = strconv.ParseFloat(val, 64)
			b.HasNoData = true
		}
		if err != nil {
			return nil, fmt.Errorf("ascii grid: header %s: %w", key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ascii grid: %w", err)
	}

	if cellsize > 0 {
		if b.CellWidth == 0 {
			b.CellWidth = cellsize
		}
		if b.CellHeight == 0 {
			b.CellHeight = cellsize
		}
	}
	if centerX {
		b.XLL -= b.CellWidth / 2
	}
	if centerY {
		b.YLL -= b.CellHeight / 2
	}
	b.HasGeoref = haveX && haveY && b.CellWidth > 0 && b.CellHeight > 0
	if b.Cols <= 0 || b.Rows <= 0 {
		return nil, fmt.Errorf("ascii grid: invalid dimensions %dx%d", b.Cols, b.Rows)
	}

	b.Values = make([]float64, 0, b.Cols*b.Rows)
	next := func() (string, bool) {
		if haveFirst {
			haveFirst = false
			return first, true
		}
		if sc.Scan() {
			return sc.Text(), true
		}
		return "", false
	}
	for len(b.Values) < b.Cols*b.Rows {
		tok, ok := next()
		if !ok {
			break
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("ascii grid: cell %d: %w", len(b.Values), err)
		}
		b.Values = append(b.Values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ascii grid: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "xllcenter", "yllcorner", "yllcenter",
		"cellsize", "dx", "dy", "nodata_value":
		return true
	}
	return false
}
