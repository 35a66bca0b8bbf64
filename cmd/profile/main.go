// Command profile samples a WCS coverage along a line and prints the profile
// as CSV (distance, x, y, col, row, value). Missing cells print an empty value.
//
// Usage:
//
//	go run ./cmd/profile \
//	  -url https://service.pdok.nl/rws/ahn/wcs/v1_0 \
//	  -coverage dtm_05m \
//	  -wkt 'LINESTRING (155000 463000, 155100 463050)'
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/openearth/coverage-etl/internal/adapter/wcs"
	"github.com/openearth/coverage-etl/internal/domain"
	"github.com/openearth/coverage-etl/internal/observability"
	"github.com/openearth/coverage-etl/internal/raster"
)

func main() {
	serviceURL := flag.String("url", "", "WCS endpoint URL")
	coverage := flag.String("coverage", "", "coverage identifier")
	lineWKT := flag.String("wkt", "", "two-point LINESTRING in the coverage CRS")
	crs := flag.String("crs", "", "CRS of the line (defaults to the coverage CRS)")
	sampling := flag.Float64("sampling", 1, "samples per pixel along the line")
	format := flag.String("format", raster.FormatArcGrid, "coverage output format (ArcGrid or GeoTIFF)")
	user := flag.String("user", "", "basic auth username")
	pass := flag.String("pass", "", "basic auth password")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	verbose := flag.Bool("v", false, "log requests to stderr")
	flag.Parse()

	if *serviceURL == "" || *coverage == "" || *lineWKT == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := observability.NewLoggerTo(os.Stderr, level, "console")

	client, err := wcs.NewClient(wcs.Options{
		URL:      *serviceURL,
		Coverage: *coverage,
		Format:   *format,
		Username: *user,
		Password: *pass,
		Timeout:  *timeout,
	}, observability.NewMetricsForTesting(), logger) // unregistered; nothing scrapes a CLI
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sampler := domain.NewSampler(client, domain.SamplerOptions{})
	grid, err := sampler.Grid(ctx)
	if err != nil {
		fatal(err)
	}
	lineCRS := *crs
	if lineCRS == "" {
		lineCRS = grid.CRS
	}
	line, err := domain.ParseLineWKT(*lineWKT, lineCRS)
	if err != nil {
		fatal(err)
	}

	profile, err := sampler.Profile(ctx, line, *sampling)
	if err != nil {
		fatal(err)
	}

	w := csv.NewWriter(os.Stdout)
	_ = w.Write([]string{"distance", "x", "y", "col", "row", "value"})
	for _, p := range profile.Points {
		value := ""
		if p.Value != nil {
			value = formatFloat(*p.Value)
		}
		_ = w.Write([]string{
			formatFloat(p.Distance), formatFloat(p.X), formatFloat(p.Y),
			strconv.Itoa(p.Col), strconv.Itoa(p.Row), value,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fatal(err)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "profile:", err)
	os.Exit(1)
}
