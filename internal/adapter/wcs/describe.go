package wcs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openearth/coverage-etl/internal/domain"
)

// WCS 1.0.0 DescribeCoverage response types. Only the fields needed to build
// a domain.Grid are mapped.

type coverageDescription struct {
	XMLName   xml.Name           `xml:"CoverageDescription"`
	Offerings []coverageOffering `xml:"CoverageOffering"`
}

type coverageOffering struct {
	Name      string        `xml:"name"`
	Label     string        `xml:"label"`
	Envelopes []envelope    `xml:"domainSet>spatialDomain>Envelope"`
	Grid      rectifiedGrid `xml:"domainSet>spatialDomain>RectifiedGrid"`
	Formats   []string      `xml:"supportedFormats>formats"`
}

type envelope struct {
	SRSName     string   `xml:"srsName,attr"`
	Pos         []string `xml:"pos"`
	LowerCorner string   `xml:"lowerCorner"`
	UpperCorner string   `xml:"upperCorner"`
}

type rectifiedGrid struct {
	SRSName string `xml:"srsName,attr"`
	Low     string `xml:"limits>GridEnvelope>low"`
	High    string `xml:"limits>GridEnvelope>high"`
}

// Descriptor is the parsed description of one coverage.
type Descriptor struct {
	Name    string
	Label   string
	Grid    domain.Grid
	Formats []string
}

// parseDescription picks the offering named coverage, or the only offering
// when the server returns exactly one, and converts it to a Descriptor.
func parseDescription(data []byte, coverage string) (Descriptor, error) {
	var doc coverageDescription
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Descriptor{}, fmt.Errorf("decode coverage description: %w", err)
	}

	var off *coverageOffering
	for i := range doc.Offerings {
		if doc.Offerings[i].Name == coverage {
			off = &doc.Offerings[i]
			break
		}
	}
	if off == nil && len(doc.Offerings) == 1 {
		off = &doc.Offerings[0]
	}
	if off == nil {
		return Descriptor{}, fmt.Errorf("coverage %q not found in description (%d offerings)", coverage, len(doc.Offerings))
	}

	grid, err := off.grid()
	if err != nil {
		return Descriptor{}, fmt.Errorf("coverage %s: %w", off.Name, err)
	}
	return Descriptor{Name: off.Name, Label: off.Label, Grid: grid, Formats: off.Formats}, nil
}

// grid builds the native grid from the envelope in the RectifiedGrid's CRS.
// Grid limits are inclusive, so the cell count is high - low + 1.
func (o *coverageOffering) grid() (domain.Grid, error) {
	env, ok := o.nativeEnvelope()
	if !ok {
		return domain.Grid{}, errors.New("no native envelope")
	}
	lower, upper, err := env.corners()
	if err != nil {
		return domain.Grid{}, err
	}

	low, err := parseInts(o.Grid.Low)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("grid low: %w", err)
	}
	high, err := parseInts(o.Grid.High)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("grid high: %w", err)
	}

	crs := o.Grid.SRSName
	if crs == "" {
		crs = env.SRSName
	}
	// GridEnvelope limits are inclusive cell indices, so high alone is one
	// short of the cell count.
	return domain.NewGrid(lower[0], lower[1], upper[0], upper[1],
		high[0]-low[0]+1, high[1]-low[1]+1, crs)
}

func (o *coverageOffering) nativeEnvelope() (envelope, bool) {
	if len(o.Envelopes) == 0 {
		return envelope{}, false
	}
	if o.Grid.SRSName != "" {
		for _, e := range o.Envelopes {
			if domain.SameCRS(e.SRSName, o.Grid.SRSName) {
				return e, true
			}
		}
	}
	// Servers list the WGS84 envelope first when they publish both.
	for _, e := range o.Envelopes {
		if !domain.SameCRS(e.SRSName, "EPSG:4326") {
			return e, true
		}
	}
	return o.Envelopes[0], true
}

func (e envelope) corners() (lower, upper [2]float64, err error) {
	lo, hi := e.LowerCorner, e.UpperCorner
	if len(e.Pos) == 2 {
		lo, hi = e.Pos[0], e.Pos[1]
	}
	if lo == "" || hi == "" {
		return lower, upper, fmt.Errorf("envelope %s has no corners", e.SRSName)
	}
	if lower, err = parsePair(lo); err != nil {
		return lower, upper, fmt.Errorf("envelope lower corner: %w", err)
	}
	if upper, err = parsePair(hi); err != nil {
		return lower, upper, fmt.Errorf("envelope upper corner: %w", err)
	}
	return lower, upper, nil
}

func parsePair(s string) ([2]float64, error) {
	var out [2]float64
	f := strings.Fields(s)
	if len(f) < 2 {
		return out, fmt.Errorf("expected 2 values, got %q", s)
	}
	for i := range 2 {
		v, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(s string) ([2]int, error) {
	var out [2]int
	f := strings.Fields(s)
	if len(f) < 2 {
		return out, fmt.Errorf("expected 2 values, got %q", s)
	}
	for i := range 2 {
		v, err := strconv.Atoi(f[i])
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

type serviceExceptionReport struct {
	XMLName    xml.Name `xml:"ServiceExceptionReport"`
	Exceptions []struct {
		Code string `xml:"code,attr"`
		Text string `xml:",chardata"`
	} `xml:"ServiceException"`
}

// exceptionMessage extracts the message of an OGC ServiceExceptionReport. It
// returns false when data is not one.
func exceptionMessage(data []byte) (string, bool) {
	var rep serviceExceptionReport
	if err := xml.Unmarshal(data, &rep); err != nil || len(rep.Exceptions) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(rep.Exceptions))
	for _, e := range rep.Exceptions {
		msg := strings.TrimSpace(e.Text)
		if e.Code != "" {
			msg = e.Code + ": " + msg
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; "), true
}
