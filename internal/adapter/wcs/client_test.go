package wcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openearth/coverage-etl/internal/domain"
	"github.com/openearth/coverage-etl/internal/observability"
)

const describeXML = `<?xml version="1.0" encoding="UTF-8"?>
<CoverageDescription xmlns="http://www.opengis.net/wcs" xmlns:gml="http://www.opengis.net/gml" version="1.0.0">
  <CoverageOffering>
    <name>dtm_05m</name>
    <label>AHN4 DTM 0.5m</label>
    <domainSet>
      <spatialDomain>
        <gml:Envelope srsName="EPSG:4326">
          <gml:pos>3.2 50.7</gml:pos>
          <gml:pos>7.3 53.6</gml:pos>
        </gml:Envelope>
        <gml:Envelope srsName="EPSG:28992">
          <gml:pos>0 0</gml:pos>
          <gml:pos>10 10</gml:pos>
        </gml:Envelope>
        <gml:RectifiedGrid dimension="2" srsName="EPSG:28992">
          <gml:limits>
            <gml:GridEnvelope>
              <gml:low>0 0</gml:low>
              <gml:high>19 19</gml:high>
            </gml:GridEnvelope>
          </gml:limits>
        </gml:RectifiedGrid>
      </spatialDomain>
    </domainSet>
    <supportedFormats>
      <formats>GeoTIFF</formats>
      <formats>ArcGrid</formats>
    </supportedFormats>
  </CoverageOffering>
</CoverageDescription>`

const exceptionXML = `<?xml version="1.0" encoding="UTF-8"?>
<ServiceExceptionReport version="1.2.0">
  <ServiceException code="InvalidParameterValue">bbox outside coverage</ServiceException>
</ServiceExceptionReport>`

const windowGrid = "ncols 5\nnrows 1\nxllcorner 1\nyllcorner 1\ncellsize 0.5\nNODATA_value -9999\n1 2 3 4 5\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, srv *httptest.Server, mod func(*Options)) (*Client, *observability.Metrics) {
	t.Helper()
	opts := Options{URL: srv.URL + "/wcs?map=ahn", Coverage: "dtm_05m", Timeout: 5 * time.Second}
	if mod != nil {
		mod(&opts)
	}
	m := observability.NewMetricsForTesting()
	c, err := NewClient(opts, m, discardLogger())
	require.NoError(t, err)
	return c, m
}

func TestNewClient_Validation(t *testing.T) {
	m := observability.NewMetricsForTesting()

	_, err := NewClient(Options{Coverage: "x"}, m, discardLogger())
	assert.ErrorContains(t, err, "url is required")

	_, err = NewClient(Options{URL: "http://x"}, m, discardLogger())
	assert.ErrorContains(t, err, "coverage is required")

	_, err = NewClient(Options{URL: "http://x", Coverage: "c", Format: "NetCDF"}, m, discardLogger())
	assert.ErrorContains(t, err, "unsupported format")

	c, err := NewClient(Options{URL: "http://x", Coverage: "c"}, m, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "ArcGrid", c.opts.Format)
	assert.Equal(t, 30*time.Second, c.opts.Timeout)
}

func TestClient_Describe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "WCS", q.Get("service"))
		assert.Equal(t, "1.0.0", q.Get("version"))
		assert.Equal(t, "DescribeCoverage", q.Get("request"))
		assert.Equal(t, "dtm_05m", q.Get("coverage"))
		assert.Equal(t, "ahn", q.Get("map"), "existing query parameters are kept")
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, describeXML)
	}))
	defer srv.Close()

	c, m := newTestClient(t, srv, nil)
	d, err := c.DescribeCoverage(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "dtm_05m", d.Name)
	assert.Equal(t, "AHN4 DTM 0.5m", d.Label)
	assert.Equal(t, []string{"GeoTIFF", "ArcGrid"}, d.Formats)

	g := d.Grid
	assert.Equal(t, "EPSG:28992", g.CRS)
	assert.Equal(t, 0.0, g.OriginX)
	assert.Equal(t, 0.0, g.OriginY)
	assert.Equal(t, 20, g.Width)
	assert.Equal(t, 20, g.Height)
	assert.Equal(t, 0.5, g.ResX)
	assert.Equal(t, 0.5, g.ResY)

	assert.Equal(t, 1, testutil.CollectAndCount(m.CoverageRequestDuration))
}

func TestClient_DescribeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500"},
		{"exception report", http.StatusBadRequest, exceptionXML, "bbox outside coverage"},
		{"unknown coverage", http.StatusOK, `<CoverageDescription><CoverageOffering><name>a</name></CoverageOffering><CoverageOffering><name>b</name></CoverageOffering></CoverageDescription>`, "not found"},
		{"malformed xml", http.StatusOK, `<CoverageDescription>`, "decode coverage description"},
		{"no envelope", http.StatusOK, `<CoverageDescription><CoverageOffering><name>dtm_05m</name></CoverageOffering></CoverageDescription>`, "no native envelope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv, nil)
			_, err := c.Describe(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClient_GetCoverage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "GetCoverage", q.Get("request"))
		assert.Equal(t, "EPSG:28992", q.Get("crs"))
		assert.Equal(t, "1,1,3.5,1.5", q.Get("bbox"))
		assert.Equal(t, "5", q.Get("width"))
		assert.Equal(t, "1", q.Get("height"))
		assert.Equal(t, "ArcGrid", q.Get("format"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "reader", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, windowGrid)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, func(o *Options) {
		o.Username = "reader"
		o.Password = "secret"
	})
	r, err := c.GetCoverage(context.Background(), domain.CoverageRequest{
		BBox:   orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3.5, 1.5}},
		Width:  5,
		Height: 1,
		CRS:    "EPSG:28992",
	})
	require.NoError(t, err)

	cols, rows := r.Dims()
	assert.Equal(t, 5, cols)
	assert.Equal(t, 1, rows)
	v, ok := r.At(4, 0)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestClient_GetCoverageNoAuthWithoutPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		fmt.Fprint(w, windowGrid)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, func(o *Options) { o.Username = "reader" })
	_, err := c.GetCoverage(context.Background(), domain.CoverageRequest{Width: 5, Height: 1, CRS: "EPSG:28992"})
	require.NoError(t, err)
}

func TestClient_GetCoverageException(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.ogc.se_xml")
		fmt.Fprint(w, exceptionXML)
	}))
	defer srv.Close()

	c, m := newTestClient(t, srv, nil)
	_, err := c.GetCoverage(context.Background(), domain.CoverageRequest{Width: 1, Height: 1, CRS: "EPSG:28992"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Contains(t, err.Error(), "InvalidParameterValue: bbox outside coverage")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CoverageRequestErrors.WithLabelValues("getcoverage")))
}
