//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	kc, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	testcontainers.CleanupContainer(t, kc)
	require.NoError(t, err, "start kafka container")

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

const describeXML = `<?xml version="1.0" encoding="UTF-8"?>
<CoverageDescription xmlns="http://www.opengis.net/wcs" xmlns:gml="http://www.opengis.net/gml" version="1.0.0">
  <CoverageOffering>
    <name>dtm_05m</name>
    <domainSet>
      <spatialDomain>
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
    <supportedFormats><formats>ArcGrid</formats></supportedFormats>
  </CoverageOffering>
</CoverageDescription>`

// startWCS serves a 10x10 m coverage at 0.5 m resolution where each cell
// holds row + col/100, counted from the south-west corner.
func startWCS(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("request") {
		case "DescribeCoverage":
			w.Header().Set("Content-Type", "text/xml")
			fmt.Fprint(w, describeXML)
		case "GetCoverage":
			writeWindow(w, q.Get("bbox"), q.Get("width"), q.Get("height"))
		default:
			http.Error(w, "unsupported request", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeWindow(w http.ResponseWriter, bbox, width, height string) {
	parts := strings.Split(bbox, ",")
	cols, errW := strconv.Atoi(width)
	rows, errH := strconv.Atoi(height)
	if len(parts) != 4 || errW != nil || errH != nil {
		http.Error(w, "bad window", http.StatusBadRequest)
		return
	}
	minX, _ := strconv.ParseFloat(parts[0], 64)
	minY, _ := strconv.ParseFloat(parts[1], 64)
	minCol, minRow := int(minX/0.5), int(minY/0.5)

	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "ncols %d\nnrows %d\nxllcorner %g\nyllcorner %g\ncellsize 0.5\nNODATA_value -9999\n",
		cols, rows, minX, minY)
	for row := range rows {
		gridRow := minRow + rows - 1 - row
		vals := make([]string, cols)
		for col := range cols {
			vals[col] = strconv.FormatFloat(float64(gridRow)+float64(minCol+col)/100, 'f', 2, 64)
		}
		fmt.Fprintln(w, strings.Join(vals, " "))
	}
}
