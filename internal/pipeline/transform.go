package pipeline

import (
	"context"
	"log/slog"

	"github.com/openearth/coverage-etl/internal/domain"
	"github.com/openearth/coverage-etl/internal/observability"
)

// LocationTransformer implements Transformer by parsing raw location messages
// and sampling their surface level.
type LocationTransformer struct {
	sampler domain.PointSampler
	cellRes int
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates a LocationTransformer. Pass a nil sampler to skip
// surface level sampling; cellRes is the H3 resolution of the attached cell.
func NewTransformer(sampler domain.PointSampler, cellRes int, metrics *observability.Metrics, logger *slog.Logger) *LocationTransformer {
	return &LocationTransformer{
		sampler: sampler,
		cellRes: cellRes,
		metrics: metrics,
		logger:  logger,
	}
}

func (t *LocationTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.EnrichedLocation, error) {
	loc, err := domain.ParseRawLocation(raw)
	if err != nil {
		return domain.EnrichedLocation{}, err
	}

	out := domain.EnrichLocation(ctx, loc, t.sampler, t.cellRes, t.logger)
	if out.SurfaceSource != "" {
		t.metrics.SampleOutcomes.WithLabelValues(out.SurfaceSource).Inc()
	}
	return out, nil
}
