package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/openearth/coverage-etl/internal/domain"
	"github.com/openearth/coverage-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw location message into an enriched location.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.EnrichedLocation, error)
}

// BatchLoader writes enriched locations to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, locations []domain.EnrichedLocation) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline runs the extract, enrich and load loop for location messages.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Ready reports whether at least one batch has been loaded.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// CheckReadiness returns an error until the first enriched batch is loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any locations yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled. Extract and
// load failures are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	retry := backoff{next: initialBackoff}
	for ctx.Err() == nil {
		if !p.processBatch(ctx, &retry) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// processBatch runs one cycle and returns false when the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, retry *backoff) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err, "retry_in", retry.next)
		return retry.wait(ctx)
	}
	if len(rawBatch) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	retry.reset()

	locations, parsed := p.enrich(ctx, rawBatch)
	if len(locations) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, locations); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(locations), "retry_in", retry.next)
		return retry.wait(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(locations)))
	for _, raw := range parsed {
		p.commitOffset(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logBatch(locations, len(rawBatch)-len(locations), time.Since(start))
	return true
}

// enrich transforms each message. Messages that cannot be parsed are counted,
// committed and dropped; the returned raws are the sources of the locations.
func (p *Pipeline) enrich(ctx context.Context, rawBatch []domain.RawEvent) ([]domain.EnrichedLocation, []domain.RawEvent) {
	locations := make([]domain.EnrichedLocation, 0, len(rawBatch))
	parsed := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		loc, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("location rejected, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		locations = append(locations, loc)
		parsed = append(parsed, raw)
	}
	return locations, parsed
}

// logBatch reports how the surface levels of a loaded batch were resolved.
// A batch in which no sample could be taken usually means the coverage
// service is down, so it is logged as a warning.
func (p *Pipeline) logBatch(locations []domain.EnrichedLocation, rejected int, took time.Duration) {
	var sampled, missing, failed int
	for _, loc := range locations {
		switch loc.SurfaceSource {
		case domain.SurfaceFromCoverage:
			sampled++
		case domain.SurfaceMissing:
			missing++
		case domain.SurfaceFailed:
			failed++
		}
	}

	attrs := []any{
		"loaded", len(locations),
		"rejected", rejected,
		"sampled", sampled,
		"missing", missing,
		"failed", failed,
		"duration", took,
	}
	if failed == len(locations) {
		p.logger.Warn("no surface levels sampled in batch", attrs...)
		return
	}
	p.logger.Debug("batch loaded", attrs...)
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// backoff doubles from initialBackoff up to maxBackoff between failed attempts.
type backoff struct {
	next time.Duration
}

func (b *backoff) reset() { b.next = initialBackoff }

// wait sleeps for the current delay and returns false if ctx ended first.
func (b *backoff) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.next)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	b.next = min(b.next*2, maxBackoff)
	return true
}
