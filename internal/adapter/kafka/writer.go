package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/openearth/coverage-etl/internal/config"
	"github.com/openearth/coverage-etl/internal/domain"
)

// Writer produces messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes enriched locations in a single
// WriteMessages call. Messages are keyed by location so updates for one
// location stay ordered on one partition.
func (w *Writer) LoadBatch(ctx context.Context, locations []domain.EnrichedLocation) error {
	if len(locations) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(locations))
	for i := range locations {
		msg, err := serializeToMessage(locations[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("batch loaded", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an EnrichedLocation into a Kafka message.
func serializeToMessage(loc domain.EnrichedLocation) (kafkago.Message, error) {
	data, err := json.Marshal(loc)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize enriched location: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(loc.LocationKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "surface_source", Value: []byte(loc.SurfaceSource)},
			{Key: "processed_at", Value: []byte(loc.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
