package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/config"
	"github.com/couchcryptid/snowpack-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces season reports to a Kafka topic.
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

// LoadBatch serializes and publishes season reports in a single
// WriteMessages call. Reports are keyed by location so every run for a point
// lands on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.SeasonReport) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(&reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write season reports: %w", err)
	}
	w.logger.Debug("loaded batch", "size", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SeasonReport into a Kafka message.
func serializeToMessage(report *domain.SeasonReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize season report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.LocationKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(report.RunID)},
			{Key: "data_mode", Value: []byte(report.Meta.DataMode)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
