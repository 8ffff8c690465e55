package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-district-dashboard/internal/config"
	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every published report.
const (
	HeaderSelectionID = "selection_id"
	HeaderGeneratedAt = "generated_at"
)

// Writer produces report messages to a Kafka topic.
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

// LoadBatch serializes and publishes reports in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.ReportMessage) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	w.logger.Debug("reports published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a report keyed by the request that asked for it.
func serializeToMessage(msg domain.ReportMessage) (kafkago.Message, error) {
	data, err := json.Marshal(msg.Report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(msg.RequestID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderSelectionID, Value: []byte(msg.Report.ID)},
			{Key: HeaderGeneratedAt, Value: []byte(msg.Report.GeneratedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
