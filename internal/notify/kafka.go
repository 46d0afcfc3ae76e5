// Package notify announces rendered images to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// Publisher sends a notification for each successful render.
type Publisher interface {
	Publish(ctx context.Context, result domain.RenderResult) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured, otherwise a no-op.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) Publisher {
	if !cfg.NotifyEnabled() {
		return Nop{}
	}
	return NewWriter(cfg, logger, metrics)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Publish(context.Context, domain.RenderResult) error { return nil }
func (Nop) Close() error                                       { return nil }

// Writer produces render notifications to a Kafka topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		// one message per run
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Publish serializes result and writes it as a single message.
func (w *Writer) Publish(ctx context.Context, result domain.RenderResult) error {
	msg, err := serializeToMessage(result)
	if err == nil {
		err = errors.Wrap(w.writer.WriteMessages(ctx, msg), "publish render notification")
	}
	if w.metrics != nil {
		w.metrics.NotificationsPublished.WithLabelValues(observability.Outcome(err)).Inc()
	}
	if err != nil {
		return err
	}
	w.logger.Debug("render notification published", "topic", w.writer.Topic, "key", string(msg.Key))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RenderResult into a Kafka message keyed by
// the output file name.
func serializeToMessage(result domain.RenderResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, errors.Wrap(err, "serialize render result")
	}
	return kafkago.Message{
		Key:   []byte(filepath.Base(result.OutputPath)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "pipeline", Value: []byte(result.Pipeline)},
			{Key: "generated_at", Value: []byte(result.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
