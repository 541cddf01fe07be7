package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	domaudit "github.com/stylecommerce/marketplace/internal/domain/audit"
)

var kafkaTracer = otel.Tracer("audit/kafka")

// KafkaBackend ships audit entries to a compliance topic. Entries are
// keyed by entity so per-order records stay ordered within a partition.
type KafkaBackend struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaBackend(brokers []string, topic string) *KafkaBackend {
	return &KafkaBackend{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
		},
	}
}

type kafkaEntry struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	UserID     string            `json:"user_id,omitempty"`
	Outcome    string            `json:"outcome"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (b *KafkaBackend) Write(ctx context.Context, entry domaudit.Entry) error {
	data, err := json.Marshal(kafkaEntry{
		ID:         entry.ID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		UserID:     entry.UserID,
		Outcome:    entry.Outcome,
		Metadata:   entry.Metadata,
		OccurredAt: entry.OccurredAt,
	})
	if err != nil {
		return err
	}

	ctx, span := kafkaTracer.Start(ctx, "send "+b.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(b.topic),
			semconv.MessagingKafkaMessageKey(entry.EntityID),
		),
	)
	defer span.End()

	msg := kafka.Message{
		Key:   []byte(entry.EntityID),
		Value: data,
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (b *KafkaBackend) Close() error {
	return b.writer.Close()
}
