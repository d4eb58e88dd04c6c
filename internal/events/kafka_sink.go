package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaSink forwards every event to a Kafka topic as an audit trail.
// Records are keyed by policy id so one policy's events stay ordered.
type KafkaSink struct {
	client producer
	logger *zap.Logger
}

// NewKafkaSink connects lazily to brokers; topic is the default produce topic.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("policy-service"),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, logger: logger}, nil
}

// Register subscribes the sink to every event type.
func (s *KafkaSink) Register(d Dispatcher) {
	for _, eventType := range AllEventTypes {
		d.Subscribe(eventType, s.Handle)
	}
}

// Handle produces asynchronously; delivery failures are only logged.
func (s *KafkaSink) Handle(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.PolicyID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	s.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("kafka produce failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	})
	return nil
}

// Close flushes buffered records before closing the client.
func (s *KafkaSink) Close(ctx context.Context) {
	if err := s.client.Flush(ctx); err != nil {
		s.logger.Warn("kafka flush failed", zap.Error(err))
	}
	s.client.Close()
}
