package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Event types carried on the bus. Downstream consumers (notification
// fan-out, analytics) key off these.
const (
	TypeMessageSent = "chat.message.sent"
	TypeBidPlaced   = "bid.placed"
)

// Publisher announces domain events. Delivery is best effort: callers log
// and continue on failure, they never retry (a replayed bid event would risk
// double notification).
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// KafkaPublisher writes one topic per event type. A circuit breaker guards
// the broker: when Kafka is down, publishes fail fast instead of holding
// request goroutines on broker timeouts.
type KafkaPublisher struct {
	writers map[string]*kafka.Writer
	breaker *gobreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

// NewKafkaPublisher maps event types to topics, e.g.
// {TypeMessageSent: "chat.message.sent"}.
func NewKafkaPublisher(brokers []string, topics map[string]string, logger *zap.SugaredLogger) *KafkaPublisher {
	writers := make(map[string]*kafka.Writer, len(topics))
	for eventType, topic := range topics {
		writers[eventType] = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		}
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "kafka-publisher",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnw("publisher breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &KafkaPublisher{writers: writers, breaker: breaker, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	w, ok := p.writers[eventType]
	if !ok {
		p.logger.Warnw("no topic configured for event", "type", eventType)
		return nil
	}
	b, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
		"sentAt":  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, w.WriteMessages(ctx, kafka.Message{Value: b})
	})
	return err
}

func (p *KafkaPublisher) Close() error {
	var first error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }

var _ Publisher = (*KafkaPublisher)(nil)
var _ Publisher = NopPublisher{}
