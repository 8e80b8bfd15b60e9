package events

import (
	"context"
	"fmt"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
	"github.com/cuongbtq/geophoto-worker/shared/rabbitmq"
)

// Publisher is the part of the RabbitMQ client the sink uses
type Publisher interface {
	PublishWithRetry(ctx context.Context, msg rabbitmq.Message) error
	Close() error
}

// RabbitSink publishes decisions to a RabbitMQ exchange
type RabbitSink struct {
	publisher Publisher
}

// NewRabbitSink creates a sink on top of a connected publisher
func NewRabbitSink(publisher Publisher) *RabbitSink {
	return &RabbitSink{publisher: publisher}
}

func (s *RabbitSink) PublishDecision(ctx context.Context, d domain.Decision) error {
	evt, body, err := encode(d)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	return s.publisher.PublishWithRetry(ctx, rabbitmq.Message{
		Body:        body,
		ContentType: contentType,
		MessageID:   evt.EventID,
		Type:        EventType,
	})
}

func (s *RabbitSink) Close() error {
	return s.publisher.Close()
}
