package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

// MsgPublisher is the part of a NATS connection the sink uses
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// NATSSink publishes decisions on a NATS subject
type NATSSink struct {
	conn    MsgPublisher
	subject string
	close   func()
}

// ConnectNATS dials NATS with reconnects enabled and returns a sink on subject
func ConnectNATS(url, subject, name string, logger *slog.Logger) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS connection lost", slog.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	sink := NewNATSSink(nc, subject)
	sink.close = func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}
	return sink, nil
}

// NewNATSSink creates a sink on an existing connection
func NewNATSSink(conn MsgPublisher, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) PublishDecision(ctx context.Context, d domain.Decision) error {
	evt, body, err := encode(d)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	msg := nats.NewMsg(s.subject)
	msg.Data = body
	msg.Header.Set("Content-Type", contentType)
	msg.Header.Set(nats.MsgIdHdr, evt.EventID)

	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish decision: %w", err)
	}
	return s.conn.FlushWithContext(ctx)
}

func (s *NATSSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
