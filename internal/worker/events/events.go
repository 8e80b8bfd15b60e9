package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

// EventType identifies decision events on every transport
const EventType = "photo.decision"

const contentType = "application/json"

// Sink receives one event per processed photo
type Sink interface {
	PublishDecision(ctx context.Context, decision domain.Decision) error
	Close() error
}

// DecisionEvent is the wire form of a decision
type DecisionEvent struct {
	EventID     string        `json:"event_id"`
	Type        string        `json:"type"`
	PhotoID     string        `json:"photo_id"`
	Campaign    string        `json:"campaign"`
	Status      domain.Status `json:"status"`
	Verified    bool          `json:"verified"`
	PhotoURL    string        `json:"photo_url,omitempty"`
	CreatedAt   string        `json:"created_at,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// NewDecisionEvent wraps a decision with a fresh event id
func NewDecisionEvent(d domain.Decision) DecisionEvent {
	return DecisionEvent{
		EventID:     uuid.NewString(),
		Type:        EventType,
		PhotoID:     d.PhotoID,
		Campaign:    d.Campaign,
		Status:      d.Status,
		Verified:    d.Verified(),
		PhotoURL:    d.PhotoURL,
		CreatedAt:   d.CreatedAt,
		ProcessedAt: d.ProcessedAt.UTC(),
	}
}

func encode(d domain.Decision) (DecisionEvent, []byte, error) {
	evt := NewDecisionEvent(d)
	body, err := json.Marshal(evt)
	return evt, body, err
}

// NopSink discards events
type NopSink struct{}

func (NopSink) PublishDecision(context.Context, domain.Decision) error { return nil }
func (NopSink) Close() error                                          { return nil }
