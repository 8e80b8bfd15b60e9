package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Photo is one submission from the campaign photo feed
type Photo struct {
	ID        string `json:"id"`
	PhotoURL  string `json:"photo_url"`
	CreatedAt string `json:"created_at"`
	Campaign  string `json:"campaign,omitempty"`
}

// UnmarshalJSON accepts both numeric and string ids
func (p *Photo) UnmarshalJSON(data []byte) error {
	type alias Photo
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.ID)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		p.ID = ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("invalid photo id: %w", err)
		}
		p.ID = s
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("invalid photo id: %w", err)
		}
		p.ID = n.String()
	}
	return nil
}

// Classification is the service verdict on a photo
type Classification struct {
	Verified bool   `json:"verified"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
}

// Decision records what happened to a processed photo
type Decision struct {
	PhotoID     string    `json:"photo_id" db:"photo_id"`
	Campaign    string    `json:"campaign" db:"campaign"`
	Status      Status    `json:"status" db:"status"`
	PhotoURL    string    `json:"photo_url" db:"photo_url"`
	CreatedAt   string    `json:"created_at" db:"photo_created_at"`
	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
}

// Verified reports whether the photo passed classification
func (d Decision) Verified() bool {
	return d.Status == StatusAccepted || d.Status == StatusAcceptFailed
}
