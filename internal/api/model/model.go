package model

import "time"

// Decision is one row of photo_decisions
type Decision struct {
	PhotoID        string    `db:"photo_id"`
	Campaign       string    `db:"campaign"`
	Status         string    `db:"status"`
	PhotoURL       string    `db:"photo_url"`
	PhotoCreatedAt string    `db:"photo_created_at"`
	ProcessedAt    time.Time `db:"processed_at"`
}
