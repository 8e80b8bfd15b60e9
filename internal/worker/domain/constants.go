package domain

import "time"

// ISOMillis is the timestamp layout the photo service produces and accepts
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"

// Default campaign parameters
const (
	DefaultCampaignName     = "TreeHacks 2025 - EigenLayer"
	DefaultCampaignType     = "individual"
	DefaultCurrency         = "POINTS"
	DefaultLatitude         = 37.441023
	DefaultLongitude        = -122.12686
	DefaultRadiusKm         = 100
	DefaultTotalRewards     = 10.0
	DefaultRewardPerTask    = 2.0
	DefaultFuelRequired     = 1.0
	DefaultMaxSubmissions   = 2
	DefaultCampaignDuration = 10 * 24 * time.Hour
)

// Worker timing defaults
const (
	DefaultPollInterval = 5 * time.Second
	DefaultFlushDelay   = time.Second
)

// Photo outcome statuses
const (
	StatusAccepted       Status = "accepted"
	StatusRejected       Status = "rejected"
	StatusDownloadFailed Status = "download_failed"
	StatusAcceptFailed   Status = "accept_failed"
)

// Poll loop states
const (
	StateLogin        State = "LOGIN"
	StateBootstrap    State = "BOOTSTRAP"
	StatePoll         State = "POLL"
	StateProcessBatch State = "PROCESS_BATCH"
	StateSleep        State = "SLEEP"
	StateFatal        State = "FATAL"
	StateStopped      State = "STOPPED"
)

// Status is the final outcome recorded for a photo
type Status string

// Valid reports whether s is a known outcome
func (s Status) Valid() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusDownloadFailed, StatusAcceptFailed:
		return true
	}
	return false
}

// State is a poll loop state
type State string
