package domain

import "time"

// Campaign is a campaign as listed by the photo service. ID is the
// human-readable campaign name and is unique.
type Campaign struct {
	ID             string   `json:"id"`
	Description    string   `json:"description,omitempty"`
	Type           string   `json:"type,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Latitude       float64  `json:"latitude,omitempty"`
	Longitude      float64  `json:"longitude,omitempty"`
	Radius         float64  `json:"radius,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	TotalRewards   float64  `json:"total_rewards,omitempty"`
	RewardPerTask  float64  `json:"reward_per_task,omitempty"`
	StartsAt       string   `json:"starts_at,omitempty"`
	EndsAt         string   `json:"ends_at,omitempty"`
	MaxSubmissions int      `json:"max_submissions,omitempty"`
	IsActive       bool     `json:"is_active,omitempty"`
}

// CampaignRequest is the create-campaign payload
type CampaignRequest struct {
	Campaign       string   `json:"campaign"`
	Description    string   `json:"description"`
	Type           string   `json:"type"`
	Tags           []string `json:"tags"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Radius         float64  `json:"radius"`
	BannerURL      string   `json:"banner_url,omitempty"`
	PosterURL      string   `json:"poster_url,omitempty"`
	Currency       string   `json:"currency"`
	TotalRewards   float64  `json:"total_rewards"`
	RewardPerTask  float64  `json:"reward_per_task"`
	FuelRequired   float64  `json:"fuel_required"`
	StartsAt       string   `json:"starts_at"`
	EndsAt         string   `json:"ends_at"`
	MaxSubmissions int      `json:"max_submissions"`
	IsActive       bool     `json:"is_active"`
}

// CampaignSpec holds the static parameters a campaign is created with.
// The time window is filled in at creation time.
type CampaignSpec struct {
	Name           string
	Description    string
	Type           string
	Tags           []string
	Latitude       float64
	Longitude      float64
	RadiusKm       float64
	BannerURL      string
	PosterURL      string
	Currency       string
	TotalRewards   float64
	RewardPerTask  float64
	FuelRequired   float64
	MaxSubmissions int
	Duration       time.Duration
}

// Request builds the create-campaign payload for a window starting at now
func (s CampaignSpec) Request(now time.Time) CampaignRequest {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}

	return CampaignRequest{
		Campaign:       s.Name,
		Description:    s.Description,
		Type:           s.Type,
		Tags:           tags,
		Latitude:       s.Latitude,
		Longitude:      s.Longitude,
		Radius:         s.RadiusKm,
		BannerURL:      s.BannerURL,
		PosterURL:      s.PosterURL,
		Currency:       s.Currency,
		TotalRewards:   s.TotalRewards,
		RewardPerTask:  s.RewardPerTask,
		FuelRequired:   s.FuelRequired,
		StartsAt:       now.UTC().Format(ISOMillis),
		EndsAt:         now.Add(s.Duration).UTC().Format(ISOMillis),
		MaxSubmissions: s.MaxSubmissions,
		IsActive:       true,
	}
}

// CreateCampaignResult is the service response to a create request
type CreateCampaignResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
