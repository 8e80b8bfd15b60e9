package witness

import (
	"context"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

// Client is the photo campaign service as seen by the worker
type Client interface {
	Login(ctx context.Context) (bool, error)
	GetCampaigns(ctx context.Context) ([]domain.Campaign, error)
	CreateCampaign(ctx context.Context, req domain.CampaignRequest) (*domain.CreateCampaignResult, error)
	GetCampaignPhotos(ctx context.Context, campaign string, since domain.Cursor) ([]domain.Photo, error)
	// Classify asks the service whether a photo is genuine and inside the geofence
	Classify(ctx context.Context, photoID string) (*domain.Classification, error)
	// Accept records a verified photo so the submitter is rewarded
	Accept(ctx context.Context, photoID string) (*domain.Classification, error)
}
