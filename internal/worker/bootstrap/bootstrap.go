package bootstrap

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
	"github.com/cuongbtq/geophoto-worker/shared/clock"
	"github.com/cuongbtq/geophoto-worker/shared/retry"
)

// Outcome of a bootstrap attempt
type Outcome string

const (
	OutcomeExisting Outcome = "existing"
	OutcomeCreated  Outcome = "created"
	OutcomeFailed   Outcome = "failed"
)

// CampaignService lists and creates campaigns
type CampaignService interface {
	GetCampaigns(ctx context.Context) ([]domain.Campaign, error)
	CreateCampaign(ctx context.Context, req domain.CampaignRequest) (*domain.CreateCampaignResult, error)
}

// Config holds bootstrapper dependencies
type Config struct {
	Service CampaignService
	Spec    domain.CampaignSpec
	Retrier *retry.Retrier
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Bootstrapper makes sure the configured campaign exists
type Bootstrapper struct {
	service CampaignService
	spec    domain.CampaignSpec
	retrier *retry.Retrier
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a bootstrapper
func New(cfg Config) *Bootstrapper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	retrier := cfg.Retrier
	if retrier == nil {
		retrier = retry.New(retry.Policy{MaxAttempts: 1}, clk, logger)
	}

	return &Bootstrapper{
		service: cfg.Service,
		spec:    cfg.Spec,
		retrier: retrier,
		clock:   clk,
		logger:  logger,
	}
}

// Ensure creates the campaign unless one with the same id already exists.
// Failures are logged and reported through the outcome, never returned.
func (b *Bootstrapper) Ensure(ctx context.Context) Outcome {
	name := b.spec.Name

	campaigns, err := retry.Value(ctx, b.retrier, "campaigns", b.service.GetCampaigns)
	if err != nil {
		b.logger.Error("Failed to list campaigns",
			slog.String("campaign", name),
			slog.Any("error", domain.NewStageError(domain.ErrBootstrap, "list", "", err)),
		)
		return OutcomeFailed
	}

	for _, c := range campaigns {
		if c.ID == name {
			b.logger.Info("Using existing campaign", slog.String("campaign", name))
			return OutcomeExisting
		}
	}

	req := b.spec.Request(b.clock.Now())
	b.logger.Info("Creating new campaign",
		slog.String("campaign", name),
		slog.String("starts_at", req.StartsAt),
		slog.String("ends_at", req.EndsAt),
	)

	// Not retried: a timed-out create may have succeeded and a second one
	// would duplicate the campaign.
	result, err := b.service.CreateCampaign(ctx, req)
	if err != nil {
		b.logger.Error("Failed to create campaign",
			slog.String("campaign", name),
			slog.Any("error", domain.NewStageError(domain.ErrBootstrap, "create", "", err)),
		)
		return OutcomeFailed
	}

	if result == nil || !result.Success {
		msg := ""
		if result != nil {
			msg = result.Message
		}
		b.logger.Error("Failed to create campaign",
			slog.String("campaign", name),
			slog.String("message", msg),
		)
		return OutcomeFailed
	}

	b.logger.Info("Successfully created campaign", slog.String("campaign", name))
	return OutcomeCreated
}
