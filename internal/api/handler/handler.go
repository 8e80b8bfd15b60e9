package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/geophoto-worker/internal/api/model"
	"github.com/cuongbtq/geophoto-worker/internal/api/storage"
)

// DecisionStore reads recorded photo decisions
type DecisionStore interface {
	GetDecision(ctx context.Context, photoID, campaign string) (*model.Decision, error)
	ListDecisions(ctx context.Context, filter storage.DecisionFilter) ([]model.Decision, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Store       DecisionStore
	HealthCheck func(ctx context.Context) error
}

// DecisionHandler handles decision-related HTTP requests
type DecisionHandler struct {
	logger *slog.Logger
	store  DecisionStore
}

// NewDecisionHandler creates a new DecisionHandler instance
func NewDecisionHandler(deps *Dependencies) *DecisionHandler {
	return &DecisionHandler{
		logger: deps.Logger,
		store:  deps.Store,
	}
}
