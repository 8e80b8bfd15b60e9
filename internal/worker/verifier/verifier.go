package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
	"github.com/cuongbtq/geophoto-worker/shared/retry"
)

// Classifier is the remote capability that judges a photo
type Classifier interface {
	Classify(ctx context.Context, photoID string) (*domain.Classification, error)
}

// Config holds verifier dependencies
type Config struct {
	Classifier Classifier
	Retrier    *retry.Retrier
	Logger     *slog.Logger
	// Remove deletes the temporary file, os.Remove when nil
	Remove func(path string) error
}

// Verifier classifies a downloaded photo and always deletes its file
type Verifier struct {
	classifier Classifier
	retrier    *retry.Retrier
	logger     *slog.Logger
	remove     func(path string) error
}

// New creates a verifier
func New(cfg Config) *Verifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retrier := cfg.Retrier
	if retrier == nil {
		retrier = retry.New(retry.Policy{MaxAttempts: 1}, nil, logger)
	}
	remove := cfg.Remove
	if remove == nil {
		remove = os.Remove
	}

	return &Verifier{
		classifier: cfg.Classifier,
		retrier:    retrier,
		logger:     logger,
		remove:     remove,
	}
}

// Verify reports whether the service classified the photo as genuine.
// Classification errors and panics count as not verified. The file at path
// is removed on every exit path.
func (v *Verifier) Verify(ctx context.Context, path, photoID string) (verified bool) {
	defer v.cleanup(path, photoID)
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Classification panicked",
				slog.String("photo_id", photoID),
				slog.Any("panic", r),
			)
			verified = false
		}
	}()

	v.logger.Info("Classifying photo", slog.String("photo_id", photoID))

	result, err := retry.Value(ctx, v.retrier, "classify-photo", func(ctx context.Context) (*domain.Classification, error) {
		return v.classifier.Classify(ctx, photoID)
	})
	if err != nil {
		err = domain.NewStageError(domain.ErrClassify, "classify", photoID, err)
		v.logger.Error("Classification error",
			slog.String("photo_id", photoID),
			slog.Any("error", err),
		)
		return false
	}

	if result == nil {
		return false
	}

	v.logger.Info("Classification result",
		slog.String("photo_id", photoID),
		slog.Bool("verified", result.Verified),
	)
	return result.Verified
}

func (v *Verifier) cleanup(path, photoID string) {
	if path == "" {
		return
	}

	if err := v.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		err = domain.NewStageError(domain.ErrCleanup, "cleanup", photoID, fmt.Errorf("%s: %w", path, err))
		v.logger.Error("Failed to clean up file",
			slog.String("photo_id", photoID),
			slog.Any("error", err),
		)
		return
	}

	v.logger.Debug("Cleaned up temporary file", slog.String("path", path))
}
