package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
	"github.com/cuongbtq/geophoto-worker/internal/worker/metrics"
)

// recordTimeout bounds Mark and PublishDecision once the loop is shutting down
const recordTimeout = 5 * time.Second

// processPhoto runs one photo through fetch, verify and accept and records
// the outcome. A photo the tracker already holds is never touched again.
func (w *Worker) processPhoto(ctx context.Context, photo domain.Photo) {
	logger := w.logger.With(slog.String("photo_id", photo.ID))

	if photo.ID == "" {
		logger.Warn("Skipping photo without id", slog.String("photo_url", photo.PhotoURL))
		return
	}

	seen, err := w.tracker.Seen(ctx, photo.ID)
	if err != nil {
		// retried on a later poll if the feed still returns it
		logger.Warn("Failed to check dedup tracker, skipping photo", slog.Any("error", err))
		return
	}
	if seen {
		metrics.PhotosSkipped.Inc()
		logger.Debug("Photo already processed")
		return
	}

	status := w.attempt(ctx, photo, logger)

	// An interrupted attempt is left unrecorded so the next run picks the
	// photo up again. A completed accept is always recorded.
	if ctx.Err() != nil && status != domain.StatusAccepted {
		logger.Info("Photo processing interrupted", slog.String("status", string(status)))
		return
	}

	decision := domain.Decision{
		PhotoID:     photo.ID,
		Campaign:    w.campaign,
		Status:      status,
		PhotoURL:    photo.PhotoURL,
		CreatedAt:   photo.CreatedAt,
		ProcessedAt: w.clock.Now().UTC(),
	}
	w.record(ctx, decision, logger)
}

// attempt returns the outcome status of processing photo
func (w *Worker) attempt(ctx context.Context, photo domain.Photo, logger *slog.Logger) domain.Status {
	path, err := w.fetcher.Fetch(ctx, photo)
	if err != nil {
		logger.Warn("Failed to download photo", slog.Any("error", err))
		return domain.StatusDownloadFailed
	}

	if !w.verifier.Verify(ctx, path, photo.ID) {
		logger.Info("Photo rejected")
		return domain.StatusRejected
	}

	result, err := w.accept(ctx, photo.ID)

	if err == nil && (result == nil || !result.Success) {
		message := "accept not successful"
		if result != nil && result.Message != "" {
			message = result.Message
		}
		err = errors.New(message)
	}
	if err != nil {
		logger.Error("Failed to accept photo",
			slog.Any("error", domain.NewStageError(domain.ErrAccept, "accept", photo.ID, err)),
		)
		return domain.StatusAcceptFailed
	}

	logger.Info("Photo accepted")
	return domain.StatusAccepted
}

// accept is issued once. A failed call may still have reached the service,
// so it is never repeated.
func (w *Worker) accept(ctx context.Context, photoID string) (*domain.Classification, error) {
	if timeout := w.retrier.Policy().AttemptTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := w.session.Accept(ctx, photoID)
	metrics.ObserveCall("accept-photo", start, err)
	return result, err
}

// record marks the photo processed and publishes the decision. Publish
// failures never change the outcome.
func (w *Worker) record(ctx context.Context, decision domain.Decision, logger *slog.Logger) {
	recordCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
	}

	if err := w.tracker.Mark(recordCtx, decision); err != nil {
		logger.Error("Failed to record decision",
			slog.String("status", string(decision.Status)),
			slog.Any("error", err),
		)
	}
	metrics.RecordDecision(decision.Status)

	if err := w.sink.PublishDecision(recordCtx, decision); err != nil {
		metrics.EventPublishFailures.Inc()
		logger.Warn("Failed to publish decision event", slog.Any("error", err))
	}
}
