package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/geophoto-worker/internal/worker/bootstrap"
	"github.com/cuongbtq/geophoto-worker/internal/worker/dedup"
	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
	"github.com/cuongbtq/geophoto-worker/internal/worker/events"
	"github.com/cuongbtq/geophoto-worker/internal/worker/metrics"
	"github.com/cuongbtq/geophoto-worker/shared/clock"
	"github.com/cuongbtq/geophoto-worker/shared/retry"
)

// Session is the part of the photo service the loop drives directly
type Session interface {
	Login(ctx context.Context) (bool, error)
	GetCampaignPhotos(ctx context.Context, campaign string, since domain.Cursor) ([]domain.Photo, error)
	Accept(ctx context.Context, photoID string) (*domain.Classification, error)
}

// Fetcher stores a photo locally and cleans up leftovers
type Fetcher interface {
	Fetch(ctx context.Context, photo domain.Photo) (string, error)
	Sweep() (int, error)
}

// Verifier classifies a downloaded photo and removes its file
type Verifier interface {
	Verify(ctx context.Context, path, photoID string) bool
}

// Bootstrapper makes sure the campaign exists
type Bootstrapper interface {
	Ensure(ctx context.Context) bootstrap.Outcome
}

// Config holds worker dependencies
type Config struct {
	Session      Session
	Fetcher      Fetcher
	Verifier     Verifier
	Bootstrapper Bootstrapper
	Tracker      dedup.Tracker
	Sink         events.Sink
	Retrier      *retry.Retrier
	Clock        clock.Clock
	Logger       *slog.Logger
	Campaign     string
	PollInterval time.Duration
}

// Worker polls the campaign feed and processes new photos one at a time
type Worker struct {
	session      Session
	fetcher      Fetcher
	verifier     Verifier
	bootstrapper Bootstrapper
	tracker      dedup.Tracker
	sink         events.Sink
	retrier      *retry.Retrier
	clock        clock.Clock
	logger       *slog.Logger
	campaign     string
	pollInterval time.Duration

	// read by the health endpoint
	mu     sync.RWMutex
	state  domain.State
	cursor domain.Cursor
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) (*Worker, error) {
	if cfg.Session == nil || cfg.Fetcher == nil || cfg.Verifier == nil || cfg.Tracker == nil {
		return nil, errors.New("session, fetcher, verifier and tracker are required")
	}
	if cfg.Campaign == "" {
		return nil, errors.New("campaign is required")
	}

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
		retrier = retry.New(retry.DefaultPolicy(), clk, logger)
	}
	var sink events.Sink = events.NopSink{}
	if cfg.Sink != nil {
		sink = cfg.Sink
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = domain.DefaultPollInterval
	}

	return &Worker{
		session:      cfg.Session,
		fetcher:      cfg.Fetcher,
		verifier:     cfg.Verifier,
		bootstrapper: cfg.Bootstrapper,
		tracker:      cfg.Tracker,
		sink:         sink,
		retrier:      retrier,
		clock:        clk,
		logger:       logger,
		campaign:     cfg.Campaign,
		pollInterval: pollInterval,
		state:        domain.StateLogin,
	}, nil
}

// Run drives the loop until ctx is cancelled or login fails. Cancellation
// is a clean stop and returns nil; a failed login returns an error wrapping
// domain.ErrAuth.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("campaign", w.campaign),
		slog.Duration("poll_interval", w.pollInterval),
	)

	w.sweep("start")
	defer w.sweep("stop")

	var batch []domain.Photo
	state := domain.StateLogin

	for {
		if state != domain.StateFatal && ctx.Err() != nil {
			state = domain.StateStopped
		}
		w.setState(state)

		switch state {
		case domain.StateLogin:
			if err := w.login(ctx); err != nil {
				if ctx.Err() != nil {
					state = domain.StateStopped
					continue
				}
				w.setState(domain.StateFatal)
				w.logger.Error("Worker stopped on login failure", slog.Any("error", err))
				return err
			}
			state = domain.StateBootstrap

		case domain.StateBootstrap:
			if w.bootstrapper != nil {
				w.bootstrapper.Ensure(ctx)
			}
			state = domain.StatePoll

		case domain.StatePoll:
			batch = w.poll(ctx)
			state = domain.StateProcessBatch

		case domain.StateProcessBatch:
			w.processBatch(ctx, batch)
			batch = nil
			state = domain.StateSleep

		case domain.StateSleep:
			if err := w.clock.Sleep(ctx, w.pollInterval); err != nil {
				state = domain.StateStopped
				continue
			}
			state = domain.StatePoll

		case domain.StateStopped:
			w.logger.Info("Worker context canceled, stopping",
				slog.String("cursor", w.Cursor().String()),
			)
			return nil
		}
	}
}

// State returns the current loop state
func (w *Worker) State() domain.State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Cursor returns the feed position
func (w *Worker) Cursor() domain.Cursor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cursor
}

func (w *Worker) setState(s domain.State) {
	w.mu.Lock()
	prev := w.state
	w.state = s
	w.mu.Unlock()

	if prev != s {
		w.logger.Debug("State transition", slog.String("from", string(prev)), slog.String("to", string(s)))
	}
}

func (w *Worker) login(ctx context.Context) error {
	start := time.Now()
	ok, err := retry.Value(ctx, w.retrier, "login", w.session.Login)
	metrics.ObserveCall("login", start, err)

	if err != nil {
		return domain.NewStageError(domain.ErrAuth, "login", "", err)
	}
	if !ok {
		return domain.NewStageError(domain.ErrAuth, "login", "", errors.New("login rejected by photo service"))
	}

	w.logger.Info("Logged in to photo service")
	return nil
}

// poll reads the next batch; failures yield an empty batch
func (w *Worker) poll(ctx context.Context) []domain.Photo {
	since := w.Cursor()

	start := time.Now()
	photos, err := retry.Value(ctx, w.retrier, "photo-feed-from-campaign",
		func(ctx context.Context) ([]domain.Photo, error) {
			return w.session.GetCampaignPhotos(ctx, w.campaign, since)
		})
	metrics.ObserveCall("photo-feed-from-campaign", start, err)
	metrics.RecordPoll(len(photos), err)

	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("Failed to fetch photo batch",
				slog.String("campaign", w.campaign),
				slog.String("cursor", since.String()),
				slog.Any("error", domain.NewStageError(domain.ErrFetchBatch, "poll", "", err)),
			)
		}
		return nil
	}

	if len(photos) > 0 {
		w.logger.Debug("Fetched photo batch",
			slog.Int("count", len(photos)),
			slog.String("cursor", since.String()),
		)
	}
	return photos
}

// processBatch advances the cursor to the newest photo, then handles every
// photo in arrival order
func (w *Worker) processBatch(ctx context.Context, photos []domain.Photo) {
	if len(photos) == 0 {
		return
	}

	w.mu.Lock()
	advanced := w.cursor.Advance(photos[0].CreatedAt)
	cursor := w.cursor
	w.mu.Unlock()

	if advanced {
		metrics.RecordCursor(cursor)
		w.logger.Debug("Cursor advanced", slog.String("cursor", cursor.String()))
	}

	for _, photo := range photos {
		if ctx.Err() != nil {
			return
		}
		w.processPhoto(ctx, photo)
	}

	if n, err := w.tracker.Len(ctx); err == nil {
		metrics.DedupEntries.Set(float64(n))
	}
}

func (w *Worker) sweep(when string) {
	removed, err := w.fetcher.Sweep()
	if err != nil {
		w.logger.Warn("Failed to sweep work dir", slog.String("when", when), slog.Any("error", err))
		return
	}
	if removed > 0 {
		w.logger.Info("Removed leftover photo files", slog.String("when", when), slog.Int("count", removed))
	}
}
