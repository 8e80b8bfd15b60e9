package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
	"github.com/cuongbtq/geophoto-worker/shared/clock"
)

const filePattern = "photo_*.jpg"

var safeID = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Config holds fetcher settings
type Config struct {
	WorkDir    string
	FlushDelay time.Duration
	MaxBytes   int64
	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Fetcher downloads photos into the work directory, one file per photo
type Fetcher struct {
	workDir    string
	flushDelay time.Duration
	maxBytes   int64
	http       *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// New creates a fetcher and makes sure the work directory exists
func New(cfg Config) (*Fetcher, error) {
	if cfg.WorkDir == "" {
		return nil, errors.New("work dir is required")
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		workDir:    cfg.WorkDir,
		flushDelay: cfg.FlushDelay,
		maxBytes:   cfg.MaxBytes,
		http:       httpClient,
		clock:      clk,
		logger:     logger,
	}, nil
}

// Path returns where the photo with the given id is stored
func (f *Fetcher) Path(photoID string) string {
	return filepath.Join(f.workDir, "photo_"+photoID+".jpg")
}

// Fetch downloads the photo and returns the local path. On any failure the
// partial file is removed and the error wraps domain.ErrDownload.
func (f *Fetcher) Fetch(ctx context.Context, photo domain.Photo) (string, error) {
	if !safeID.MatchString(photo.ID) || photo.ID == "." || photo.ID == ".." {
		return "", domain.NewStageError(domain.ErrDownload, "download", photo.ID, domain.ErrInvalidPhotoID)
	}

	path := f.Path(photo.ID)
	f.logger.Info("Downloading photo",
		slog.String("photo_id", photo.ID),
		slog.String("path", path),
	)

	size, err := f.download(ctx, photo.PhotoURL, path)
	if err != nil {
		f.discard(path)
		return "", domain.NewStageError(domain.ErrDownload, "download", photo.ID, err)
	}

	if err := f.clock.Sleep(ctx, f.flushDelay); err != nil {
		f.discard(path)
		return "", domain.NewStageError(domain.ErrDownload, "download", photo.ID, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		f.discard(path)
		return "", domain.NewStageError(domain.ErrDownload, "stat", photo.ID, err)
	}
	if info.Size() == 0 {
		f.discard(path)
		return "", domain.NewStageError(domain.ErrDownload, "stat", photo.ID, errors.New("empty file"))
	}

	f.logger.Info("Photo downloaded",
		slog.String("photo_id", photo.ID),
		slog.Int64("size", info.Size()),
		slog.Int64("written", size),
	)
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	if url == "" {
		return 0, errors.New("photo url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	written, copyErr := io.Copy(file, body)
	syncErr := file.Sync()
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		return written, fmt.Errorf("failed to write photo: %w", copyErr)
	case f.maxBytes > 0 && written > f.maxBytes:
		return written, fmt.Errorf("photo exceeds %d bytes", f.maxBytes)
	case syncErr != nil:
		return written, fmt.Errorf("failed to sync photo: %w", syncErr)
	case closeErr != nil:
		return written, fmt.Errorf("failed to close photo: %w", closeErr)
	}
	return written, nil
}

func (f *Fetcher) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Warn("Failed to remove partial download",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
}

// Sweep removes every leftover photo file from the work directory and
// reports how many were deleted
func (f *Fetcher) Sweep() (int, error) {
	matches, err := filepath.Glob(filepath.Join(f.workDir, filePattern))
	if err != nil {
		return 0, fmt.Errorf("failed to list work dir: %w", err)
	}

	var errs []error
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%w: %s: %v", domain.ErrCleanup, path, err))
			continue
		}
		removed++
	}

	if removed > 0 {
		f.logger.Info("Removed leftover photo files", slog.Int("count", removed))
	}
	return removed, errors.Join(errs...)
}
