package dedup

import (
	"context"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

// Tracker remembers which photos have already been handled. A photo that is
// Seen must never be classified or accepted again.
type Tracker interface {
	Seen(ctx context.Context, photoID string) (bool, error)
	Mark(ctx context.Context, decision domain.Decision) error
	Len(ctx context.Context) (int, error)
	Close() error
}
