package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS photo_decisions (
	photo_id         TEXT        NOT NULL,
	campaign         TEXT        NOT NULL,
	status           TEXT        NOT NULL,
	photo_url        TEXT        NOT NULL DEFAULT '',
	photo_created_at TEXT        NOT NULL DEFAULT '',
	processed_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (campaign, photo_id)
);
DROP INDEX IF EXISTS idx_photo_decisions_processed_at;
CREATE INDEX IF NOT EXISTS idx_photo_decisions_keyset
	ON photo_decisions (processed_at DESC, photo_id DESC, campaign DESC);
`

// PostgresTracker persists decisions in the photo_decisions table, which the
// decision API reads as well
type PostgresTracker struct {
	db       *sqlx.DB
	campaign string
	logger   *slog.Logger
}

var _ Tracker = (*PostgresTracker)(nil)

// NewPostgresTracker creates a tracker scoped to one campaign
func NewPostgresTracker(db *sqlx.DB, campaign string, logger *slog.Logger) *PostgresTracker {
	return &PostgresTracker{db: db, campaign: campaign, logger: logger}
}

// EnsureSchema creates the decisions table when missing
func (p *PostgresTracker) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create photo_decisions: %w", err)
	}
	return nil
}

func (p *PostgresTracker) Seen(ctx context.Context, photoID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM photo_decisions WHERE campaign = $1 AND photo_id = $2
		)
	`

	var exists bool
	if err := p.db.GetContext(ctx, &exists, query, p.campaign, photoID); err != nil {
		return false, fmt.Errorf("failed to check decision: %w", err)
	}
	return exists, nil
}

func (p *PostgresTracker) Mark(ctx context.Context, decision domain.Decision) error {
	query := `
		INSERT INTO photo_decisions (photo_id, campaign, status, photo_url, photo_created_at, processed_at)
		VALUES (:photo_id, :campaign, :status, :photo_url, :photo_created_at, :processed_at)
		ON CONFLICT (campaign, photo_id) DO NOTHING
	`

	if decision.Campaign == "" {
		decision.Campaign = p.campaign
	}
	if decision.ProcessedAt.IsZero() {
		decision.ProcessedAt = time.Now().UTC()
	}

	result, err := p.db.NamedExecContext(ctx, query, decision)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		p.logger.Warn("Decision already recorded",
			slog.String("photo_id", decision.PhotoID),
			slog.String("campaign", decision.Campaign),
		)
	}
	return nil
}

func (p *PostgresTracker) Len(ctx context.Context) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM photo_decisions WHERE campaign = $1`, p.campaign); err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return n, nil
}

// Close is a no-op; the connection pool is owned by the caller
func (p *PostgresTracker) Close() error {
	return nil
}
