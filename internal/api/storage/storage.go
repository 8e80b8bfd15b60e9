package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/geophoto-worker/internal/api/domain"
	"github.com/cuongbtq/geophoto-worker/internal/api/model"
	"github.com/cuongbtq/geophoto-worker/shared/postgresql"
)

const decisionColumns = `photo_id, campaign, status, photo_url, photo_created_at, processed_at`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return New(pg.GetDB())
}

// New wraps an existing pool
func New(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

type DecisionFilter struct {
	Campaign string
	Status   string
	PageSize int
	Cursor   *DecisionCursor
}

// DecisionCursor is the position after the last row of a page. Campaign
// breaks ties between campaigns that share a photo id.
type DecisionCursor struct {
	ProcessedAt time.Time
	PhotoID     string
	Campaign    string
}

// GetDecision returns the most recent decision for a photo, optionally
// restricted to one campaign
func (s *Storage) GetDecision(ctx context.Context, photoID, campaign string) (*model.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM photo_decisions WHERE photo_id = $1`
	args := []interface{}{photoID}
	if campaign != "" {
		query += ` AND campaign = $2`
		args = append(args, campaign)
	}
	query += ` ORDER BY processed_at DESC LIMIT 1`

	var decision model.Decision
	if err := s.db.GetContext(ctx, &decision, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDecisionNotFound
		}
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return &decision, nil
}

// ListDecisions returns up to PageSize+1 rows so callers can tell whether
// another page exists
func (s *Storage) ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.Decision, error) {
	query, args := buildListQuery(filter)

	var decisions []model.Decision
	if err := s.db.SelectContext(ctx, &decisions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return decisions, nil
}

func buildListQuery(filter DecisionFilter) (string, []interface{}) {
	query := `SELECT ` + decisionColumns + ` FROM photo_decisions WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Campaign != "" {
		query += fmt.Sprintf(" AND campaign = $%d", argIdx)
		args = append(args, filter.Campaign)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (processed_at, photo_id, campaign) < ($%d, $%d, $%d)", argIdx, argIdx+1, argIdx+2)
		args = append(args, filter.Cursor.ProcessedAt, filter.Cursor.PhotoID, filter.Cursor.Campaign)
		argIdx += 3
	}

	// matches idx_photo_decisions_keyset
	query += " ORDER BY processed_at DESC, photo_id DESC, campaign DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	return query, args
}
