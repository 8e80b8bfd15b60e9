package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/geophoto-worker/internal/api/storage"
)

func DecodeDecisionCursor(cursorStr string) (*storage.DecisionCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	// photo ids never contain "|", campaign names may
	parts := strings.SplitN(string(decoded), "|", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var processedAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &processedAt); err != nil {
		return nil, fmt.Errorf("invalid processed_at in cursor: %w", err)
	}

	return &storage.DecisionCursor{
		ProcessedAt: time.Unix(0, processedAt).UTC(),
		PhotoID:     parts[1],
		Campaign:    parts[2],
	}, nil
}

func EncodeDecisionCursor(cursor *storage.DecisionCursor) string {
	cs := fmt.Sprintf("%d|%s|%s", cursor.ProcessedAt.UnixNano(), cursor.PhotoID, cursor.Campaign)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
