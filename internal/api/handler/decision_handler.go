package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/geophoto-worker/internal/api/domain"
	"github.com/cuongbtq/geophoto-worker/internal/api/dto"
	"github.com/cuongbtq/geophoto-worker/internal/api/model"
	"github.com/cuongbtq/geophoto-worker/internal/api/storage"
	workerdomain "github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GetDecision handles GET /api/v1/decisions/:photo_id
func (h *DecisionHandler) GetDecision(c *gin.Context) {
	photoID := c.Param("photo_id")
	if photoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "photo_id is required",
		})
		return
	}

	var req dto.GetDecisionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	decision, err := h.store.GetDecision(c.Request.Context(), photoID, req.Campaign)
	if err != nil {
		if errors.Is(err, domain.ErrDecisionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Decision not found",
			})
			return
		}
		h.logger.Error("Failed to get decision",
			slog.String("photo_id", photoID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get decision",
		})
		return
	}

	c.JSON(http.StatusOK, toDTO(*decision))
}

// ListDecisions handles GET /api/v1/decisions, newest first
func (h *DecisionHandler) ListDecisions(c *gin.Context) {
	var req dto.ListDecisionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Status != "" && !workerdomain.Status(req.Status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of accepted, rejected, download_failed, accept_failed",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeDecisionCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	decisions, err := h.store.ListDecisions(c.Request.Context(), storage.DecisionFilter{
		Campaign: req.Campaign,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list decisions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list decisions",
		})
		return
	}

	hasMore := len(decisions) > req.PageSize
	if hasMore {
		decisions = decisions[:req.PageSize]
	}

	items := make([]dto.DecisionDTO, len(decisions))
	for i, d := range decisions {
		items[i] = toDTO(d)
	}

	var nextCursor string
	if hasMore {
		last := decisions[len(decisions)-1]
		nextCursor = EncodeDecisionCursor(&storage.DecisionCursor{
			ProcessedAt: last.ProcessedAt,
			PhotoID:     last.PhotoID,
			Campaign:    last.Campaign,
		})
	}

	c.JSON(http.StatusOK, dto.ListDecisionsResponse{
		Decisions:  items,
		NextCursor: nextCursor,
	})
}

func toDTO(d model.Decision) dto.DecisionDTO {
	status := workerdomain.Status(d.Status)
	return dto.DecisionDTO{
		PhotoID:        d.PhotoID,
		Campaign:       d.Campaign,
		Status:         d.Status,
		Verified:       workerdomain.Decision{Status: status}.Verified(),
		PhotoURL:       d.PhotoURL,
		PhotoCreatedAt: d.PhotoCreatedAt,
		ProcessedAt:    d.ProcessedAt.UTC().Format(time.RFC3339Nano),
	}
}
