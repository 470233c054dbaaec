package handlers

import (
	"context"
	"time"

	"github.com/adpilot/backend/internal/http/dto"
	"github.com/adpilot/backend/internal/middleware"
	"github.com/adpilot/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PerformanceReader interface {
	Get(ctx context.Context, ownerID, campaignID uuid.UUID, q services.PerformanceQuery) (*services.Performance, error)
}

type PerformanceHandler struct {
	performance PerformanceReader
	log         *zap.Logger
}

func NewPerformanceHandler(performance PerformanceReader, log *zap.Logger) *PerformanceHandler {
	return &PerformanceHandler{performance: performance, log: log}
}

// GetPerformance serves GET /campaigns/:id/performance?user_id=&level=&since=&until=.
func (h *PerformanceHandler) GetPerformance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	userID := middleware.GetUserID(c)
	if v := c.Query("user_id"); v != "" {
		if q, err := uuid.Parse(v); err != nil || q != userID {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:     "user_id does not match the authenticated user",
				RequestID: middleware.GetRequestID(c),
			})
		}
	}

	q := services.PerformanceQuery{Level: c.Query("level")}
	if q.Since, err = parseDate(c.Query("since")); err != nil {
		return badRequest(c, "since must be YYYY-MM-DD")
	}
	if q.Until, err = parseDate(c.Query("until")); err != nil {
		return badRequest(c, "until must be YYYY-MM-DD")
	}

	perf, err := h.performance.Get(c.UserContext(), userID, id, q)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: perf})
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, v)
}
