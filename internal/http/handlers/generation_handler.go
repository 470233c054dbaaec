package handlers

import (
	"context"

	"github.com/adpilot/backend/internal/http/dto"
	"github.com/adpilot/backend/internal/middleware"
	"github.com/adpilot/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GenerationRequester interface {
	Request(ctx context.Context, ownerID, campaignID uuid.UUID, rawURL string) (models.GenerationJob, error)
}

type GenerationHandler struct {
	requests GenerationRequester
	log      *zap.Logger
}

func NewGenerationHandler(requests GenerationRequester, log *zap.Logger) *GenerationHandler {
	return &GenerationHandler{requests: requests, log: log}
}

// RequestGeneration queues creative generation for a URL. The result arrives
// later as a generation_completed event.
func (h *GenerationHandler) RequestGeneration(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	var req dto.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	job, err := h.requests.Request(c.UserContext(), middleware.GetUserID(c), id, req.URL)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.SuccessResponse{OK: true, Data: dto.GenerateResponse{
		JobID:      job.JobID.String(),
		CampaignID: job.CampaignID.String(),
		Status:     "queued",
	}})
}
