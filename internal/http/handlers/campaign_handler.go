package handlers

import (
	"context"
	"strconv"

	"github.com/adpilot/backend/internal/http/dto"
	"github.com/adpilot/backend/internal/middleware"
	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/repositories"
	"github.com/adpilot/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CampaignProvisioner interface {
	CreateFullCampaign(ctx context.Context, ownerID uuid.UUID, spec services.CampaignSpec) (*models.CampaignGraph, services.MirrorReport, error)
	GetCampaign(ctx context.Context, ownerID, id uuid.UUID) (*models.CampaignGraph, error)
	ListCampaigns(ctx context.Context, ownerID uuid.UUID, f repositories.CampaignFilter) ([]models.CampaignGraph, error)
	UpdateCampaign(ctx context.Context, ownerID, id uuid.UUID, patch services.CampaignPatch) (*models.Campaign, services.MirrorReport, error)
	DeleteCampaign(ctx context.Context, ownerID, id uuid.UUID) (services.MirrorReport, error)
}

type CampaignHistory interface {
	History(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

type CampaignHandler struct {
	provisioner CampaignProvisioner
	history     CampaignHistory
	log         *zap.Logger
}

func NewCampaignHandler(provisioner CampaignProvisioner, history CampaignHistory, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{provisioner: provisioner, history: history, log: log}
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	spec := services.CampaignSpec{
		Name:        req.Name,
		Objective:   req.Objective,
		AdSetName:   req.AdSetName,
		DailyBudget: req.DailyBudget,
		Targeting: models.Targeting{
			AgeMin:    req.Targeting.AgeMin,
			AgeMax:    req.Targeting.AgeMax,
			Interests: req.Targeting.Interests,
		},
		Creative: services.CreativeSpec{
			ImageURL:    req.Creative.ImageURL,
			LinkURL:     req.Creative.LinkURL,
			Headline:    req.Creative.Headline,
			PrimaryText: req.Creative.PrimaryText,
		},
		AdName: req.AdName,
	}

	graph, report, err := h.provisioner.CreateFullCampaign(c.UserContext(), middleware.GetUserID(c), spec)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.CampaignMutationResponse{
		Campaign: graph,
		Mirror:   report,
	}})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	graph, err := h.provisioner.GetCampaign(c.UserContext(), middleware.GetUserID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: graph})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	filter := repositories.CampaignFilter{
		Limit:  20,
		Offset: 0,
	}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		if !models.IsValidCampaignStatus(v) {
			return badRequest(c, "invalid status")
		}
		filter.Status = &v
	}

	graphs, err := h.provisioner.ListCampaigns(c.UserContext(), middleware.GetUserID(c), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: graphs})
}

func (h *CampaignHandler) UpdateCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	var req dto.UpdateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	patch := services.CampaignPatch{Name: req.Name, Objective: req.Objective, Status: req.Status}
	campaign, report, err := h.provisioner.UpdateCampaign(c.UserContext(), middleware.GetUserID(c), id, patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.CampaignMutationResponse{
		Campaign: campaign,
		Mirror:   report,
	}})
}

func (h *CampaignHandler) DeleteCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	report, err := h.provisioner.DeleteCampaign(c.UserContext(), middleware.GetUserID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.CampaignMutationResponse{Mirror: report}})
}

// GetHistory lists the campaign's audit entries, newest first.
func (h *CampaignHandler) GetHistory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	if _, err := h.provisioner.GetCampaign(c.UserContext(), middleware.GetUserID(c), id); err != nil {
		return respondError(c, h.log, err)
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	entries, err := h.history.History(c.UserContext(), id, limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}
