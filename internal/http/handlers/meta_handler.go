package handlers

import (
	"github.com/adpilot/backend/internal/http/dto"
	"github.com/adpilot/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaLevel struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var insightLevels = []MetaLevel{
	{ID: models.LevelCampaign, Label: "Campaign"},
	{ID: models.LevelAdSet, Label: "Ad set"},
	{ID: models.LevelAd, Label: "Ad"},
}

func (h *MetaHandler) GetObjectives(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: models.Objectives})
}

func (h *MetaHandler) GetInsightLevels(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: insightLevels})
}
