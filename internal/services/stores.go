package services

import (
	"context"

	"github.com/adpilot/backend/internal/adplatform"
	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/repositories"
	"github.com/google/uuid"
)

// The interfaces below are what the services need from the record store and
// the ad platform. The repositories and *adplatform.Client satisfy them.

type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	Update(ctx context.Context, c *models.Campaign) error
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error)
	GetGraph(ctx context.Context, id uuid.UUID) (*models.CampaignGraph, error)
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type AdSetStore interface {
	Create(ctx context.Context, s *models.AdSet) error
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error
}

type CreativeStore interface {
	Create(ctx context.Context, c *models.AdCreative) error
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error
}

type AdStore interface {
	Create(ctx context.Context, a *models.Ad) error
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

type AdPlatform interface {
	CreateCampaign(ctx context.Context, p adplatform.CampaignParams) (string, error)
	CreateAdSet(ctx context.Context, p adplatform.AdSetParams) (string, error)
	CreateAdCreative(ctx context.Context, p adplatform.CreativeParams) (string, error)
	CreateAd(ctx context.Context, p adplatform.AdParams) (string, error)
	UpdateCampaign(ctx context.Context, externalID string, u adplatform.CampaignUpdate) error
	DeleteCampaign(ctx context.Context, externalID string) error
	DeleteObject(ctx context.Context, externalID string) error
}

type InsightsSource interface {
	GetInsights(ctx context.Context, externalID, level string, dr adplatform.DateRange) ([]models.Insight, error)
}

// Stores groups the record store tables the provisioning saga writes.
type Stores struct {
	Campaigns CampaignStore
	AdSets    AdSetStore
	Creatives CreativeStore
	Ads       AdStore
	Audit     AuditLogger
}
