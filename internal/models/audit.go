package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActorUser   = "user"
	ActorWorker = "worker"

	AuditEntityCampaign = "campaign"

	AuditCampaignCreated     = "campaign_created"
	AuditCampaignUpdated     = "campaign_updated"
	AuditCampaignDeleted     = "campaign_deleted"
	AuditCreativesGenerated  = "creatives_generated"
	AuditGenerationRequested = "generation_requested"
)

type AuditLog struct {
	ID          uuid.UUID  `json:"id"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	ActorType   string     `json:"actor_type"`
	Action      string     `json:"action"`
	EntityType  string     `json:"entity_type"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Meta        any        `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
