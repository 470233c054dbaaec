package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses
const (
	CampaignStatusDraft   = "draft"
	CampaignStatusActive  = "active"
	CampaignStatusPaused  = "paused"
	CampaignStatusDeleted = "deleted"
)

// Campaign objectives
const (
	ObjectiveWebsiteTraffic = "website_traffic"
	ObjectiveLeadGeneration = "lead_generation"
	ObjectiveSales          = "sales"
	ObjectiveEngagement     = "engagement"
)

type Objective struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var Objectives = []Objective{
	{ID: ObjectiveWebsiteTraffic, Title: "Website Traffic", Description: "Send people to a destination like your website or app."},
	{ID: ObjectiveLeadGeneration, Title: "Lead Generation", Description: "Collect leads for your business or brand."},
	{ID: ObjectiveSales, Title: "Sales", Description: "Find people likely to purchase your products or services."},
	{ID: ObjectiveEngagement, Title: "Engagement", Description: "Get more messages, video views, or post engagement."},
}

func LookupObjective(id string) (Objective, bool) {
	for _, o := range Objectives {
		if o.ID == id {
			return o, true
		}
	}
	return Objective{}, false
}

func IsValidCampaignStatus(s string) bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused, CampaignStatusDeleted:
		return true
	}
	return false
}

type Campaign struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Name       string    `json:"name"`
	Objective  string    `json:"objective"`
	Status     string    `json:"status"`
	ExternalID *string   `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CampaignGraph is a campaign with everything it owns by foreign key.
type CampaignGraph struct {
	Campaign  Campaign     `json:"campaign"`
	AdSets    []AdSet      `json:"ad_sets"`
	Creatives []AdCreative `json:"ad_creatives"`
	Ads       []Ad         `json:"ads"`
}
