package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinTargetAge = 13
	MaxTargetAge = 65
)

type Targeting struct {
	AgeMin    int      `json:"age_min"`
	AgeMax    int      `json:"age_max"`
	Interests []string `json:"interests"`
}

func (t Targeting) ValidAgeRange() bool {
	return t.AgeMin >= MinTargetAge && t.AgeMax <= MaxTargetAge && t.AgeMin <= t.AgeMax
}

type AdSet struct {
	ID          uuid.UUID `json:"id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	Name        string    `json:"name"`
	DailyBudget int64     `json:"daily_budget"` // minor currency units
	Targeting   Targeting `json:"targeting"`
	ExternalID  *string   `json:"external_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
