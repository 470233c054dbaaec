package models

import (
	"time"

	"github.com/google/uuid"
)

type AdCreative struct {
	ID          uuid.UUID  `json:"id"`
	CampaignID  uuid.UUID  `json:"campaign_id"`
	ImageURL    string     `json:"image_url"`
	LinkURL     string     `json:"link_url,omitempty"`
	Headline    string     `json:"headline,omitempty"`
	PrimaryText string     `json:"primary_text,omitempty"`
	JobID       *uuid.UUID `json:"job_id,omitempty"` // set for rows written by the generation worker
	ExternalID  *string    `json:"external_id,omitempty"`
	Copies      []AdCopy   `json:"copies,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type AdCopy struct {
	ID          uuid.UUID `json:"id"`
	CreativeID  uuid.UUID `json:"creative_id"`
	Headline    string    `json:"headline"`
	PrimaryText string    `json:"primary_text"`
	CreatedAt   time.Time `json:"created_at"`
}

type Ad struct {
	ID         uuid.UUID `json:"id"`
	AdSetID    uuid.UUID `json:"ad_set_id"`
	CreativeID uuid.UUID `json:"creative_id"`
	Name       string    `json:"name"`
	ExternalID *string   `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
