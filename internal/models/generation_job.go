package models

import "github.com/google/uuid"

// GenerationJob is the work queue message body.
type GenerationJob struct {
	JobID      uuid.UUID `json:"jobId"`
	CampaignID uuid.UUID `json:"campaignId"`
	URL        string    `json:"url"`
	Objective  string    `json:"objective"`
}
