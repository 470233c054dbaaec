package models

import "github.com/google/uuid"

// Insight levels
const (
	LevelCampaign = "campaign"
	LevelAdSet    = "adset"
	LevelAd       = "ad"
)

func IsValidLevel(l string) bool {
	return l == LevelCampaign || l == LevelAdSet || l == LevelAd
}

// Insight is one day of delivery metrics for a platform object.
type Insight struct {
	Date        string  `json:"date"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Reach       int64   `json:"reach"`
	Spend       float64 `json:"spend"`
	CTR         float64 `json:"ctr"`
	CPM         float64 `json:"cpm"`
	CPP         float64 `json:"cpp"`
}

type ObjectInsights struct {
	LocalID    uuid.UUID `json:"local_id"`
	ExternalID string    `json:"external_id"`
	Insights   []Insight `json:"data"`
}
