package dto

import "github.com/shopspring/decimal"

type TargetingRequest struct {
	AgeMin    int      `json:"age_min"`
	AgeMax    int      `json:"age_max"`
	Interests []string `json:"interests"`
}

type CreativeRequest struct {
	ImageURL    string `json:"image_url"`
	LinkURL     string `json:"link_url"`
	Headline    string `json:"headline"`
	PrimaryText string `json:"primary_text"`
}

type CreateCampaignRequest struct {
	Name        string           `json:"name"`
	Objective   string           `json:"objective"`
	AdSetName   string           `json:"ad_set_name,omitempty"`
	DailyBudget decimal.Decimal  `json:"daily_budget"` // major currency units, e.g. "12.50"
	Targeting   TargetingRequest `json:"targeting"`
	Creative    CreativeRequest  `json:"creative"`
	AdName      string           `json:"ad_name,omitempty"`
}

type UpdateCampaignRequest struct {
	Name      *string `json:"name,omitempty"`
	Objective *string `json:"objective,omitempty"`
	Status    *string `json:"status,omitempty"`
}

type GenerateRequest struct {
	URL string `json:"url"`
}

type ChatMessageRequest struct {
	Message string `json:"message"`
}
