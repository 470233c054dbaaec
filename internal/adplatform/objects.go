package adplatform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adpilot/backend/internal/models"
)

var platformObjectives = map[string]string{
	models.ObjectiveWebsiteTraffic: "OUTCOME_TRAFFIC",
	models.ObjectiveLeadGeneration: "OUTCOME_LEADS",
	models.ObjectiveSales:          "OUTCOME_SALES",
	models.ObjectiveEngagement:     "OUTCOME_ENGAGEMENT",
}

var platformStatuses = map[string]string{
	models.CampaignStatusDraft:   "PAUSED",
	models.CampaignStatusPaused:  "PAUSED",
	models.CampaignStatusActive:  "ACTIVE",
	models.CampaignStatusDeleted: "DELETED",
}

func PlatformObjective(objective string) string {
	if v, ok := platformObjectives[objective]; ok {
		return v
	}
	return objective
}

type CampaignParams struct {
	Name      string
	Objective string
}

func (c *Client) CreateCampaign(ctx context.Context, p CampaignParams) (string, error) {
	form := url.Values{}
	form.Set("name", p.Name)
	form.Set("objective", PlatformObjective(p.Objective))
	form.Set("status", "PAUSED")
	form.Set("special_ad_categories", "[]")
	return c.create(ctx, "campaigns", form)
}

type AdSetParams struct {
	Name               string
	CampaignExternalID string
	DailyBudgetMinor   int64
	Targeting          models.Targeting
}

func (c *Client) CreateAdSet(ctx context.Context, p AdSetParams) (string, error) {
	targeting := map[string]any{
		"age_min": p.Targeting.AgeMin,
		"age_max": p.Targeting.AgeMax,
	}
	if len(p.Targeting.Interests) > 0 {
		interests := make([]map[string]string, 0, len(p.Targeting.Interests))
		for _, name := range p.Targeting.Interests {
			interests = append(interests, map[string]string{"name": name})
		}
		targeting["flexible_spec"] = []map[string]any{{"interests": interests}}
	}

	form := url.Values{}
	form.Set("name", p.Name)
	form.Set("campaign_id", p.CampaignExternalID)
	form.Set("daily_budget", strconv.FormatInt(p.DailyBudgetMinor, 10))
	form.Set("billing_event", "IMPRESSIONS")
	form.Set("optimization_goal", "LINK_CLICKS")
	form.Set("targeting", mustJSON(targeting))
	form.Set("status", "PAUSED")
	return c.create(ctx, "adsets", form)
}

type CreativeParams struct {
	ImageURL    string
	LinkURL     string
	Headline    string
	PrimaryText string
}

func (c *Client) CreateAdCreative(ctx context.Context, p CreativeParams) (string, error) {
	if c.pageID == "" {
		return "", fmt.Errorf("%w: page id", ErrNotConfigured)
	}
	spec := map[string]any{
		"page_id": c.pageID,
		"link_data": map[string]any{
			"picture": p.ImageURL,
			"link":    p.LinkURL,
			"message": p.PrimaryText,
			"name":    p.Headline,
			"call_to_action": map[string]any{
				"type":  "LEARN_MORE",
				"value": map[string]string{"link": p.LinkURL},
			},
		},
	}

	form := url.Values{}
	form.Set("name", "Ad Creative for "+p.Headline)
	form.Set("object_story_spec", mustJSON(spec))
	return c.create(ctx, "adcreatives", form)
}

type AdParams struct {
	Name               string
	AdSetExternalID    string
	CreativeExternalID string
}

func (c *Client) CreateAd(ctx context.Context, p AdParams) (string, error) {
	form := url.Values{}
	form.Set("name", p.Name)
	form.Set("adset_id", p.AdSetExternalID)
	form.Set("creative", mustJSON(map[string]string{"creative_id": p.CreativeExternalID}))
	form.Set("status", "PAUSED")
	return c.create(ctx, "ads", form)
}

type CampaignUpdate struct {
	Name   string
	Status string // local status
}

func (c *Client) UpdateCampaign(ctx context.Context, externalID string, u CampaignUpdate) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	form := url.Values{}
	if u.Name != "" {
		form.Set("name", u.Name)
	}
	if s, ok := platformStatuses[u.Status]; ok {
		form.Set("status", s)
	}
	return c.do(ctx, http.MethodPost, externalID, form, nil)
}

func (c *Client) DeleteCampaign(ctx context.Context, externalID string) error {
	return c.DeleteObject(ctx, externalID)
}

// DeleteObject deletes any platform object by id.
func (c *Client) DeleteObject(ctx context.Context, externalID string) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	return c.do(ctx, http.MethodDelete, externalID, nil, nil)
}
