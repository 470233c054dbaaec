package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adpilot/backend/internal/adplatform"
	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PerformanceService struct {
	campaigns   CampaignStore
	insights    InsightsSource
	callTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewPerformanceService(campaigns CampaignStore, insights InsightsSource, callTimeout time.Duration, log *zap.Logger) *PerformanceService {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &PerformanceService{
		campaigns:   campaigns,
		insights:    insights,
		callTimeout: callTimeout,
		now:         time.Now,
		log:         log,
	}
}

// PerformanceQuery selects the level and the date range. Zero dates default to
// the campaign's creation day and today.
type PerformanceQuery struct {
	Level string
	Since time.Time
	Until time.Time
}

type Performance struct {
	CampaignID uuid.UUID               `json:"campaign_id"`
	Level      string                  `json:"level"`
	Since      string                  `json:"since"`
	Until      string                  `json:"until"`
	Insights   []models.Insight        `json:"insights,omitempty"`
	Objects    []models.ObjectInsights `json:"objects,omitempty"`
}

func (s *PerformanceService) Get(ctx context.Context, ownerID, campaignID uuid.UUID, q PerformanceQuery) (*Performance, error) {
	if q.Level == "" {
		q.Level = models.LevelCampaign
	}
	if !models.IsValidLevel(q.Level) {
		return nil, apperr.Validation("level", "must be one of campaign, adset, ad")
	}

	graph, err := s.campaigns.GetGraph(ctx, campaignID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Store("get campaign", err)
	}
	if graph.Campaign.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}

	dr := adplatform.DateRange{Since: q.Since, Until: q.Until}
	if dr.Since.IsZero() {
		dr.Since = graph.Campaign.CreatedAt
	}
	if dr.Until.IsZero() {
		dr.Until = s.now()
	}
	if dr.Since.After(dr.Until) {
		return nil, apperr.Validation("since", "must not be after until")
	}

	out := &Performance{
		CampaignID: campaignID,
		Level:      q.Level,
		Since:      dr.Since.Format(time.DateOnly),
		Until:      dr.Until.Format(time.DateOnly),
	}

	switch q.Level {
	case models.LevelCampaign:
		if graph.Campaign.ExternalID == nil {
			return nil, fmt.Errorf("campaign has no platform counterpart: %w", apperr.ErrNotFound)
		}
		out.Insights, err = s.fetch(ctx, ResourceCampaign, campaignID, *graph.Campaign.ExternalID, q.Level, dr)
		if err != nil {
			return nil, err
		}
		if out.Insights == nil {
			out.Insights = []models.Insight{}
		}
	case models.LevelAdSet:
		out.Objects = []models.ObjectInsights{}
		for _, set := range graph.AdSets {
			if set.ExternalID == nil {
				continue
			}
			series, err := s.fetch(ctx, ResourceAdSet, set.ID, *set.ExternalID, q.Level, dr)
			if err != nil {
				return nil, err
			}
			out.Objects = append(out.Objects, models.ObjectInsights{LocalID: set.ID, ExternalID: *set.ExternalID, Insights: series})
		}
	case models.LevelAd:
		out.Objects = []models.ObjectInsights{}
		// graph.Ads holds every ad whose ad set belongs to the campaign
		for _, ad := range graph.Ads {
			if ad.ExternalID == nil {
				continue
			}
			series, err := s.fetch(ctx, ResourceAd, ad.ID, *ad.ExternalID, q.Level, dr)
			if err != nil {
				return nil, err
			}
			out.Objects = append(out.Objects, models.ObjectInsights{LocalID: ad.ID, ExternalID: *ad.ExternalID, Insights: series})
		}
	}
	return out, nil
}

func (s *PerformanceService) fetch(ctx context.Context, resource string, localID uuid.UUID, externalID, level string, dr adplatform.DateRange) ([]models.Insight, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	series, err := s.insights.GetInsights(callCtx, externalID, level, dr)
	if err != nil {
		s.log.Warn("insights fetch failed",
			zap.String("resource", resource), zap.String("external_id", externalID), zap.Error(err))
		return nil, &apperr.PlatformMirrorError{Resource: resource, LocalID: localID.String(), Err: err}
	}
	if series == nil {
		series = []models.Insight{}
	}
	return series, nil
}
