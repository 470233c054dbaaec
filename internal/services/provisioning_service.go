package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adpilot/backend/internal/adplatform"
	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/events"
	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProvisioningService creates, updates and deletes campaign graphs in the
// record store and mirrors them to the ad platform. Every local write is
// committed before the matching platform call, and platform failures never
// undo local state.
type ProvisioningService struct {
	stores         Stores
	platform       AdPlatform
	events         events.Publisher
	callTimeout    time.Duration
	currencyOffset int64
	log            *zap.Logger
}

func NewProvisioningService(
	stores Stores,
	platform AdPlatform,
	pub events.Publisher,
	callTimeout time.Duration,
	currencyOffset int64,
	log *zap.Logger,
) *ProvisioningService {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	if currencyOffset <= 0 {
		currencyOffset = 100
	}
	return &ProvisioningService{
		stores:         stores,
		platform:       platform,
		events:         pub,
		callTimeout:    callTimeout,
		currencyOffset: currencyOffset,
		log:            log,
	}
}

func (s *ProvisioningService) CurrencyOffset() int64 {
	return s.currencyOffset
}

func (s *ProvisioningService) CreateFullCampaign(ctx context.Context, ownerID uuid.UUID, spec CampaignSpec) (*models.CampaignGraph, MirrorReport, error) {
	var report MirrorReport
	if err := spec.Validate(s.currencyOffset); err != nil {
		return nil, report, err
	}
	log := s.log.With(zap.String("owner_id", ownerID.String()))

	campaign := models.Campaign{
		OwnerID:   ownerID,
		Name:      spec.Name,
		Objective: spec.Objective,
		Status:    models.CampaignStatusDraft,
	}
	if err := s.stores.Campaigns.Create(ctx, &campaign); err != nil {
		return nil, report, apperr.Store("create campaign", err)
	}
	log = log.With(zap.String("campaign_id", campaign.ID.String()))
	graph := &models.CampaignGraph{Campaign: campaign}

	ext, err := s.mirror(ctx, &report, ResourceCampaign, campaign.ID, s.stores.Campaigns.SetExternalID,
		func(ctx context.Context) (string, error) {
			return s.platform.CreateCampaign(ctx, adplatform.CampaignParams{Name: campaign.Name, Objective: campaign.Objective})
		})
	if err != nil {
		return nil, report, err
	}
	graph.Campaign.ExternalID = ext

	adSet := models.AdSet{
		CampaignID:  campaign.ID,
		Name:        spec.AdSetName,
		DailyBudget: spec.DailyBudgetMinor(s.currencyOffset),
		Targeting:   spec.Targeting,
	}
	if err := s.stores.AdSets.Create(ctx, &adSet); err != nil {
		return nil, report, apperr.Store("create ad set", err)
	}
	if graph.Campaign.ExternalID == nil {
		report.skipped(ResourceAdSet, adSet.ID, "parent campaign is not mirrored")
	} else {
		campaignExt := *graph.Campaign.ExternalID
		adSet.ExternalID, err = s.mirror(ctx, &report, ResourceAdSet, adSet.ID, s.stores.AdSets.SetExternalID,
			func(ctx context.Context) (string, error) {
				return s.platform.CreateAdSet(ctx, adplatform.AdSetParams{
					Name:               adSet.Name,
					CampaignExternalID: campaignExt,
					DailyBudgetMinor:   adSet.DailyBudget,
					Targeting:          adSet.Targeting,
				})
			})
		if err != nil {
			return nil, report, err
		}
	}
	graph.AdSets = []models.AdSet{adSet}

	creative := models.AdCreative{
		CampaignID:  campaign.ID,
		ImageURL:    spec.Creative.ImageURL,
		LinkURL:     spec.Creative.LinkURL,
		Headline:    spec.Creative.Headline,
		PrimaryText: spec.Creative.PrimaryText,
	}
	if err := s.stores.Creatives.Create(ctx, &creative); err != nil {
		return nil, report, apperr.Store("create ad creative", err)
	}
	creative.ExternalID, err = s.mirror(ctx, &report, ResourceCreative, creative.ID, s.stores.Creatives.SetExternalID,
		func(ctx context.Context) (string, error) {
			return s.platform.CreateAdCreative(ctx, adplatform.CreativeParams{
				ImageURL:    creative.ImageURL,
				LinkURL:     creative.LinkURL,
				Headline:    creative.Headline,
				PrimaryText: creative.PrimaryText,
			})
		})
	if err != nil {
		return nil, report, err
	}
	graph.Creatives = []models.AdCreative{creative}

	ad := models.Ad{AdSetID: adSet.ID, CreativeID: creative.ID, Name: spec.AdName}
	if err := s.stores.Ads.Create(ctx, &ad); err != nil {
		return nil, report, apperr.Store("create ad", err)
	}
	if adSet.ExternalID == nil || creative.ExternalID == nil {
		report.skipped(ResourceAd, ad.ID, "ad set or creative is not mirrored")
	} else {
		adSetExt, creativeExt := *adSet.ExternalID, *creative.ExternalID
		ad.ExternalID, err = s.mirror(ctx, &report, ResourceAd, ad.ID, s.stores.Ads.SetExternalID,
			func(ctx context.Context) (string, error) {
				return s.platform.CreateAd(ctx, adplatform.AdParams{
					Name:               ad.Name,
					AdSetExternalID:    adSetExt,
					CreativeExternalID: creativeExt,
				})
			})
		if err != nil {
			return nil, report, err
		}
	}
	graph.Ads = []models.Ad{ad}

	if report.OK() {
		log.Info("campaign provisioned")
	} else {
		log.Warn("campaign provisioned with mirror failures", zap.Int("failures", len(report.Failures())))
	}
	s.audit(ctx, ownerID, models.AuditCampaignCreated, campaign.ID, map[string]any{"mirror": report.Attempts})
	s.publish(ctx, events.EventCampaignProvisioned, ownerID, map[string]any{
		"campaign_id": campaign.ID.String(),
		"mirrored":    report.OK(),
	})
	return graph, report, nil
}

// mirror runs one platform create under its own deadline and stores the
// returned id. Only a local store failure is returned as an error.
func (s *ProvisioningService) mirror(
	ctx context.Context,
	report *MirrorReport,
	resource string,
	localID uuid.UUID,
	setExternalID func(context.Context, uuid.UUID, string) error,
	create func(context.Context) (string, error),
) (*string, error) {
	ext, err := s.callPlatform(ctx, create)
	if err == nil && ext == "" {
		err = errors.New("platform returned no id")
	}
	if err != nil {
		s.log.Warn("platform mirror failed",
			zap.String("resource", resource), zap.String("local_id", localID.String()), zap.Error(err))
		report.failed(resource, localID, err)
		return nil, nil
	}
	if err := setExternalID(ctx, localID, ext); err != nil {
		s.log.Error("platform object created but external id not stored",
			zap.String("resource", resource), zap.String("local_id", localID.String()),
			zap.String("external_id", ext), zap.Error(err))
		return nil, apperr.Store("set "+resource+" external id", err)
	}
	report.succeeded(resource, localID, ext)
	return &ext, nil
}

func (s *ProvisioningService) callPlatform(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return call(callCtx)
}

func (s *ProvisioningService) GetCampaign(ctx context.Context, ownerID, id uuid.UUID) (*models.CampaignGraph, error) {
	graph, err := s.stores.Campaigns.GetGraph(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Store("get campaign", err)
	}
	if graph.Campaign.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}
	return graph, nil
}

// ListCampaigns returns the owner's campaign graphs, newest first.
func (s *ProvisioningService) ListCampaigns(ctx context.Context, ownerID uuid.UUID, f repositories.CampaignFilter) ([]models.CampaignGraph, error) {
	f.OwnerID = &ownerID
	campaigns, err := s.stores.Campaigns.List(ctx, f)
	if err != nil {
		return nil, apperr.Store("list campaigns", err)
	}
	graphs := make([]models.CampaignGraph, 0, len(campaigns))
	for _, c := range campaigns {
		g, err := s.stores.Campaigns.GetGraph(ctx, c.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			// deleted between the two reads
			continue
		}
		if err != nil {
			return nil, apperr.Store("get campaign", err)
		}
		graphs = append(graphs, *g)
	}
	return graphs, nil
}

// CampaignPatch holds the fields to change. Nil fields are left as they are.
type CampaignPatch struct {
	Name      *string `json:"name"`
	Objective *string `json:"objective"`
	Status    *string `json:"status"`
}

func (p CampaignPatch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperr.Validation("name", "must not be empty")
	}
	if p.Objective != nil {
		if _, ok := models.LookupObjective(*p.Objective); !ok {
			return apperr.Validation("objective", "unknown objective %q", *p.Objective)
		}
	}
	if p.Status != nil && !models.IsValidCampaignStatus(*p.Status) {
		return apperr.Validation("status", "unknown status %q", *p.Status)
	}
	return nil
}

func (s *ProvisioningService) UpdateCampaign(ctx context.Context, ownerID, id uuid.UUID, patch CampaignPatch) (*models.Campaign, MirrorReport, error) {
	var report MirrorReport
	if err := patch.validate(); err != nil {
		return nil, report, err
	}
	c, err := ownedCampaign(ctx, s.stores.Campaigns, ownerID, id)
	if err != nil {
		return nil, report, err
	}

	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Objective != nil {
		c.Objective = *patch.Objective
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if err := s.stores.Campaigns.Update(ctx, c); err != nil {
		return nil, report, apperr.Store("update campaign", err)
	}

	if c.ExternalID == nil {
		report.skipped(ResourceCampaign, c.ID, "campaign is not mirrored")
	} else {
		ext := *c.ExternalID
		_, err := s.callPlatform(ctx, func(ctx context.Context) (string, error) {
			return ext, s.platform.UpdateCampaign(ctx, ext, adplatform.CampaignUpdate{Name: c.Name, Status: c.Status})
		})
		if err != nil {
			s.log.Warn("platform campaign update failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			report.failed(ResourceCampaign, c.ID, err)
		} else {
			report.succeeded(ResourceCampaign, c.ID, ext)
		}
	}

	s.audit(ctx, ownerID, models.AuditCampaignUpdated, c.ID, map[string]any{"patch": patch, "mirror": report.Attempts})
	return c, report, nil
}

// DeleteCampaign removes the platform objects best-effort, then deletes the
// campaign and everything it owns from the record store in one transaction.
func (s *ProvisioningService) DeleteCampaign(ctx context.Context, ownerID, id uuid.UUID) (MirrorReport, error) {
	var report MirrorReport
	graph, err := s.GetCampaign(ctx, ownerID, id)
	if err != nil {
		return report, err
	}

	// deleting the platform campaign removes its ad sets and ads; creatives
	// live at account level and go separately
	if ext := graph.Campaign.ExternalID; ext != nil {
		s.deleteMirror(ctx, &report, ResourceCampaign, graph.Campaign.ID, *ext, s.platform.DeleteCampaign)
	}
	for _, cr := range graph.Creatives {
		if cr.ExternalID != nil {
			s.deleteMirror(ctx, &report, ResourceCreative, cr.ID, *cr.ExternalID, s.platform.DeleteObject)
		}
	}

	if err := s.stores.Campaigns.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return report, apperr.ErrNotFound
		}
		return report, apperr.Store("delete campaign", err)
	}

	s.log.Info("campaign deleted", zap.String("campaign_id", id.String()), zap.Bool("mirror_ok", report.OK()))
	s.audit(ctx, ownerID, models.AuditCampaignDeleted, id, map[string]any{"mirror": report.Attempts})
	return report, nil
}

func (s *ProvisioningService) deleteMirror(ctx context.Context, report *MirrorReport, resource string, localID uuid.UUID, ext string, del func(context.Context, string) error) {
	_, err := s.callPlatform(ctx, func(ctx context.Context) (string, error) { return ext, del(ctx, ext) })
	if err != nil {
		s.log.Warn("platform delete failed",
			zap.String("resource", resource), zap.String("external_id", ext), zap.Error(err))
		report.failed(resource, localID, err)
		return
	}
	report.succeeded(resource, localID, ext)
}

func ownedCampaign(ctx context.Context, campaigns CampaignStore, ownerID, id uuid.UUID) (*models.Campaign, error) {
	c, err := campaigns.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Store("get campaign", err)
	}
	if c.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}
	return c, nil
}

func (s *ProvisioningService) audit(ctx context.Context, ownerID uuid.UUID, action string, campaignID uuid.UUID, meta any) {
	if s.stores.Audit == nil {
		return
	}
	err := s.stores.Audit.Log(ctx, models.AuditLog{
		ActorUserID: &ownerID,
		ActorType:   models.ActorUser,
		Action:      action,
		EntityType:  models.AuditEntityCampaign,
		EntityID:    &campaignID,
		Meta:        meta,
	})
	if err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *ProvisioningService) publish(ctx context.Context, eventType string, userID uuid.UUID, payload map[string]any) {
	if s.events == nil {
		return
	}
	payload["user_id"] = userID.String()
	_ = s.events.Publish(ctx, events.ChannelCampaign, events.Event{Type: eventType, Payload: payload})
}
