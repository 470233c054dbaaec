package services

import (
	"context"
	"errors"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/events"
	"github.com/adpilot/backend/internal/generation"
	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GenerationPipeline interface {
	Run(ctx context.Context, objective, url string) *generation.Result
}

type GeneratedCreativeStore interface {
	ExistsForJob(ctx context.Context, campaignID, jobID uuid.UUID) (bool, error)
	CreateGenerated(ctx context.Context, c *models.AdCreative, copies []models.AdCopy) (bool, error)
}

// GenerationWorker turns a queued URL into one creative and its copy
// variants. It is idempotent per (campaign, job id).
type GenerationWorker struct {
	campaigns CampaignStore
	creatives GeneratedCreativeStore
	pipeline  GenerationPipeline
	audit     AuditLogger
	events    events.Publisher
	log       *zap.Logger
}

func NewGenerationWorker(
	campaigns CampaignStore,
	creatives GeneratedCreativeStore,
	pipeline GenerationPipeline,
	audit AuditLogger,
	pub events.Publisher,
	log *zap.Logger,
) *GenerationWorker {
	return &GenerationWorker{
		campaigns: campaigns,
		creatives: creatives,
		pipeline:  pipeline,
		audit:     audit,
		events:    pub,
		log:       log,
	}
}

// Handle is the queue handler. The entry is acknowledged whatever the outcome,
// so failures are only logged.
func (w *GenerationWorker) Handle(ctx context.Context, job models.GenerationJob) {
	_ = w.HandleJob(ctx, job)
}

func (w *GenerationWorker) HandleJob(ctx context.Context, job models.GenerationJob) error {
	log := w.log.With(zap.String("job_id", job.JobID.String()), zap.String("campaign_id", job.CampaignID.String()))

	done, err := w.creatives.ExistsForJob(ctx, job.CampaignID, job.JobID)
	if err != nil {
		log.Error("idempotency check failed", zap.Error(err))
		return apperr.Store("check job", err)
	}
	if done {
		log.Info("job already processed, skipping")
		return nil
	}

	campaign, err := w.campaigns.GetByID(ctx, job.CampaignID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Warn("campaign for job no longer exists")
			return err
		}
		log.Error("load campaign failed", zap.Error(err))
		return apperr.Store("get campaign", err)
	}

	objective := job.Objective
	if objective == "" {
		objective = campaign.Objective
	}
	res := w.pipeline.Run(ctx, objective, job.URL)
	for _, d := range res.Degraded {
		log.Warn("generation degraded", zap.String("capability", d.Capability), zap.Error(d.Err))
	}

	jobID := job.JobID
	creative := &models.AdCreative{
		CampaignID: job.CampaignID,
		LinkURL:    job.URL,
		JobID:      &jobID,
	}
	if len(res.Images) > 0 {
		creative.ImageURL = res.Images[0]
	}
	copies := make([]models.AdCopy, 0, len(res.Copies))
	for _, v := range res.Copies {
		copies = append(copies, models.AdCopy{Headline: v.Headline, PrimaryText: v.PrimaryText})
	}
	if len(copies) > 0 {
		creative.Headline = copies[0].Headline
		creative.PrimaryText = copies[0].PrimaryText
	}

	created, err := w.creatives.CreateGenerated(ctx, creative, copies)
	if err != nil {
		log.Error("persist generated creative failed", zap.Error(err))
		return apperr.Store("persist generated creative", err)
	}
	if !created {
		log.Info("job persisted concurrently by another consumer")
		return nil
	}

	log.Info("generated creative stored",
		zap.String("creative_id", creative.ID.String()),
		zap.Int("copies", len(copies)),
		zap.Int("degraded", len(res.Degraded)))

	if w.audit != nil {
		_ = w.audit.Log(ctx, models.AuditLog{
			ActorType:  models.ActorWorker,
			Action:     models.AuditCreativesGenerated,
			EntityType: models.AuditEntityCampaign,
			EntityID:   &campaign.ID,
			Meta:       map[string]any{"job_id": jobID, "creative_id": creative.ID, "copies": len(copies)},
		})
	}
	if w.events != nil {
		_ = w.events.Publish(ctx, events.ChannelCampaign, events.Event{
			Type: events.EventGenerationCompleted,
			Payload: map[string]any{
				"user_id":     campaign.OwnerID.String(),
				"campaign_id": campaign.ID.String(),
				"creative_id": creative.ID.String(),
				"job_id":      jobID.String(),
				"copies":      len(copies),
			},
		})
	}
	return nil
}
