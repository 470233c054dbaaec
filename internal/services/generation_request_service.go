package services

import (
	"context"

	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobQueue interface {
	Enqueue(ctx context.Context, job models.GenerationJob) (models.GenerationJob, error)
}

// GenerationRequestService accepts fire-and-forget URL submissions for a
// campaign and hands them to the generation worker through the queue.
type GenerationRequestService struct {
	campaigns CampaignStore
	queue     JobQueue
	audit     AuditLogger
	log       *zap.Logger
}

func NewGenerationRequestService(campaigns CampaignStore, queue JobQueue, audit AuditLogger, log *zap.Logger) *GenerationRequestService {
	return &GenerationRequestService{campaigns: campaigns, queue: queue, audit: audit, log: log}
}

// Request enqueues a generation job and returns it. Queue failures come back
// as *apperr.QueueConnectivityError.
func (s *GenerationRequestService) Request(ctx context.Context, ownerID, campaignID uuid.UUID, rawURL string) (models.GenerationJob, error) {
	u, err := ParseLandingURL(rawURL)
	if err != nil {
		return models.GenerationJob{}, err
	}
	c, err := ownedCampaign(ctx, s.campaigns, ownerID, campaignID)
	if err != nil {
		return models.GenerationJob{}, err
	}

	job, err := s.queue.Enqueue(ctx, models.GenerationJob{
		JobID:      uuid.New(),
		CampaignID: c.ID,
		URL:        u.String(),
		Objective:  c.Objective,
	})
	if err != nil {
		s.log.Error("enqueue generation job failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
		return models.GenerationJob{}, err
	}

	s.log.Info("generation job enqueued",
		zap.String("campaign_id", c.ID.String()), zap.String("job_id", job.JobID.String()))
	if s.audit != nil {
		_ = s.audit.Log(ctx, models.AuditLog{
			ActorUserID: &ownerID,
			ActorType:   models.ActorUser,
			Action:      models.AuditGenerationRequested,
			EntityType:  models.AuditEntityCampaign,
			EntityID:    &c.ID,
			Meta:        map[string]any{"job_id": job.JobID, "url": job.URL},
		})
	}
	return job, nil
}
