package services

import (
	"context"
	"errors"
	"testing"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueue struct {
	jobs []models.GenerationJob
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job models.GenerationJob) (models.GenerationJob, error) {
	if q.err != nil {
		return job, q.err
	}
	q.jobs = append(q.jobs, job)
	return job, nil
}

func TestGenerationRequest(t *testing.T) {
	db := newMemDB()
	owner := uuid.New()
	c := models.Campaign{OwnerID: owner, Name: "c", Objective: models.ObjectiveLeadGeneration}
	require.NoError(t, memCampaigns{db}.Create(context.Background(), &c))

	q := &fakeQueue{}
	svc := NewGenerationRequestService(memCampaigns{db}, q, memAudit{db}, zap.NewNop())

	job, err := svc.Request(context.Background(), owner, c.ID, " https://acme.test/landing ")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, job.JobID)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, "https://acme.test/landing", q.jobs[0].URL)
	assert.Equal(t, models.ObjectiveLeadGeneration, q.jobs[0].Objective)
	require.Len(t, db.audit, 1)

	_, err = svc.Request(context.Background(), owner, c.ID, "not a url")
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.Request(context.Background(), uuid.New(), c.ID, "https://acme.test")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	q.err = &apperr.QueueConnectivityError{Op: "xadd", Err: errors.New("connection refused")}
	_, err = svc.Request(context.Background(), owner, c.ID, "https://acme.test")
	assert.True(t, apperr.IsQueueConnectivity(err))
	assert.Len(t, q.jobs, 1)
}
