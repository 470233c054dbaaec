package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CreativeRepo struct {
	pool *pgxpool.Pool
}

func NewCreativeRepo(pool *pgxpool.Pool) *CreativeRepo {
	return &CreativeRepo{pool: pool}
}

func (r *CreativeRepo) Create(ctx context.Context, c *models.AdCreative) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO ad_creatives (campaign_id, image_url, link_url, headline, primary_text, job_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, c.CampaignID, c.ImageURL, c.LinkURL, c.Headline, c.PrimaryText, c.JobID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CreativeRepo) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	return setExternalID(ctx, r.pool, "ad_creatives", id, externalID)
}

func (r *CreativeRepo) ExistsForJob(ctx context.Context, campaignID, jobID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ad_creatives WHERE campaign_id = $1 AND job_id = $2)`,
		campaignID, jobID).Scan(&exists)
	return exists, err
}

// CreateGenerated stores a worker-produced creative and its copies atomically.
// It returns false without writing anything if the (campaign, job) pair was
// already stored by an earlier delivery.
func (r *CreativeRepo) CreateGenerated(ctx context.Context, c *models.AdCreative, copies []models.AdCopy) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO ad_creatives (campaign_id, image_url, link_url, headline, primary_text, job_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (campaign_id, job_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`, c.CampaignID, c.ImageURL, c.LinkURL, c.Headline, c.PrimaryText, c.JobID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	c.Copies = c.Copies[:0]
	for _, cp := range copies {
		cp.CreativeID = c.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO ad_copies (creative_id, headline, primary_text)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, cp.CreativeID, cp.Headline, cp.PrimaryText).Scan(&cp.ID, &cp.CreatedAt); err != nil {
			return false, err
		}
		c.Copies = append(c.Copies, cp)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *CreativeRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.AdCreative, error) {
	return listCreativesWithCopies(ctx, r.pool, campaignID)
}

func listCreativesWithCopies(ctx context.Context, pool *pgxpool.Pool, campaignID uuid.UUID) ([]models.AdCreative, error) {
	rows, err := pool.Query(ctx, `
		SELECT cr.id, cr.campaign_id, cr.image_url, cr.link_url, cr.headline, cr.primary_text,
		       cr.job_id, cr.external_id, cr.created_at, cr.updated_at,
		       cp.id, cp.headline, cp.primary_text, cp.created_at
		FROM ad_creatives cr
		LEFT JOIN ad_copies cp ON cp.creative_id = cr.id
		WHERE cr.campaign_id = $1
		ORDER BY cr.created_at, cr.id, cp.created_at
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creatives []models.AdCreative
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			c           models.AdCreative
			copyID      *uuid.UUID
			copyHead    *string
			copyText    *string
			copyCreated *time.Time
		)
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.ImageURL, &c.LinkURL, &c.Headline, &c.PrimaryText,
			&c.JobID, &c.ExternalID, &c.CreatedAt, &c.UpdatedAt,
			&copyID, &copyHead, &copyText, &copyCreated); err != nil {
			return nil, err
		}

		i, ok := index[c.ID]
		if !ok {
			creatives = append(creatives, c)
			i = len(creatives) - 1
			index[c.ID] = i
		}
		if copyID != nil {
			cp := models.AdCopy{ID: *copyID, CreativeID: c.ID}
			if copyHead != nil {
				cp.Headline = *copyHead
			}
			if copyText != nil {
				cp.PrimaryText = *copyText
			}
			if copyCreated != nil {
				cp.CreatedAt = *copyCreated
			}
			creatives[i].Copies = append(creatives[i].Copies, cp)
		}
	}
	return creatives, rows.Err()
}
