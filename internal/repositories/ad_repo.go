package repositories

import (
	"context"

	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdRepo struct {
	pool *pgxpool.Pool
}

func NewAdRepo(pool *pgxpool.Pool) *AdRepo {
	return &AdRepo{pool: pool}
}

func (r *AdRepo) Create(ctx context.Context, a *models.Ad) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO ads (ad_set_id, creative_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, a.AdSetID, a.CreativeID, a.Name,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AdRepo) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	return setExternalID(ctx, r.pool, "ads", id, externalID)
}

// ListByCampaign returns all ads whose ad set belongs to the campaign.
func (r *AdRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Ad, error) {
	return listAdsByCampaign(ctx, r.pool, campaignID)
}

func listAdsByCampaign(ctx context.Context, pool *pgxpool.Pool, campaignID uuid.UUID) ([]models.Ad, error) {
	rows, err := pool.Query(ctx, `
		SELECT a.id, a.ad_set_id, a.creative_id, a.name, a.external_id, a.created_at, a.updated_at
		FROM ads a
		JOIN ad_sets s ON s.id = a.ad_set_id
		WHERE s.campaign_id = $1
		ORDER BY a.created_at
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []models.Ad
	for rows.Next() {
		var a models.Ad
		if err := rows.Scan(&a.ID, &a.AdSetID, &a.CreativeID, &a.Name, &a.ExternalID,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		ads = append(ads, a)
	}
	return ads, rows.Err()
}
