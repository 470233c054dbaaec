package repositories

import (
	"context"

	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdSetRepo struct {
	pool *pgxpool.Pool
}

func NewAdSetRepo(pool *pgxpool.Pool) *AdSetRepo {
	return &AdSetRepo{pool: pool}
}

func (r *AdSetRepo) Create(ctx context.Context, s *models.AdSet) error {
	interests := s.Targeting.Interests
	if interests == nil {
		interests = []string{}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO ad_sets (campaign_id, name, daily_budget, age_min, age_max, interests)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, s.CampaignID, s.Name, s.DailyBudget, s.Targeting.AgeMin, s.Targeting.AgeMax, interests,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *AdSetRepo) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	return setExternalID(ctx, r.pool, "ad_sets", id, externalID)
}

func (r *AdSetRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.AdSet, error) {
	return listAdSets(ctx, r.pool, campaignID)
}

func listAdSets(ctx context.Context, pool *pgxpool.Pool, campaignID uuid.UUID) ([]models.AdSet, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, campaign_id, name, daily_budget, age_min, age_max, interests, external_id, created_at, updated_at
		FROM ad_sets WHERE campaign_id = $1
		ORDER BY created_at
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []models.AdSet
	for rows.Next() {
		var s models.AdSet
		if err := rows.Scan(&s.ID, &s.CampaignID, &s.Name, &s.DailyBudget,
			&s.Targeting.AgeMin, &s.Targeting.AgeMax, &s.Targeting.Interests,
			&s.ExternalID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}
