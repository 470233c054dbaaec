package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

const campaignColumns = `id, owner_id, name, objective, status, external_id, created_at, updated_at`

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (owner_id, name, objective, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, c.OwnerID, c.Name, c.Objective, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var c models.Campaign
	err := r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Objective, &c.Status, &c.ExternalID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CampaignRepo) Update(ctx context.Context, c *models.Campaign) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE campaigns SET name = $1, objective = $2, status = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
	`, c.Name, c.Objective, c.Status, c.ID).Scan(&c.UpdatedAt)
	return notFound(err)
}

func (r *CampaignRepo) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	return setExternalID(ctx, r.pool, "campaigns", id, externalID)
}

type CampaignFilter struct {
	OwnerID *uuid.UUID
	Status  *string
	Limit   int
	Offset  int
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.OwnerID != nil {
		where = append(where, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, *f.OwnerID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Objective, &c.Status, &c.ExternalID,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// GetGraph eagerly loads a campaign with its ad sets, ads and creatives (with copies).
func (r *CampaignRepo) GetGraph(ctx context.Context, id uuid.UUID) (*models.CampaignGraph, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	g := &models.CampaignGraph{Campaign: *c}

	if g.AdSets, err = listAdSets(ctx, r.pool, id); err != nil {
		return nil, err
	}
	if g.Ads, err = listAdsByCampaign(ctx, r.pool, id); err != nil {
		return nil, err
	}
	if g.Creatives, err = listCreativesWithCopies(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return g, nil
}

// cascadeDeleteStmts run children before parents: ads reference ad sets and
// creatives, copies reference creatives. Ads of other campaigns that use one of
// this campaign's creatives go too, or the creative delete would fail.
var cascadeDeleteStmts = []string{
	`DELETE FROM ads WHERE ad_set_id IN (SELECT id FROM ad_sets WHERE campaign_id = $1)
	    OR creative_id IN (SELECT id FROM ad_creatives WHERE campaign_id = $1)`,
	`DELETE FROM ad_copies WHERE creative_id IN (SELECT id FROM ad_creatives WHERE campaign_id = $1)`,
	`DELETE FROM ad_sets WHERE campaign_id = $1`,
	`DELETE FROM ad_creatives WHERE campaign_id = $1`,
}

// DeleteCascade removes the campaign and everything it owns in dependency order,
// inside one transaction.
func (r *CampaignRepo) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range cascadeDeleteStmts {
		if _, err := tx.Exec(ctx, s, id); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit(ctx)
}
