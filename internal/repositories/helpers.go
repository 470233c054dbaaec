package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

// setExternalID records the platform id assigned to a mirrored row.
func setExternalID(ctx context.Context, pool *pgxpool.Pool, table string, id uuid.UUID, externalID string) error {
	tag, err := pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET external_id = $1, updated_at = now() WHERE id = $2`, table),
		externalID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
