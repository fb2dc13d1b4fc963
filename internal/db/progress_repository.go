package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/towergate/internal/game/progress"
	"github.com/udisondev/towergate/internal/model"
)

// ProgressRepository stores zone progression in zone_progress.
// Implements progress.Store.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Load returns the stored record of entity. found is false if none exists.
func (r *ProgressRepository) Load(ctx context.Context, entity model.EntityID) (progress.Record, bool, error) {
	rec := progress.Record{Entity: entity}
	err := r.pool.QueryRow(ctx,
		`SELECT level, zone_group, floor, kills FROM zone_progress WHERE entity_id = $1`,
		entity,
	).Scan(&rec.Level, &rec.Group, &rec.Floor, &rec.Kills)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return progress.Record{}, false, nil
		}
		return progress.Record{}, false, fmt.Errorf("querying progress of %s: %w", entity, err)
	}
	return rec, true, nil
}

// Save upserts rec.
func (r *ProgressRepository) Save(ctx context.Context, rec progress.Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO zone_progress (entity_id, level, zone_group, floor, kills, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (entity_id) DO UPDATE SET
		   level      = EXCLUDED.level,
		   zone_group = EXCLUDED.zone_group,
		   floor      = EXCLUDED.floor,
		   kills      = EXCLUDED.kills,
		   updated_at = EXCLUDED.updated_at`,
		rec.Entity, rec.Level, rec.Group, rec.Floor, rec.Kills)
	if err != nil {
		return fmt.Errorf("upsert progress of %s: %w", rec.Entity, err)
	}
	return nil
}

// CountInGroup returns how many stored entities are bound to a floor of group.
func (r *ProgressRepository) CountInGroup(ctx context.Context, group string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM zone_progress WHERE zone_group = $1`, group,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting progress in %q: %w", group, err)
	}
	return n, nil
}
