package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/towergate/internal/game/region"
)

// RegionRepository stores regions created at runtime in zone_regions.
type RegionRepository struct {
	pool *pgxpool.Pool
}

// NewRegionRepository creates a new RegionRepository.
func NewRegionRepository(pool *pgxpool.Pool) *RegionRepository {
	return &RegionRepository{pool: pool}
}

// LoadAll returns every stored region as a definition, ordered by id.
func (r *RegionRepository) LoadAll(ctx context.Context) ([]region.Definition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, world, min_x, min_y, min_z, max_x, max_y, max_z
		 FROM zone_regions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query zone_regions: %w", err)
	}
	defer rows.Close()

	var result []region.Definition
	for rows.Next() {
		var (
			def    region.Definition
			lo, hi region.Corner
		)
		if err := rows.Scan(&def.ID, &def.World, &lo.X, &lo.Y, &lo.Z, &hi.X, &hi.Y, &hi.Z); err != nil {
			return nil, fmt.Errorf("scan zone_regions row: %w", err)
		}
		def.Min, def.Max = lo.String(), hi.String()
		result = append(result, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zone_regions: %w", err)
	}
	return result, nil
}

// Save upserts a region.
func (r *RegionRepository) Save(ctx context.Context, reg region.Region) error {
	lo, hi := reg.Min(), reg.Max()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO zone_regions (id, world, min_x, min_y, min_z, max_x, max_y, max_z)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   world = EXCLUDED.world,
		   min_x = EXCLUDED.min_x, min_y = EXCLUDED.min_y, min_z = EXCLUDED.min_z,
		   max_x = EXCLUDED.max_x, max_y = EXCLUDED.max_y, max_z = EXCLUDED.max_z,
		   updated_at = now()`,
		reg.ID(), reg.World(), lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	if err != nil {
		return fmt.Errorf("upsert zone_regions %q: %w", reg.ID(), err)
	}
	return nil
}

// Delete removes a region. Returns false if it did not exist.
func (r *RegionRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM zone_regions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete zone_regions %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
