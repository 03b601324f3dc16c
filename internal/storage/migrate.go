package storage

import (
	"context"
	"fmt"
)

// migrations run in order on every startup; each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS samples (
        sample_ts       timestamptz PRIMARY KEY,
        year            integer NOT NULL,
        day_of_year     integer NOT NULL,
        hour            integer NOT NULL,
        minute          integer NOT NULL,
        scalar_b_nt     numeric,
        bx_gse_nt       numeric,
        by_gse_nt       numeric,
        bz_gse_nt       numeric,
        flow_speed_km_s numeric,
        vx_gse_km_s     numeric,
        vy_gse_km_s     numeric,
        vz_gse_km_s     numeric,
        source_file     text NOT NULL,
        created_at      timestamptz NOT NULL DEFAULT now()
    );`,
	`CREATE INDEX IF NOT EXISTS idx_samples_year ON samples (year);`,
	`CREATE TABLE IF NOT EXISTS file_ingests (
        id          bigserial PRIMARY KEY,
        filename    text NOT NULL,
        year        integer NOT NULL,
        size_bytes  bigint NOT NULL,
        mod_time    timestamptz NOT NULL,
        row_count   integer NOT NULL,
        malformed   integer NOT NULL,
        missing     integer NOT NULL,
        status      text NOT NULL,
        error       text,
        duration_ms bigint NOT NULL,
        created_at  timestamptz NOT NULL DEFAULT now()
    );`,
	`CREATE INDEX IF NOT EXISTS idx_file_ingests_filename ON file_ingests (filename, created_at DESC);`,
}

// Migrate applies the schema. Safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
