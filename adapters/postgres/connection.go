// Package postgres persists run manifests and ranked results so analyses can
// be compared across cohorts and re-rendered without recomputation.
package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"multiomics/internal/config"
	apperrors "multiomics/internal/errors"
)

// Connect opens a pooled connection and optionally applies the schema.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, apperrors.ConfigInvalid("DATABASE_URL is required for persistence")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, apperrors.DatabaseError("connect", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if cfg.MigrateOnStart {
		if err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return apperrors.DatabaseError("migrate", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id              TEXT PRIMARY KEY,
	analysis            TEXT NOT NULL,
	test_kind           TEXT NOT NULL,
	correction          TEXT NOT NULL,
	alpha               DOUBLE PRECISION NOT NULL,
	feature_count       INTEGER NOT NULL,
	sample_count        INTEGER NOT NULL,
	group_count         INTEGER NOT NULL,
	dropped_from_matrix INTEGER NOT NULL,
	dropped_from_groups INTEGER NOT NULL,
	failed_tests        INTEGER NOT NULL,
	significant_count   INTEGER NOT NULL,
	runtime_ms          BIGINT NOT NULL,
	fingerprint         TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	rank        INTEGER NOT NULL,
	feature     TEXT NOT NULL,
	statistic   DOUBLE PRECISION,
	effect      DOUBLE PRECISION,
	effect_unit TEXT NOT NULL DEFAULT '',
	p_value     DOUBLE PRECISION,
	q_value     DOUBLE PRECISION,
	tier        TEXT NOT NULL,
	test_failed BOOLEAN NOT NULL DEFAULT FALSE,
	fail_reason TEXT NOT NULL DEFAULT '',
	groups      JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_run_results_feature ON run_results(feature);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`
