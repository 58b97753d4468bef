package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is valid for both Postgres and SQLite. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS food_events (
		tenant_id           TEXT NOT NULL,
		seq                 INTEGER NOT NULL,
		id                  TEXT NOT NULL,
		date                TEXT NOT NULL,
		logged_at           TEXT NOT NULL,
		rollover_applied    BOOLEAN NOT NULL,
		source              TEXT NOT NULL,
		description         TEXT NOT NULL,
		input_text          TEXT NULL,
		notes               TEXT NOT NULL,
		calories            DOUBLE PRECISION NOT NULL,
		fat_g               DOUBLE PRECISION NOT NULL,
		carbs_g             DOUBLE PRECISION NOT NULL,
		protein_g           DOUBLE PRECISION NOT NULL,
		fiber_g             DOUBLE PRECISION NULL,
		potassium_mg        DOUBLE PRECISION NULL,
		magnesium_mg        DOUBLE PRECISION NULL,
		omega3_mg           DOUBLE PRECISION NULL,
		calcium_mg          DOUBLE PRECISION NULL,
		iron_mg             DOUBLE PRECISION NULL,
		model               TEXT NOT NULL,
		confidence          DOUBLE PRECISION NOT NULL,
		items               TEXT NULL,
		idempotency_key     TEXT NULL,
		applied_to_food_log BOOLEAN NOT NULL,
		PRIMARY KEY (tenant_id, id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_food_events_idempotency
		ON food_events (tenant_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_food_events_date ON food_events (tenant_id, date)`,
	`CREATE TABLE IF NOT EXISTS food_log (
		tenant_id    TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		date         TEXT NOT NULL,
		day_of_week  TEXT NOT NULL,
		weight_lb    DOUBLE PRECISION NULL,
		calories     DOUBLE PRECISION NOT NULL,
		fat_g        DOUBLE PRECISION NOT NULL,
		carbs_g      DOUBLE PRECISION NOT NULL,
		protein_g    DOUBLE PRECISION NOT NULL,
		fiber_g      DOUBLE PRECISION NULL,
		potassium_mg DOUBLE PRECISION NULL,
		magnesium_mg DOUBLE PRECISION NULL,
		omega3_mg    DOUBLE PRECISION NULL,
		calcium_mg   DOUBLE PRECISION NULL,
		iron_mg      DOUBLE PRECISION NULL,
		status       TEXT NOT NULL,
		healthy      TEXT NOT NULL,
		notes        TEXT NOT NULL,
		PRIMARY KEY (tenant_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS fitness_weeks (
		tenant_id       TEXT NOT NULL,
		seq             INTEGER NOT NULL,
		week_start      TEXT NOT NULL,
		week_label      TEXT NOT NULL,
		summary         TEXT NOT NULL,
		category_order  TEXT NOT NULL,
		category_labels TEXT NOT NULL,
		categories      TEXT NOT NULL,
		PRIMARY KEY (tenant_id, week_start)
	)`,
	`CREATE TABLE IF NOT EXISTS current_weeks (
		tenant_id       TEXT PRIMARY KEY,
		week_start      TEXT NOT NULL,
		week_label      TEXT NOT NULL,
		summary         TEXT NOT NULL,
		category_order  TEXT NOT NULL,
		category_labels TEXT NOT NULL,
		categories      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		tenant_id TEXT PRIMARY KEY,
		profile   TEXT NULL,
		rules     TEXT NULL
	)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
