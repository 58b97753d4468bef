package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
)

// insertChunk bounds the number of rows per multi-row INSERT so statements
// stay below the bind-parameter limits of both databases.
const insertChunk = 200

const (
	insertEvent = `INSERT INTO food_events (tenant_id, seq, id, date, logged_at, rollover_applied, source, description,
		input_text, notes, calories, fat_g, carbs_g, protein_g, fiber_g, potassium_mg, magnesium_mg, omega3_mg,
		calcium_mg, iron_mg, model, confidence, items, idempotency_key, applied_to_food_log)
		VALUES (:tenant_id, :seq, :id, :date, :logged_at, :rollover_applied, :source, :description,
		:input_text, :notes, :calories, :fat_g, :carbs_g, :protein_g, :fiber_g, :potassium_mg, :magnesium_mg, :omega3_mg,
		:calcium_mg, :iron_mg, :model, :confidence, :items, :idempotency_key, :applied_to_food_log)`

	insertFoodLog = `INSERT INTO food_log (tenant_id, seq, date, day_of_week, weight_lb, calories, fat_g, carbs_g, protein_g,
		fiber_g, potassium_mg, magnesium_mg, omega3_mg, calcium_mg, iron_mg, status, healthy, notes)
		VALUES (:tenant_id, :seq, :date, :day_of_week, :weight_lb, :calories, :fat_g, :carbs_g, :protein_g,
		:fiber_g, :potassium_mg, :magnesium_mg, :omega3_mg, :calcium_mg, :iron_mg, :status, :healthy, :notes)`

	insertArchivedWeek = `INSERT INTO fitness_weeks (tenant_id, seq, week_start, week_label, summary, category_order, category_labels, categories)
		VALUES (:tenant_id, :seq, :week_start, :week_label, :summary, :category_order, :category_labels, :categories)`

	upsertCurrentWeek = `INSERT INTO current_weeks (tenant_id, week_start, week_label, summary, category_order, category_labels, categories)
		VALUES (:tenant_id, :week_start, :week_label, :summary, :category_order, :category_labels, :categories)
		ON CONFLICT (tenant_id) DO UPDATE SET
			week_start = excluded.week_start,
			week_label = excluded.week_label,
			summary = excluded.summary,
			category_order = excluded.category_order,
			category_labels = excluded.category_labels,
			categories = excluded.categories`

	upsertProfile = `INSERT INTO profiles (tenant_id, profile, rules)
		VALUES (:tenant_id, :profile, :rules)
		ON CONFLICT (tenant_id) DO UPDATE SET profile = excluded.profile, rules = excluded.rules`
)

// Store implements repository.DatasetRepository on a SQL database.
//
// Multi-row tables are replaced with delete-then-insert scoped to the tenant,
// singletons are upserted by tenant id, and all of it happens in a single
// transaction: readers see either the previous dataset or the new one.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database. Call Migrate before first use.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) readOptions() *sql.TxOptions {
	if s.db.DriverName() == DriverPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

func (s *Store) Read(ctx context.Context, tenantID string) (*domain.Dataset, error) {
	if err := repository.CheckTenant(tenantID); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTxx(ctx, s.readOptions())
	if err != nil {
		return nil, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	ds := domain.NewDataset()

	var events []eventRow
	if err := tx.SelectContext(ctx, &events, tx.Rebind(`SELECT * FROM food_events WHERE tenant_id = ? ORDER BY seq`), tenantID); err != nil {
		return nil, fmt.Errorf("select food_events: %w", err)
	}
	for _, row := range events {
		ev, err := row.domain()
		if err != nil {
			return nil, err
		}
		ds.FoodEvents = append(ds.FoodEvents, ev)
	}

	var logRows []foodLogRow
	if err := tx.SelectContext(ctx, &logRows, tx.Rebind(`SELECT * FROM food_log WHERE tenant_id = ? ORDER BY seq`), tenantID); err != nil {
		return nil, fmt.Errorf("select food_log: %w", err)
	}
	for _, row := range logRows {
		ds.FoodLog = append(ds.FoodLog, row.domain())
	}

	var weeks []weekRow
	if err := tx.SelectContext(ctx, &weeks, tx.Rebind(`SELECT * FROM fitness_weeks WHERE tenant_id = ? ORDER BY seq`), tenantID); err != nil {
		return nil, fmt.Errorf("select fitness_weeks: %w", err)
	}
	for _, row := range weeks {
		w, err := row.domain()
		if err != nil {
			return nil, err
		}
		ds.FitnessWeeks = append(ds.FitnessWeeks, w)
	}

	var current weekRow
	err = tx.GetContext(ctx, &current, tx.Rebind(`SELECT tenant_id, week_start, week_label, summary, category_order, category_labels, categories
		FROM current_weeks WHERE tenant_id = ?`), tenantID)
	switch {
	case err == nil:
		w, err := current.domain()
		if err != nil {
			return nil, err
		}
		ds.CurrentWeek = &w
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("select current_weeks: %w", err)
	}

	var profile profileRow
	err = tx.GetContext(ctx, &profile, tx.Rebind(`SELECT tenant_id, profile, rules FROM profiles WHERE tenant_id = ?`), tenantID)
	switch {
	case err == nil:
		ds.Profile = textBlob(profile.Profile)
		ds.Rules = textBlob(profile.Rules)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("select profiles: %w", err)
	}

	ds.EnsureCollections()
	return ds, nil
}

func (s *Store) Write(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	if err := repository.CheckTenant(tenantID); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	if err := s.replace(ctx, tx, tenantID, ds); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset: %w", err)
	}
	return nil
}

func (s *Store) replace(ctx context.Context, tx *sqlx.Tx, tenantID string, ds *domain.Dataset) error {
	events := make([]eventRow, 0, len(ds.FoodEvents))
	for i, ev := range ds.FoodEvents {
		events = append(events, toEventRow(tenantID, i, ev))
	}
	if err := replaceRows(ctx, tx, "food_events", tenantID, insertEvent, events); err != nil {
		return err
	}

	logRows := make([]foodLogRow, 0, len(ds.FoodLog))
	for i, row := range ds.FoodLog {
		logRows = append(logRows, toFoodLogRow(tenantID, i, row))
	}
	if err := replaceRows(ctx, tx, "food_log", tenantID, insertFoodLog, logRows); err != nil {
		return err
	}

	weeks := make([]weekRow, 0, len(ds.FitnessWeeks))
	for i, w := range ds.FitnessWeeks {
		row, err := toWeekRow(tenantID, i, w)
		if err != nil {
			return fmt.Errorf("encode week %s: %w", w.WeekStart, err)
		}
		weeks = append(weeks, row)
	}
	if err := replaceRows(ctx, tx, "fitness_weeks", tenantID, insertArchivedWeek, weeks); err != nil {
		return err
	}

	if ds.CurrentWeek == nil {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM current_weeks WHERE tenant_id = ?`), tenantID); err != nil {
			return fmt.Errorf("clear current_weeks: %w", err)
		}
	} else {
		row, err := toWeekRow(tenantID, 0, *ds.CurrentWeek)
		if err != nil {
			return fmt.Errorf("encode current week: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, upsertCurrentWeek, row); err != nil {
			return fmt.Errorf("upsert current_weeks: %w", err)
		}
	}

	profile := profileRow{TenantID: tenantID, Profile: blobText(ds.Profile), Rules: blobText(ds.Rules)}
	if _, err := tx.NamedExecContext(ctx, upsertProfile, profile); err != nil {
		return fmt.Errorf("upsert profiles: %w", err)
	}
	return nil
}

// replaceRows deletes a tenant's rows from table and bulk-inserts rows in chunks.
func replaceRows[T any](ctx context.Context, tx *sqlx.Tx, table, tenantID, insert string, rows []T) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE tenant_id = ?`), tenantID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))
		if _, err := tx.NamedExecContext(ctx, insert, rows[start:end]); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}
