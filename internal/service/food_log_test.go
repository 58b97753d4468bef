package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/domain"
)

func seedEvents(t *testing.T, f *fixture, applied bool, dates ...string) {
	t.Helper()
	ds := f.dataset(t)
	for i, d := range dates {
		ds.FoodEvents = append(ds.FoodEvents, domain.FoodEvent{
			ID:               d + "-" + string(rune('a'+i)),
			Date:             d,
			LoggedAt:         time.Date(2026, 2, 1, 12, i, 0, 0, f.loc),
			Source:           domain.SourceManual,
			Description:      "Imported",
			Nutrients:        domain.Nutrients{Calories: 100},
			AppliedToFoodLog: applied,
		})
	}
	f.seed(t, ds)
}

func TestListFoodLog_OrderRangeLimit(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()
	seedEvents(t, f, false, "2026-02-01", "2026-02-03", "2026-02-02", "2026-02-05")
	_, err := svc.SyncEventsToFoodLog(ctx, tenant, "", false)
	require.NoError(t, err)

	all, err := svc.ListFoodLog(ctx, tenant, FoodLogQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2026-02-05", all[0].Date)
	assert.Equal(t, "2026-02-01", all[3].Date)

	ranged, err := svc.ListFoodLog(ctx, tenant, FoodLogQuery{From: "2026-02-02", To: "2026-02-03"})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "2026-02-03", ranged[0].Date)
	assert.Equal(t, "2026-02-02", ranged[1].Date)

	limited, err := svc.ListFoodLog(ctx, tenant, FoodLogQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "2026-02-05", limited[0].Date)

	_, err = svc.ListFoodLog(ctx, tenant, FoodLogQuery{From: "2026-02-05", To: "2026-02-01"})
	assert.True(t, IsValidation(err))
	_, err = svc.ListFoodLog(ctx, tenant, FoodLogQuery{To: "yesterday"})
	assert.True(t, IsValidation(err))
}

func TestRollupFromEvents(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()
	seedEvents(t, f, false, "2026-02-03", "2026-02-03")

	res, err := svc.RollupFromEvents(ctx, tenant, "2026-02-03", false)
	require.NoError(t, err)
	assert.Equal(t, RollupCreated, res.Action)
	assert.Equal(t, 2, res.EventCount)
	assert.Equal(t, 200.0, res.Row.Calories)
	assert.Equal(t, "Tuesday", res.Row.DayOfWeek)

	_, err = svc.UpsertFoodLogRow(ctx, tenant, "2026-02-03", FoodLogPatch{WeightLb: domain.Float(175)})
	require.NoError(t, err)

	res, err = svc.RollupFromEvents(ctx, tenant, "2026-02-03", false)
	require.NoError(t, err)
	assert.Equal(t, RollupSkipped, res.Action)

	res, err = svc.RollupFromEvents(ctx, tenant, "2026-02-03", true)
	require.NoError(t, err)
	assert.Equal(t, RollupUpdated, res.Action)
	require.NotNil(t, res.Row.WeightLb)
	assert.Equal(t, 175.0, *res.Row.WeightLb)

	empty, err := svc.RollupFromEvents(ctx, tenant, "2026-02-04", false)
	require.NoError(t, err)
	assert.Equal(t, RollupCreated, empty.Action)
	assert.Zero(t, empty.EventCount)
	assert.Zero(t, empty.Row.Calories)
	assert.Equal(t, "[auto] No meals logged.", empty.Row.Notes)

	_, err = svc.RollupFromEvents(ctx, tenant, "not-a-date", true)
	assert.True(t, IsValidation(err))
}

func TestSyncEventsToFoodLog(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()
	seedEvents(t, f, false, "2026-02-01", "2026-02-02", "2026-02-02")
	seedEvents(t, f, true, "2026-02-07")

	res, err := svc.SyncEventsToFoodLog(ctx, tenant, "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-01", "2026-02-02"}, res.Dates)
	assert.Equal(t, 3, res.EventsSynced)

	ds := f.dataset(t)
	assert.GreaterOrEqual(t, ds.FindFoodLog("2026-02-02"), 0)
	assert.Less(t, ds.FindFoodLog("2026-02-07"), 0)
	for _, ev := range ds.FoodEvents {
		assert.True(t, ev.AppliedToFoodLog, ev.ID)
	}

	again, err := svc.SyncEventsToFoodLog(ctx, tenant, "", true)
	require.NoError(t, err)
	assert.Empty(t, again.Dates)

	one, err := svc.SyncEventsToFoodLog(ctx, tenant, "2026-02-07", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-07"}, one.Dates)
	row, err := svc.GetFoodLogRow(ctx, tenant, "2026-02-07")
	require.NoError(t, err)
	assert.Equal(t, 100.0, row.Calories)
}

func TestUpsertFoodLogRow(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()

	row, err := svc.UpsertFoodLogRow(ctx, tenant, "2026-02-08", FoodLogPatch{WeightLb: domain.Float(180)})
	require.NoError(t, err)
	assert.Equal(t, "Sunday", row.DayOfWeek)
	require.NotNil(t, row.WeightLb)

	row, err = svc.UpsertFoodLogRow(ctx, tenant, "2026-02-08", FoodLogPatch{ClearWeight: true})
	require.NoError(t, err)
	assert.Nil(t, row.WeightLb)

	_, err = svc.UpsertFoodLogRow(ctx, tenant, "2026-02-08", FoodLogPatch{WeightLb: domain.Float(-3)})
	assert.True(t, IsValidation(err))
	_, err = svc.UpsertFoodLogRow(ctx, tenant, "2026-02-08", FoodLogPatch{Notes: strPtr(AutoNotePrefix + "forged")})
	assert.True(t, IsValidation(err))

	_, err = svc.GetFoodLogRow(ctx, tenant, "2026-02-09")
	assert.ErrorIs(t, err, ErrFoodLogNotFound)
}
