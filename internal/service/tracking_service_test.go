package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/classifier"
	"alcyxob/health-tracker/internal/config"
	"alcyxob/health-tracker/internal/domain"
)

func TestAddFoodEvent_CreatesEventAndRow(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})

	res, err := svc.AddFoodEvent(context.Background(), tenant, meal("Oatmeal", 400))
	require.NoError(t, err)

	assert.Equal(t, domain.LogActionCreated, res.LogAction)
	assert.NotEmpty(t, res.Event.ID)
	assert.Equal(t, "2026-02-10", res.Event.Date)
	assert.False(t, res.Event.RolloverApplied)
	assert.True(t, res.Event.AppliedToFoodLog)
	assert.Equal(t, 400.0, res.Totals.Calories)
	require.NotNil(t, res.FoodLog)
	assert.Equal(t, "Tuesday", res.FoodLog.DayOfWeek)
	assert.Equal(t, 400.0, res.FoodLog.Calories)
	assert.Equal(t, domain.FlagIncomplete, res.FoodLog.Status)
	assert.Equal(t, domain.FlagIncomplete, res.FoodLog.Healthy)
	assert.True(t, strings.HasPrefix(res.FoodLog.Notes, AutoNotePrefix))

	ds := f.dataset(t)
	require.Len(t, ds.FoodEvents, 1)
	require.Len(t, ds.FoodLog, 1)
}

func TestAddFoodEvent_EarlyMorningGoesToPreviousDay(t *testing.T) {
	f := newFixture(t, 12, 0)
	f.clock.now = time.Date(2026, 2, 11, 2, 30, 0, 0, f.loc)
	svc := f.tracking(nil, TrackingOptions{})

	res, err := svc.AddFoodEvent(context.Background(), tenant, meal("Late snack", 250))
	require.NoError(t, err)
	assert.Equal(t, "2026-02-10", res.Event.Date)
	assert.True(t, res.Event.RolloverApplied)
	assert.Equal(t, f.loc, res.Event.LoggedAt.Location())
}

func TestAddFoodEvent_IdempotencyKey(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()

	in := meal("Chicken bowl", 400)
	in.Date = "2026-02-10"
	in.IdempotencyKey = strPtr("F01")
	first, err := svc.AddFoodEvent(ctx, tenant, in)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	in.IdempotencyKey = strPtr("  F01 ")
	in.Nutrients = &domain.Nutrients{Calories: 999}
	second, err := svc.AddFoodEvent(ctx, tenant, in)
	require.NoError(t, err)

	assert.Equal(t, domain.LogActionExisting, second.LogAction)
	assert.Equal(t, first.Event.ID, second.Event.ID)
	assert.Equal(t, 400.0, second.Totals.Calories)

	totals, err := svc.GetDailyTotals(ctx, tenant, "2026-02-10")
	require.NoError(t, err)
	assert.Equal(t, 400.0, totals.Calories)
	assert.Len(t, f.dataset(t).FoodEvents, 1)
}

func TestAddFoodEvent_BlankKeyIsAbsent(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})

	in := meal("Toast", 150)
	in.IdempotencyKey = strPtr("   ")
	res, err := svc.AddFoodEvent(context.Background(), tenant, in)
	require.NoError(t, err)
	assert.Nil(t, res.Event.IdempotencyKey)
}

func TestAddFoodEvent_NearDuplicateWindow(t *testing.T) {
	tests := []struct {
		name       string
		start      time.Duration
		gap        time.Duration
		wantAction domain.LogAction
		wantEvents int
		wantKcal   float64
	}{
		{name: "within window", gap: 10 * time.Second, wantAction: domain.LogActionExisting, wantEvents: 1, wantKcal: 300},
		{name: "at window edge", gap: 15 * time.Second, wantAction: domain.LogActionExisting, wantEvents: 1, wantKcal: 300},
		{name: "outside window", gap: 20 * time.Second, wantAction: domain.LogActionCreated, wantEvents: 2, wantKcal: 600},
		{name: "sub-second start within window", start: 900 * time.Millisecond, gap: 14500 * time.Millisecond, wantAction: domain.LogActionExisting, wantEvents: 1, wantKcal: 300},
		{name: "sub-second start at window edge", start: 900 * time.Millisecond, gap: 15 * time.Second, wantAction: domain.LogActionExisting, wantEvents: 1, wantKcal: 300},
		{name: "sub-second start past window", start: 900 * time.Millisecond, gap: 15100 * time.Millisecond, wantAction: domain.LogActionCreated, wantEvents: 2, wantKcal: 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 12, 0)
			f.clock.Advance(tt.start)
			svc := f.tracking(nil, TrackingOptions{})
			ctx := context.Background()

			_, err := svc.AddFoodEvent(ctx, tenant, meal("Yogurt", 300))
			require.NoError(t, err)
			f.clock.Advance(tt.gap)
			res, err := svc.AddFoodEvent(ctx, tenant, meal("Yogurt", 300))
			require.NoError(t, err)

			assert.Equal(t, tt.wantAction, res.LogAction)
			assert.Equal(t, tt.wantKcal, res.Totals.Calories)
			assert.Len(t, f.dataset(t).FoodEvents, tt.wantEvents)
		})
	}
}

func TestAddFoodEvent_DifferentPayloadIsNotDuplicate(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()

	_, err := svc.AddFoodEvent(ctx, tenant, meal("Yogurt", 300))
	require.NoError(t, err)
	other := meal("Yogurt", 300)
	other.Notes = "with honey"
	res, err := svc.AddFoodEvent(ctx, tenant, other)
	require.NoError(t, err)
	assert.Equal(t, domain.LogActionCreated, res.LogAction)
}

func TestGetDailyTotals_UnknownMicroPropagates(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()

	a := meal("Salad", 200)
	a.Nutrients.FiberG = domain.Float(5)
	b := meal("Burger", 700)
	b.Nutrients.FiberG = nil
	_, err := svc.AddFoodEvent(ctx, tenant, a)
	require.NoError(t, err)
	res, err := svc.AddFoodEvent(ctx, tenant, b)
	require.NoError(t, err)

	assert.Nil(t, res.Totals.FiberG)
	assert.Nil(t, res.FoodLog.FiberG)
	assert.Equal(t, 900.0, res.Totals.Calories)

	empty, err := svc.GetDailyTotals(ctx, tenant, "2026-01-01")
	require.NoError(t, err)
	require.NotNil(t, empty.FiberG)
	assert.Equal(t, 0.0, *empty.FiberG)
}

func TestUpdateFoodEvent_MoveBetweenDates(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()

	created, err := svc.AddFoodEvent(ctx, tenant, meal("Pasta", 800))
	require.NoError(t, err)
	_, err = svc.AddFoodEvent(ctx, tenant, meal("Apple", 100))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	moved := meal("Pasta", 800)
	moved.Date = "2026-02-09"
	res, err := svc.UpdateFoodEvent(ctx, tenant, created.Event.ID, moved)
	require.NoError(t, err)

	assert.Equal(t, domain.LogActionUpdated, res.LogAction)
	assert.Equal(t, created.Event.ID, res.Event.ID)
	assert.True(t, created.Event.LoggedAt.Equal(res.Event.LoggedAt))
	assert.True(t, res.Event.RolloverApplied)

	oldDay, err := svc.GetDailyTotals(ctx, tenant, "2026-02-10")
	require.NoError(t, err)
	newDay, err := svc.GetDailyTotals(ctx, tenant, "2026-02-09")
	require.NoError(t, err)
	assert.Equal(t, 100.0, oldDay.Calories)
	assert.Equal(t, 800.0, newDay.Calories)

	ds := f.dataset(t)
	assert.Equal(t, 100.0, ds.FoodLog[ds.FindFoodLog("2026-02-10")].Calories)
	assert.Equal(t, 800.0, ds.FoodLog[ds.FindFoodLog("2026-02-09")].Calories)
}

func TestUpdateFoodEvent_Errors(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()

	_, err := svc.UpdateFoodEvent(ctx, tenant, "missing", meal("x", 1))
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	a := meal("A", 100)
	a.IdempotencyKey = strPtr("k-a")
	_, err = svc.AddFoodEvent(ctx, tenant, a)
	require.NoError(t, err)
	b, err := svc.AddFoodEvent(ctx, tenant, meal("B", 200))
	require.NoError(t, err)

	clash := meal("B", 200)
	clash.IdempotencyKey = strPtr("k-a")
	_, err = svc.UpdateFoodEvent(ctx, tenant, b.Event.ID, clash)
	assert.True(t, IsValidation(err))
}

func TestAddFoodEvent_Validation(t *testing.T) {
	tests := []struct {
		name   string
		tenant string
		mutate func(in *FoodEventInput)
		field  string
	}{
		{name: "empty tenant", tenant: " ", mutate: func(*FoodEventInput) {}, field: "tenant_id"},
		{name: "bad date", mutate: func(in *FoodEventInput) { in.Date = "2026-02-30" }, field: "date"},
		{name: "bad date format", mutate: func(in *FoodEventInput) { in.Date = "02/10/2026" }, field: "date"},
		{name: "bad source", mutate: func(in *FoodEventInput) { in.Source = "voice" }, field: "source"},
		{name: "blank description", mutate: func(in *FoodEventInput) { in.Description = "  " }, field: "description"},
		{name: "missing nutrients", mutate: func(in *FoodEventInput) { in.Nutrients = nil }, field: "nutrients"},
		{name: "negative calories", mutate: func(in *FoodEventInput) { in.Nutrients.Calories = -1 }, field: "nutrients.calories"},
		{name: "infinite protein", mutate: func(in *FoodEventInput) { in.Nutrients.ProteinG = math.Inf(1) }, field: "nutrients.protein_g"},
		{name: "NaN micro", mutate: func(in *FoodEventInput) { in.Nutrients.IronMg = domain.Float(math.NaN()) }, field: "nutrients.iron_mg"},
		{name: "confidence above one", mutate: func(in *FoodEventInput) { in.Confidence = 1.5 }, field: "confidence"},
		{name: "items not json", mutate: func(in *FoodEventInput) { in.Items = []byte("{") }, field: "items"},
		{name: "key too long", mutate: func(in *FoodEventInput) { in.IdempotencyKey = strPtr(strings.Repeat("k", 129)) }, field: "idempotency_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 12, 0)
			svc := f.tracking(nil, TrackingOptions{})
			in := meal("Soup", 300)
			tt.mutate(&in)
			id := tenant
			if tt.tenant != "" {
				id = tt.tenant
			}

			_, err := svc.AddFoodEvent(context.Background(), id, in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, f.repo.writes)
		})
	}
}

func TestAddFoodEvent_BackendFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()

	f.repo.failWrites = true
	_, err := svc.AddFoodEvent(ctx, tenant, meal("Rice", 300))
	require.Error(t, err)
	assert.True(t, IsBackend(err))
	assert.False(t, IsValidation(err))

	f.repo.failWrites = false
	events, err := svc.GetFoodEventsForDate(ctx, tenant, "2026-02-10")
	require.NoError(t, err)
	assert.Empty(t, events)

	f.repo.failReads = true
	_, err = svc.GetDailyTotals(ctx, tenant, "2026-02-10")
	assert.True(t, IsBackend(err))
}

func TestSynthesis_PreservesUserNotesAndWeight(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{})
	ctx := context.Background()

	_, err := svc.UpsertFoodLogRow(ctx, tenant, "2026-02-10", FoodLogPatch{Notes: strPtr("kept this"), WeightLb: domain.Float(181.4)})
	require.NoError(t, err)
	res, err := svc.AddFoodEvent(ctx, tenant, meal("Eggs", 210))
	require.NoError(t, err)

	assert.Equal(t, "kept this", res.FoodLog.Notes)
	require.NotNil(t, res.FoodLog.WeightLb)
	assert.Equal(t, 181.4, *res.FoodLog.WeightLb)
	assert.Equal(t, 210.0, res.FoodLog.Calories)

	_, err = svc.UpsertFoodLogRow(ctx, tenant, "2026-02-10", FoodLogPatch{Notes: strPtr("")})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	res, err = svc.AddFoodEvent(ctx, tenant, meal("Tea", 5))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.FoodLog.Notes, AutoNotePrefix))
	assert.Contains(t, res.FoodLog.Notes, "Eggs")
	require.NotNil(t, res.FoodLog.WeightLb)
}

func TestSynthesis_AutoNoteContent(t *testing.T) {
	f := newFixture(t, 12, 0)
	svc := f.tracking(nil, TrackingOptions{Diet: config.DietConfig{CalorieTarget: 2000, ProteinTargetG: 100, FiberTargetG: 30}})
	ctx := context.Background()

	ds := f.dataset(t)
	ds.CurrentWeek = &domain.WeeklyChecklist{
		WeekStart:      "2026-02-09",
		CategoryOrder:  []string{"cardio", "strength"},
		CategoryLabels: map[string]string{"cardio": "Cardio", "strength": "Strength"},
		Categories: map[string][]domain.ChecklistItem{
			"cardio":   {{Item: "Run", Checked: true}},
			"strength": {{Item: "Legs"}},
		},
	}
	f.seed(t, ds)

	for i, name := range []string{"Oatmeal", "Coffee", "Oatmeal"} {
		f.clock.Advance(time.Minute * time.Duration(i+1))
		_, err := svc.AddFoodEvent(ctx, tenant, meal(name, 500))
		require.NoError(t, err)
	}
	row, err := svc.GetFoodLogRow(ctx, tenant, "2026-02-10")
	require.NoError(t, err)

	assert.Equal(t, "[auto] Meals: Oatmeal x2, Coffee. Goal fit: 1500 of 2000 kcal (under), protein 75 of 100 g (under), fiber 6 of 30 g (under). Workouts this week: 1 of 2 done (Cardio).", row.Notes)
}

func TestSynthesis_Classifier(t *testing.T) {
	f := newFixture(t, 12, 0)
	ctx := context.Background()

	var seen []classifier.Request
	fail := false
	cls := classifier.Func(func(_ context.Context, req classifier.Request) (classifier.Result, error) {
		seen = append(seen, req)
		if fail {
			return classifier.Result{}, errors.New("model overloaded")
		}
		return classifier.Result{Status: domain.FlagOnTrack, Healthy: domain.FlagMixed}, nil
	})
	svc := f.tracking(cls, TrackingOptions{})

	prev := meal("Dinner", 600)
	prev.Date = "2026-02-09"
	_, err := svc.AddFoodEvent(ctx, tenant, prev)
	require.NoError(t, err)
	res, err := svc.AddFoodEvent(ctx, tenant, meal("Lunch", 500))
	require.NoError(t, err)
	assert.Equal(t, domain.FlagOnTrack, res.FoodLog.Status)
	assert.Equal(t, domain.FlagMixed, res.FoodLog.Healthy)
	require.Len(t, seen, 2)
	require.NotNil(t, seen[1].Previous)
	assert.Equal(t, "2026-02-09", seen[1].Previous.Date)
	assert.Len(t, seen[1].Events, 1)

	fail = true
	f.clock.Advance(time.Minute)
	res, err = svc.AddFoodEvent(ctx, tenant, meal("Snack", 150))
	require.NoError(t, err)
	assert.Equal(t, domain.FlagOnTrack, res.FoodLog.Status)
	assert.Equal(t, domain.FlagMixed, res.FoodLog.Healthy)
	assert.Equal(t, 650.0, res.FoodLog.Calories)
}

func TestSynthesis_ClassifierTimeoutKeepsFlags(t *testing.T) {
	f := newFixture(t, 12, 0)
	cls := classifier.Func(func(ctx context.Context, _ classifier.Request) (classifier.Result, error) {
		<-ctx.Done()
		return classifier.Result{}, ctx.Err()
	})
	svc := f.tracking(cls, TrackingOptions{ClassifierTimeout: 10 * time.Millisecond})

	res, err := svc.AddFoodEvent(context.Background(), tenant, meal("Soup", 300))
	require.NoError(t, err)
	assert.Equal(t, domain.FlagIncomplete, res.FoodLog.Status)
	assert.Equal(t, 300.0, res.FoodLog.Calories)
}

func TestSynthesis_ClassifierInvalidFlagsIgnored(t *testing.T) {
	f := newFixture(t, 12, 0)
	cls := classifier.Func(func(context.Context, classifier.Request) (classifier.Result, error) {
		return classifier.Result{Status: "great", Healthy: domain.FlagOnTrack}, nil
	})
	svc := f.tracking(cls, TrackingOptions{})

	res, err := svc.AddFoodEvent(context.Background(), tenant, meal("Soup", 300))
	require.NoError(t, err)
	assert.Equal(t, domain.FlagIncomplete, res.FoodLog.Status)
	assert.Equal(t, domain.FlagIncomplete, res.FoodLog.Healthy)
}

func TestGetFoodEventsForDate_OrderedByLoggedAt(t *testing.T) {
	f := newFixture(t, 12, 0)
	ctx := context.Background()
	ds := f.dataset(t)
	base := time.Date(2026, 2, 10, 8, 0, 0, 0, f.loc)
	ds.FoodEvents = []domain.FoodEvent{
		{ID: "late", Date: "2026-02-10", LoggedAt: base.Add(4 * time.Hour), Source: domain.SourceManual, Description: "Lunch"},
		{ID: "other", Date: "2026-02-11", LoggedAt: base, Source: domain.SourceManual, Description: "Dinner"},
		{ID: "early", Date: "2026-02-10", LoggedAt: base, Source: domain.SourceManual, Description: "Breakfast"},
	}
	f.seed(t, ds)
	svc := f.tracking(nil, TrackingOptions{})

	events, err := svc.GetFoodEventsForDate(ctx, tenant, "2026-02-10")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "early", events[0].ID)
	assert.Equal(t, "late", events[1].ID)

	none, err := svc.GetFoodEventsForDate(ctx, tenant, "2026-03-01")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
