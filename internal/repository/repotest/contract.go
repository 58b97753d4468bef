// Package repotest holds the behavior every DatasetRepository must share.
package repotest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
)

// Factory returns a fresh, empty repository for one subtest.
type Factory func(t *testing.T) repository.DatasetRepository

// RunContract runs the shared adapter contract against repositories built by newRepo.
func RunContract(t *testing.T, newRepo Factory) {
	t.Run("EmptyTenantReadsEmptyDataset", func(t *testing.T) {
		repo := newRepo(t)
		ds, err := repo.Read(context.Background(), "tenant-a")
		require.NoError(t, err)
		assert.Empty(t, ds.FoodEvents)
		assert.NotNil(t, ds.FoodEvents)
		assert.NotNil(t, ds.FoodLog)
		assert.NotNil(t, ds.FitnessWeeks)
		assert.Nil(t, ds.CurrentWeek)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		want := SampleDataset()
		require.NoError(t, repo.Write(ctx, "tenant-a", want))

		got, err := repo.Read(ctx, "tenant-a")
		require.NoError(t, err)
		AssertDatasetsEqual(t, want, got)
	})

	t.Run("WriteReplacesWholeDataset", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Write(ctx, "tenant-a", SampleDataset()))

		next := SampleDataset()
		next.FoodEvents = next.FoodEvents[:1]
		next.FoodLog = []domain.FoodLogRow{}
		next.FitnessWeeks = []domain.WeeklyChecklist{}
		next.CurrentWeek.Summary = "replaced"
		require.NoError(t, repo.Write(ctx, "tenant-a", next))

		got, err := repo.Read(ctx, "tenant-a")
		require.NoError(t, err)
		AssertDatasetsEqual(t, next, got)
	})

	t.Run("TenantsAreIsolated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Write(ctx, "tenant-a", SampleDataset()))

		other, err := repo.Read(ctx, "tenant-b")
		require.NoError(t, err)
		assert.Empty(t, other.FoodEvents)
		assert.Nil(t, other.CurrentWeek)

		mine, err := repo.Read(ctx, "tenant-a")
		require.NoError(t, err)
		assert.Len(t, mine.FoodEvents, 2)
	})

	t.Run("MissingTenantRejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Read(context.Background(), " ")
		assert.ErrorIs(t, err, repository.ErrInvalidTenant)
		err = repo.Write(context.Background(), "", domain.NewDataset())
		assert.ErrorIs(t, err, repository.ErrInvalidTenant)
	})

	// Two unserialized read-modify-write cycles: the second write wins and
	// the first writer's event is lost. Callers must serialize per tenant.
	t.Run("LastWriterWins", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Write(ctx, "tenant-a", domain.NewDataset()))

		first, err := repo.Read(ctx, "tenant-a")
		require.NoError(t, err)
		second, err := repo.Read(ctx, "tenant-a")
		require.NoError(t, err)

		first.FoodEvents = append(first.FoodEvents, SampleDataset().FoodEvents[0])
		second.FoodEvents = append(second.FoodEvents, SampleDataset().FoodEvents[1])
		require.NoError(t, repo.Write(ctx, "tenant-a", first))
		require.NoError(t, repo.Write(ctx, "tenant-a", second))

		got, err := repo.Read(ctx, "tenant-a")
		require.NoError(t, err)
		require.Len(t, got.FoodEvents, 1)
		assert.Equal(t, "evt-2", got.FoodEvents[0].ID)
	})
}

// SampleDataset returns a dataset exercising every field kind: nil and zero
// micronutrients, nullable text, passthrough blobs, current and archived weeks.
func SampleDataset() *domain.Dataset {
	loc := time.FixedZone("PST", -8*3600)
	input := "two eggs and toast"
	key := "F01"
	return &domain.Dataset{
		FoodEvents: []domain.FoodEvent{
			{
				ID:              "evt-1",
				Date:            "2026-02-10",
				LoggedAt:        time.Date(2026, 2, 11, 1, 15, 0, 0, loc),
				RolloverApplied: true,
				Source:          domain.SourceManual,
				Description:     "Eggs and toast",
				InputText:       &input,
				Notes:           "",
				Nutrients: domain.Nutrients{
					Calories: 400, FatG: 20, CarbsG: 30, ProteinG: 25,
					FiberG: domain.Float(3), IronMg: domain.Float(0),
				},
				Model:          "estimator-v1",
				Confidence:     0.8,
				Items:          json.RawMessage(`[{"name":"egg","qty":2}]`),
				IdempotencyKey: &key,
			},
			{
				ID:               "evt-2",
				Date:             "2026-02-10",
				LoggedAt:         time.Date(2026, 2, 10, 12, 0, 0, 0, loc),
				Source:           domain.SourcePhoto,
				Description:      "Salad",
				Nutrients:        domain.Nutrients{Calories: 300, FiberG: domain.Float(6)},
				Model:            "estimator-v1",
				Confidence:       0.5,
				AppliedToFoodLog: true,
			},
		},
		FoodLog: []domain.FoodLogRow{
			{
				Date:      "2026-02-10",
				DayOfWeek: "Tuesday",
				WeightLb:  domain.Float(181.4),
				Nutrients: domain.Nutrients{Calories: 700, FatG: 20, CarbsG: 30, ProteinG: 25, FiberG: domain.Float(9)},
				Status:    domain.FlagMixed,
				Healthy:   domain.FlagIncomplete,
				Notes:     "kept this",
			},
		},
		CurrentWeek: &domain.WeeklyChecklist{
			WeekStart:      "2026-02-09",
			WeekLabel:      "Week of Feb 9, 2026",
			Summary:        "good start",
			CategoryOrder:  []string{"cardio", "strength"},
			CategoryLabels: map[string]string{"cardio": "Cardio", "strength": "Strength"},
			Categories: map[string][]domain.ChecklistItem{
				"cardio":   {{Item: "Zone 2 run", Checked: true, Details: "35 min"}},
				"strength": {{Item: "Upper body"}, {Item: "Lower body"}},
			},
		},
		FitnessWeeks: []domain.WeeklyChecklist{
			{
				WeekStart:      "2026-02-02",
				WeekLabel:      "Week of Feb 2, 2026",
				CategoryOrder:  []string{"cardio"},
				CategoryLabels: map[string]string{"cardio": "Cardio"},
				Categories: map[string][]domain.ChecklistItem{
					"cardio": {{Item: "Zone 2 run", Checked: true}},
				},
			},
		},
		Profile: json.RawMessage(`{"name":"Sam","height_in":70}`),
		Rules:   json.RawMessage(`{"metadata":{"checklist_template":{"category_order":["cardio"],"category_labels":{"cardio":"Cardio"},"categories":{"cardio":["Zone 2 run"]}}}}`),
	}
}

// AssertDatasetsEqual compares datasets semantically: instants by Equal,
// JSON blobs by content.
func AssertDatasetsEqual(t *testing.T, want, got *domain.Dataset) {
	t.Helper()
	require.Len(t, got.FoodEvents, len(want.FoodEvents))
	for i := range want.FoodEvents {
		assert.True(t, want.FoodEvents[i].LoggedAt.Equal(got.FoodEvents[i].LoggedAt),
			"logged_at of %s: want %s got %s", want.FoodEvents[i].ID, want.FoodEvents[i].LoggedAt, got.FoodEvents[i].LoggedAt)
	}
	assert.JSONEq(t, canonical(t, want), canonical(t, got))
}

func canonical(t *testing.T, ds *domain.Dataset) string {
	t.Helper()
	clone := *ds
	clone.FoodEvents = make([]domain.FoodEvent, len(ds.FoodEvents))
	for i, ev := range ds.FoodEvents {
		ev.LoggedAt = ev.LoggedAt.UTC()
		clone.FoodEvents[i] = ev
	}
	clone.EnsureCollections()
	data, err := json.Marshal(&clone)
	require.NoError(t, err)
	return string(data)
}
