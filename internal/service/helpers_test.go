package service

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/classifier"
	"alcyxob/health-tracker/internal/datetime"
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/logging"
	"alcyxob/health-tracker/internal/repository"
	"alcyxob/health-tracker/internal/repository/memory"
)

const tenant = "tenant-a"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type flakyRepo struct {
	repository.DatasetRepository
	failWrites bool
	failReads  bool
	writes     int
}

func (f *flakyRepo) Read(ctx context.Context, tenantID string) (*domain.Dataset, error) {
	if f.failReads {
		return nil, errors.New("connection refused")
	}
	return f.DatasetRepository.Read(ctx, tenantID)
}

func (f *flakyRepo) Write(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	if f.failWrites {
		return errors.New("disk full")
	}
	f.writes++
	return f.DatasetRepository.Write(ctx, tenantID, ds)
}

type fixture struct {
	repo  *flakyRepo
	clock *fakeClock
	core  Core
	loc   *time.Location
}

// newFixture starts the clock at local time hh:mm on 2026-02-10, a Tuesday.
func newFixture(t *testing.T, hh, mm int) *fixture {
	t.Helper()
	dates, err := datetime.NewNormalizer("America/Los_Angeles", 5, 6*time.Hour)
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2026, 2, 10, hh, mm, 0, 0, dates.Location)}
	repo := &flakyRepo{DatasetRepository: memory.NewRepository()}
	return &fixture{
		repo:  repo,
		clock: clock,
		loc:   dates.Location,
		core:  Core{Repo: repo, Dates: dates, Now: clock.Now, Log: logging.Discard()},
	}
}

func (f *fixture) tracking(cls classifier.Classifier, opts TrackingOptions) TrackingService {
	return NewTrackingService(f.core, cls, opts)
}

func (f *fixture) dataset(t *testing.T) *domain.Dataset {
	t.Helper()
	ds, err := f.repo.DatasetRepository.Read(context.Background(), tenant)
	require.NoError(t, err)
	return ds
}

func (f *fixture) seed(t *testing.T, ds *domain.Dataset) {
	t.Helper()
	require.NoError(t, f.repo.DatasetRepository.Write(context.Background(), tenant, ds))
}

func meal(description string, calories float64) FoodEventInput {
	return FoodEventInput{
		Source:      domain.SourceManual,
		Description: description,
		Nutrients:   &domain.Nutrients{Calories: calories, ProteinG: calories / 20, FiberG: domain.Float(2)},
		Model:       "manual",
		Confidence:  1,
	}
}

func strPtr(s string) *string { return &s }
