package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"alcyxob/health-tracker/internal/datetime"
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/metrics"
	"alcyxob/health-tracker/internal/repository"
)

// Core bundles what every service needs: the storage adapter, the date
// normalizer, a clock and a logger.
type Core struct {
	Repo  repository.DatasetRepository
	Dates *datetime.Normalizer
	Now   func() time.Time
	Log   logrus.FieldLogger
}

func (c Core) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Core) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// load reads the tenant's dataset and re-expresses every instant in the fixed zone.
func (c Core) load(ctx context.Context, tenantID string) (*domain.Dataset, error) {
	started := time.Now()
	ds, err := c.Repo.Read(ctx, tenantID)
	metrics.ObserveBackend("read", started, err)
	if err != nil {
		c.logger().WithFields(logrus.Fields{"tenant": tenantID, "op": "read"}).WithError(err).Error("dataset read failed")
		return nil, &BackendError{Op: "read", Err: err}
	}
	ds.EnsureCollections()
	for i := range ds.FoodEvents {
		ds.FoodEvents[i].LoggedAt = c.Dates.In(ds.FoodEvents[i].LoggedAt)
	}
	return ds, nil
}

func (c Core) save(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	started := time.Now()
	err := c.Repo.Write(ctx, tenantID, ds)
	metrics.ObserveBackend("write", started, err)
	if err != nil {
		c.logger().WithFields(logrus.Fields{"tenant": tenantID, "op": "write"}).WithError(err).Error("dataset write failed")
		return &BackendError{Op: "write", Err: err}
	}
	return nil
}

func checkTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return invalid("tenant_id", "is required")
	}
	return nil
}

func (c Core) checkDate(field, date string) error {
	if _, err := c.Dates.Parse(date); err != nil {
		return invalid(field, "%v", err)
	}
	return nil
}
