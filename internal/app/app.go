// Package app wires configuration into storage, classifier and services.
// Both the HTTP server and the trackctl CLI start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"alcyxob/health-tracker/internal/classifier"
	"alcyxob/health-tracker/internal/config"
	"alcyxob/health-tracker/internal/datetime"
	"alcyxob/health-tracker/internal/repository"
	"alcyxob/health-tracker/internal/repository/file"
	"alcyxob/health-tracker/internal/repository/memory"
	"alcyxob/health-tracker/internal/repository/mongo"
	"alcyxob/health-tracker/internal/repository/sqlstore"
	"alcyxob/health-tracker/internal/service"
	"alcyxob/health-tracker/internal/storage"
)

// App holds the services built from one Config.
type App struct {
	Config    config.Config
	Dates     *datetime.Normalizer
	Repo      repository.DatasetRepository
	Tracking  service.TrackingService
	Checklist service.ChecklistService
	Profiles  service.ProfileService
	Export    service.ExportService

	closers []func() error
}

// Options override pieces of the wiring, mostly for tests.
type Options struct {
	Now        func() time.Time
	Repo       repository.DatasetRepository
	Classifier classifier.Classifier
	Snapshots  storage.SnapshotStore
}

// New builds an App. Close must be called to release storage connections.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger, opts Options) (*App, error) {
	dates, err := datetime.NewNormalizer(cfg.Tracking.Timezone, cfg.Tracking.RolloverHour, cfg.Tracking.RolloverShift)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Dates: dates}

	repo := opts.Repo
	if repo == nil {
		if repo, err = a.openRepository(ctx, cfg.Storage, log); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	a.Repo = repo

	cls := opts.Classifier
	if cls == nil {
		cls = classifier.Disabled{}
		if cfg.Classifier.URL != "" {
			cls = classifier.NewHTTPClassifier(cfg.Classifier.URL, cfg.Classifier.Timeout)
		}
	}

	snapshots := opts.Snapshots
	if snapshots == nil && cfg.S3.Enabled() {
		if snapshots, err = storage.NewS3Storage(ctx, cfg.S3, log); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("init snapshot storage: %w", err)
		}
	}

	core := service.Core{Repo: repo, Dates: dates, Now: opts.Now, Log: log}
	a.Tracking = service.NewTrackingService(core, cls, service.TrackingOptions{
		DedupeWindow:      cfg.Tracking.DedupeWindow,
		MaxKeyLen:         cfg.Tracking.MaxIdempotencyKeyLen,
		ClassifierTimeout: cfg.Classifier.Timeout,
		Diet:              cfg.Diet,
	})
	a.Checklist = service.NewChecklistService(core)
	a.Profiles = service.NewProfileService(core)
	a.Export = service.NewExportService(core, snapshots, 0)
	return a, nil
}

func (a *App) openRepository(ctx context.Context, cfg config.StorageConfig, log logrus.FieldLogger) (repository.DatasetRepository, error) {
	log = log.WithField("backend", cfg.Backend)
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewRepository(), nil

	case config.BackendFile:
		repo, err := file.NewRepository(cfg.File.Dir, cfg.File.SingleUser)
		if err != nil {
			return nil, err
		}
		log.WithField("dir", cfg.File.Dir).Info("file storage ready")
		return repo, nil

	case config.BackendPostgres, config.BackendSQLite:
		db, err := sqlstore.Open(cfg.Backend, cfg.SQL.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := sqlstore.Migrate(ctx, db); err != nil {
			return nil, err
		}
		log.Info("sql storage ready")
		return sqlstore.NewStore(db), nil

	case config.BackendMongo:
		client, db, err := mongo.Open(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return mongo.Close(client) })
		if err := mongo.EnsureDatasetIndexes(ctx, db); err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"database": cfg.Mongo.Name, "transactions": cfg.Mongo.Transactions}).Info("mongo storage ready")
		return mongo.NewMongoDatasetRepository(db, cfg.Mongo.Transactions), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// Close releases storage connections in reverse order of opening.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
