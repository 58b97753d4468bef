// internal/repository/mongo/dataset_repo.go
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
)

const (
	eventCollectionName       = "food_events"
	foodLogCollectionName     = "food_log"
	archiveCollectionName     = "fitness_weeks"
	currentWeekCollectionName = "current_weeks"
	profileCollectionName     = "profiles"
)

type eventDoc struct {
	TenantID         string `bson:"tenantId"`
	Seq              int    `bson:"seq"`
	domain.FoodEvent `bson:",inline"`
}

type foodLogDoc struct {
	TenantID          string `bson:"tenantId"`
	Seq               int    `bson:"seq"`
	domain.FoodLogRow `bson:",inline"`
}

type weekDoc struct {
	TenantID               string `bson:"tenantId"`
	Seq                    int    `bson:"seq"`
	domain.WeeklyChecklist `bson:",inline"`
}

// currentWeekDoc and profileDoc are singletons keyed by tenant id.
type currentWeekDoc struct {
	TenantID               string `bson:"_id"`
	domain.WeeklyChecklist `bson:",inline"`
}

type profileDoc struct {
	TenantID string  `bson:"_id"`
	Profile  *string `bson:"profile"`
	Rules    *string `bson:"rules"`
}

// mongoDatasetRepository implements repository.DatasetRepository
type mongoDatasetRepository struct {
	client       *mongo.Client
	events       *mongo.Collection
	foodLog      *mongo.Collection
	archive      *mongo.Collection
	currentWeeks *mongo.Collection
	profiles     *mongo.Collection
	transactions bool
}

// NewMongoDatasetRepository creates a dataset repository backed by MongoDB.
//
// Multi-document replacement (DeleteMany then InsertMany per collection) is
// only atomic when useTransactions is set, which needs a replica set. Without
// it a reader racing a write can briefly see a tenant's collection empty or
// see new events next to old food-log rows.
func NewMongoDatasetRepository(db *mongo.Database, useTransactions bool) repository.DatasetRepository {
	return &mongoDatasetRepository{
		client:       db.Client(),
		events:       db.Collection(eventCollectionName),
		foodLog:      db.Collection(foodLogCollectionName),
		archive:      db.Collection(archiveCollectionName),
		currentWeeks: db.Collection(currentWeekCollectionName),
		profiles:     db.Collection(profileCollectionName),
		transactions: useTransactions,
	}
}

// Read loads every collection slice of the tenant.
func (r *mongoDatasetRepository) Read(ctx context.Context, tenantID string) (*domain.Dataset, error) {
	if err := repository.CheckTenant(tenantID); err != nil {
		return nil, err
	}
	ds := domain.NewDataset()
	filter := bson.M{"tenantId": tenantID}
	sorted := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})

	var events []eventDoc
	if err := findAll(ctx, r.events, filter, sorted, &events); err != nil {
		return nil, fmt.Errorf("find food events: %w", err)
	}
	for _, d := range events {
		ds.FoodEvents = append(ds.FoodEvents, d.FoodEvent)
	}

	var rows []foodLogDoc
	if err := findAll(ctx, r.foodLog, filter, sorted, &rows); err != nil {
		return nil, fmt.Errorf("find food log: %w", err)
	}
	for _, d := range rows {
		ds.FoodLog = append(ds.FoodLog, d.FoodLogRow)
	}

	var weeks []weekDoc
	if err := findAll(ctx, r.archive, filter, sorted, &weeks); err != nil {
		return nil, fmt.Errorf("find fitness weeks: %w", err)
	}
	for _, d := range weeks {
		w := d.WeeklyChecklist
		w.Normalize()
		ds.FitnessWeeks = append(ds.FitnessWeeks, w)
	}

	var current currentWeekDoc
	err := r.currentWeeks.FindOne(ctx, bson.M{"_id": tenantID}).Decode(&current)
	switch {
	case err == nil:
		w := current.WeeklyChecklist
		w.Normalize()
		ds.CurrentWeek = &w
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("find current week: %w", err)
	}

	var profile profileDoc
	err = r.profiles.FindOne(ctx, bson.M{"_id": tenantID}).Decode(&profile)
	switch {
	case err == nil:
		ds.Profile = textBlob(profile.Profile)
		ds.Rules = textBlob(profile.Rules)
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("find profile: %w", err)
	}

	ds.EnsureCollections()
	return ds, nil
}

// Write replaces the tenant's documents in every collection.
func (r *mongoDatasetRepository) Write(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	if err := repository.CheckTenant(tenantID); err != nil {
		return err
	}
	if !r.transactions {
		return r.replace(ctx, tenantID, ds)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.replace(sc, tenantID, ds)
	})
	return err
}

func (r *mongoDatasetRepository) replace(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	docs := buildDocs(tenantID, ds)
	filter := bson.M{"tenantId": tenantID}

	if err := replaceMany(ctx, r.events, filter, docs.events); err != nil {
		return fmt.Errorf("replace food events: %w", err)
	}
	if err := replaceMany(ctx, r.foodLog, filter, docs.foodLog); err != nil {
		return fmt.Errorf("replace food log: %w", err)
	}
	if err := replaceMany(ctx, r.archive, filter, docs.archive); err != nil {
		return fmt.Errorf("replace fitness weeks: %w", err)
	}

	upsert := options.Replace().SetUpsert(true)
	if docs.current == nil {
		if _, err := r.currentWeeks.DeleteOne(ctx, bson.M{"_id": tenantID}); err != nil {
			return fmt.Errorf("clear current week: %w", err)
		}
	} else if _, err := r.currentWeeks.ReplaceOne(ctx, bson.M{"_id": tenantID}, docs.current, upsert); err != nil {
		return fmt.Errorf("upsert current week: %w", err)
	}
	if _, err := r.profiles.ReplaceOne(ctx, bson.M{"_id": tenantID}, docs.profile, upsert); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

type datasetDocs struct {
	events  []interface{}
	foodLog []interface{}
	archive []interface{}
	current *currentWeekDoc
	profile profileDoc
}

// buildDocs converts a dataset into tenant-tagged documents.
func buildDocs(tenantID string, ds *domain.Dataset) datasetDocs {
	docs := datasetDocs{
		events:  make([]interface{}, 0, len(ds.FoodEvents)),
		foodLog: make([]interface{}, 0, len(ds.FoodLog)),
		archive: make([]interface{}, 0, len(ds.FitnessWeeks)),
		profile: profileDoc{TenantID: tenantID, Profile: blobText(ds.Profile), Rules: blobText(ds.Rules)},
	}
	for i, ev := range ds.FoodEvents {
		ev.LoggedAt = ev.LoggedAt.UTC()
		docs.events = append(docs.events, eventDoc{TenantID: tenantID, Seq: i, FoodEvent: ev})
	}
	for i, row := range ds.FoodLog {
		docs.foodLog = append(docs.foodLog, foodLogDoc{TenantID: tenantID, Seq: i, FoodLogRow: row})
	}
	for i, w := range ds.FitnessWeeks {
		w.Normalize()
		docs.archive = append(docs.archive, weekDoc{TenantID: tenantID, Seq: i, WeeklyChecklist: w})
	}
	if ds.CurrentWeek != nil {
		w := *ds.CurrentWeek
		w.Normalize()
		docs.current = &currentWeekDoc{TenantID: tenantID, WeeklyChecklist: w}
	}
	return docs
}

func replaceMany(ctx context.Context, collection *mongo.Collection, filter bson.M, docs []interface{}) error {
	if _, err := collection.DeleteMany(ctx, filter); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := collection.InsertMany(ctx, docs)
	return err
}

func findAll(ctx context.Context, collection *mongo.Collection, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	if err = cursor.All(ctx, out); err != nil {
		return err
	}
	return cursor.Err()
}

func blobText(raw []byte) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	s := string(raw)
	return &s
}

func textBlob(s *string) []byte {
	if s == nil {
		return nil
	}
	return []byte(*s)
}

// EnsureDatasetIndexes creates necessary indexes. Call during startup.
func EnsureDatasetIndexes(ctx context.Context, db *mongo.Database) error {
	tenantSeq := bson.D{{Key: "tenantId", Value: 1}, {Key: "seq", Value: 1}}
	specs := map[string][]mongo.IndexModel{
		eventCollectionName: {
			{Keys: tenantSeq},
			{
				Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "idempotency_key", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}}),
			},
		},
		foodLogCollectionName: {
			{Keys: tenantSeq},
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		archiveCollectionName: {
			{Keys: tenantSeq},
			// Archive never holds two entries for the same week.
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "week_start", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, indexes := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}
