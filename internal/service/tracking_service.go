package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"alcyxob/health-tracker/internal/classifier"
	"alcyxob/health-tracker/internal/config"
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/metrics"
	"alcyxob/health-tracker/internal/nutrition"
)

const (
	DefaultDedupeWindow      = 15 * time.Second
	DefaultMaxKeyLen         = 128
	DefaultClassifierTimeout = 8 * time.Second
)

// TrackingService is the event store plus the food log it feeds.
type TrackingService interface {
	AddFoodEvent(ctx context.Context, tenantID string, in FoodEventInput) (*EventResult, error)
	UpdateFoodEvent(ctx context.Context, tenantID, eventID string, in FoodEventInput) (*EventResult, error)
	GetDailyTotals(ctx context.Context, tenantID, date string) (domain.Nutrients, error)
	GetFoodEventsForDate(ctx context.Context, tenantID, date string) ([]domain.FoodEvent, error)
	ListFoodLog(ctx context.Context, tenantID string, q FoodLogQuery) ([]domain.FoodLogRow, error)
	GetFoodLogRow(ctx context.Context, tenantID, date string) (*domain.FoodLogRow, error)
	RollupFromEvents(ctx context.Context, tenantID, date string, overwrite bool) (*RollupResult, error)
	SyncEventsToFoodLog(ctx context.Context, tenantID, date string, onlyUnsynced bool) (*SyncResult, error)
	UpsertFoodLogRow(ctx context.Context, tenantID, date string, patch FoodLogPatch) (*domain.FoodLogRow, error)
}

// FoodEventInput is the caller-supplied part of a food event.
// An empty Date means "the suggested log date for now".
type FoodEventInput struct {
	Date           string            `json:"date"`
	Source         domain.Source     `json:"source"`
	Description    string            `json:"description"`
	InputText      *string           `json:"input_text"`
	Notes          string            `json:"notes"`
	Nutrients      *domain.Nutrients `json:"nutrients"`
	Model          string            `json:"model"`
	Confidence     float64           `json:"confidence"`
	Items          json.RawMessage   `json:"items,omitempty"`
	IdempotencyKey *string           `json:"idempotency_key"`
}

// EventResult is returned by every event mutation.
type EventResult struct {
	Event     domain.FoodEvent   `json:"event"`
	LogAction domain.LogAction   `json:"log_action"`
	Totals    domain.Nutrients   `json:"totals"`
	FoodLog   *domain.FoodLogRow `json:"food_log"`
}

// FoodLogQuery filters ListFoodLog. From and To are inclusive; Limit <= 0 returns everything.
type FoodLogQuery struct {
	From  string
	To    string
	Limit int
}

// FoodLogPatch edits the user-owned fields of a food log row.
type FoodLogPatch struct {
	WeightLb    *float64 `json:"weight_lb"`
	ClearWeight bool     `json:"clear_weight"`
	Notes       *string  `json:"notes"`
}

// RollupResult reports what RollupFromEvents did to the row.
type RollupResult struct {
	Row        domain.FoodLogRow `json:"row"`
	Action     string            `json:"action"` // created, updated or skipped
	EventCount int               `json:"event_count"`
}

// SyncResult lists the dates SyncEventsToFoodLog re-synthesized.
type SyncResult struct {
	Dates        []string `json:"dates"`
	EventsSynced int      `json:"events_synced"`
}

// TrackingOptions tunes duplicate suppression and synthesis.
type TrackingOptions struct {
	DedupeWindow      time.Duration
	MaxKeyLen         int
	ClassifierTimeout time.Duration
	Diet              config.DietConfig
}

// trackingService implements the TrackingService interface.
type trackingService struct {
	Core
	opts  TrackingOptions
	synth *synthesizer
}

// NewTrackingService creates a new instance of trackingService.
func NewTrackingService(core Core, cls classifier.Classifier, opts TrackingOptions) TrackingService {
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = DefaultDedupeWindow
	}
	if opts.MaxKeyLen <= 0 {
		opts.MaxKeyLen = DefaultMaxKeyLen
	}
	if opts.ClassifierTimeout <= 0 {
		opts.ClassifierTimeout = DefaultClassifierTimeout
	}
	if cls == nil {
		cls = classifier.Disabled{}
	}
	return &trackingService{
		Core: core,
		opts: opts,
		synth: &synthesizer{
			dates:      core.Dates,
			classifier: cls,
			timeout:    opts.ClassifierTimeout,
			diet:       opts.Diet,
			log:        core.logger(),
		},
	}
}

// AddFoodEvent records a meal, unless an event with the same idempotency key
// exists or an identical one was logged within the dedupe window.
func (s *trackingService) AddFoodEvent(ctx context.Context, tenantID string, in FoodEventInput) (*EventResult, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	now := s.now()
	if strings.TrimSpace(in.Date) == "" {
		in.Date = s.Dates.SuggestedLogDate(now)
	}
	key, err := s.validateInput(&in)
	if err != nil {
		return nil, err
	}

	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if existing := s.findDuplicate(ds.FoodEvents, in, key, now); existing >= 0 {
		ev := ds.FoodEvents[existing]
		metrics.RecordLogAction(string(domain.LogActionExisting))
		s.logger().WithFields(logrus.Fields{"tenant": tenantID, "event_id": ev.ID, "date": ev.Date}).Info("duplicate food event suppressed")
		return s.result(ds, ev, domain.LogActionExisting), nil
	}

	ev := domain.FoodEvent{
		ID:             uuid.NewString(),
		LoggedAt:       s.Dates.In(now).Truncate(loggedAtPrecision),
		IdempotencyKey: key,
	}
	applyInput(&ev, in)
	ev.RolloverApplied = ev.Date != s.Dates.LogicalDate(now)
	ds.FoodEvents = append(ds.FoodEvents, ev)

	if err := s.synth.synthesize(ctx, ds, ev.Date, false); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tenantID, ds); err != nil {
		return nil, err
	}

	metrics.RecordLogAction(string(domain.LogActionCreated))
	s.logger().WithFields(logrus.Fields{
		"tenant":   tenantID,
		"event_id": ev.ID,
		"date":     ev.Date,
		"rollover": ev.RolloverApplied,
	}).Info("food event created")
	return s.result(ds, ds.FoodEvents[ds.FindEvent(ev.ID)], domain.LogActionCreated), nil
}

// UpdateFoodEvent replaces the mutable fields of an event. ID and LoggedAt are kept.
// When the date changes both the old and the new date are re-synthesized.
func (s *trackingService) UpdateFoodEvent(ctx context.Context, tenantID, eventID string, in FoodEventInput) (*EventResult, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(eventID) == "" {
		return nil, invalid("event_id", "is required")
	}

	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	idx := ds.FindEvent(eventID)
	if idx < 0 {
		return nil, ErrEventNotFound
	}
	if strings.TrimSpace(in.Date) == "" {
		in.Date = ds.FoodEvents[idx].Date
	}
	key, err := s.validateInput(&in)
	if err != nil {
		return nil, err
	}
	if key != nil {
		for i := range ds.FoodEvents {
			other := ds.FoodEvents[i].IdempotencyKey
			if i != idx && other != nil && *other == *key {
				return nil, invalid("idempotency_key", "already used by event %s", ds.FoodEvents[i].ID)
			}
		}
	}

	ev := &ds.FoodEvents[idx]
	oldDate := ev.Date
	applyInput(ev, in)
	if key != nil {
		ev.IdempotencyKey = key
	}
	ev.RolloverApplied = ev.Date != s.Dates.LogicalDate(ev.LoggedAt)
	updated := *ev

	if oldDate != updated.Date {
		if err := s.synth.synthesize(ctx, ds, oldDate, false); err != nil {
			return nil, err
		}
	}
	if err := s.synth.synthesize(ctx, ds, updated.Date, false); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tenantID, ds); err != nil {
		return nil, err
	}

	metrics.RecordLogAction(string(domain.LogActionUpdated))
	s.logger().WithFields(logrus.Fields{"tenant": tenantID, "event_id": eventID, "from": oldDate, "to": updated.Date}).Info("food event updated")
	return s.result(ds, ds.FoodEvents[ds.FindEvent(eventID)], domain.LogActionUpdated), nil
}

// GetDailyTotals aggregates the nutrients of every event on date.
func (s *trackingService) GetDailyTotals(ctx context.Context, tenantID, date string) (domain.Nutrients, error) {
	if err := checkTenant(tenantID); err != nil {
		return domain.Nutrients{}, err
	}
	if err := s.checkDate("date", date); err != nil {
		return domain.Nutrients{}, err
	}
	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return domain.Nutrients{}, err
	}
	return totalsOf(ds.EventsOn(date)), nil
}

// GetFoodEventsForDate returns the events of date ordered by LoggedAt.
func (s *trackingService) GetFoodEventsForDate(ctx context.Context, tenantID, date string) ([]domain.FoodEvent, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.checkDate("date", date); err != nil {
		return nil, err
	}
	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	events := ds.EventsOn(date)
	if events == nil {
		events = []domain.FoodEvent{}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].LoggedAt.Before(events[j].LoggedAt)
	})
	return events, nil
}

func (s *trackingService) result(ds *domain.Dataset, ev domain.FoodEvent, action domain.LogAction) *EventResult {
	res := &EventResult{
		Event:     ev,
		LogAction: action,
		Totals:    totalsOf(ds.EventsOn(ev.Date)),
	}
	if i := ds.FindFoodLog(ev.Date); i >= 0 {
		row := ds.FoodLog[i]
		res.FoodLog = &row
	}
	return res
}

// validateInput checks everything that can be checked without storage and
// returns the normalized idempotency key (nil when absent).
func (s *trackingService) validateInput(in *FoodEventInput) (*string, error) {
	if err := s.checkDate("date", in.Date); err != nil {
		return nil, err
	}
	if in.Source == "" {
		in.Source = domain.SourceManual
	}
	if !in.Source.Valid() {
		return nil, invalid("source", "must be %q or %q", domain.SourceManual, domain.SourcePhoto)
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, invalid("description", "is required")
	}
	if in.Nutrients == nil {
		return nil, invalid("nutrients", "are required")
	}
	if err := validateNutrients(*in.Nutrients); err != nil {
		return nil, err
	}
	if math.IsNaN(in.Confidence) || in.Confidence < 0 || in.Confidence > 1 {
		return nil, invalid("confidence", "must be between 0 and 1")
	}
	if len(in.Items) > 0 && !json.Valid(in.Items) {
		return nil, invalid("items", "must be valid JSON")
	}
	if in.IdempotencyKey == nil {
		return nil, nil
	}
	key := strings.TrimSpace(*in.IdempotencyKey)
	if key == "" {
		return nil, nil
	}
	if len(key) > s.opts.MaxKeyLen {
		return nil, invalid("idempotency_key", "longer than %d characters", s.opts.MaxKeyLen)
	}
	return &key, nil
}

func validateNutrients(n domain.Nutrients) error {
	core := []struct {
		name  string
		value float64
	}{
		{"calories", n.Calories},
		{"fat_g", n.FatG},
		{"carbs_g", n.CarbsG},
		{"protein_g", n.ProteinG},
	}
	for _, c := range core {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value < 0 {
			return invalid("nutrients."+c.name, "must be a finite non-negative number")
		}
	}
	for _, field := range domain.MicroFields {
		v := *n.Micro(field)
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
			return invalid("nutrients."+string(field), "must be null or a finite non-negative number")
		}
	}
	return nil
}

// loggedAtPrecision is the finest resolution every adapter round-trips.
const loggedAtPrecision = time.Millisecond

// findDuplicate returns the index of an event the input duplicates, or -1.
// A supplied key only ever matches by key; without one, an identical event on
// the same date logged within the dedupe window counts as a duplicate.
func (s *trackingService) findDuplicate(events []domain.FoodEvent, in FoodEventInput, key *string, now time.Time) int {
	if key != nil {
		for i := range events {
			if events[i].IdempotencyKey != nil && *events[i].IdempotencyKey == *key {
				return i
			}
		}
		return -1
	}
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Date != in.Date || ev.Source != in.Source || ev.Description != in.Description || ev.Notes != in.Notes {
			continue
		}
		if !sameText(ev.InputText, in.InputText) || !nutrition.Equal(ev.Nutrients, *in.Nutrients) {
			continue
		}
		age := now.Truncate(loggedAtPrecision).Sub(ev.LoggedAt)
		if age < 0 {
			age = -age
		}
		if age <= s.opts.DedupeWindow {
			return i
		}
	}
	return -1
}

func applyInput(ev *domain.FoodEvent, in FoodEventInput) {
	ev.Date = in.Date
	ev.Source = in.Source
	ev.Description = in.Description
	ev.InputText = in.InputText
	ev.Notes = in.Notes
	ev.Nutrients = *in.Nutrients
	ev.Model = in.Model
	ev.Confidence = in.Confidence
	ev.Items = in.Items
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func totalsOf(events []domain.FoodEvent) domain.Nutrients {
	list := make([]domain.Nutrients, 0, len(events))
	for _, ev := range events {
		list = append(list, ev.Nutrients)
	}
	return nutrition.Aggregate(list)
}
