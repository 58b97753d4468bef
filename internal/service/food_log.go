package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"alcyxob/health-tracker/internal/domain"
)

// Rollup actions.
const (
	RollupCreated = "created"
	RollupUpdated = "updated"
	RollupSkipped = "skipped"
)

// ListFoodLog returns rows newest first, optionally bounded by an inclusive date range.
func (s *trackingService) ListFoodLog(ctx context.Context, tenantID string, q FoodLogQuery) ([]domain.FoodLogRow, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	if q.From != "" {
		if err := s.checkDate("from", q.From); err != nil {
			return nil, err
		}
	}
	if q.To != "" {
		if err := s.checkDate("to", q.To); err != nil {
			return nil, err
		}
	}
	if q.From != "" && q.To != "" && q.From > q.To {
		return nil, invalid("from", "must not be after to")
	}

	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.FoodLogRow, 0, len(ds.FoodLog))
	for _, row := range ds.FoodLog {
		if q.From != "" && row.Date < q.From {
			continue
		}
		if q.To != "" && row.Date > q.To {
			continue
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// GetFoodLogRow returns the row for date.
func (s *trackingService) GetFoodLogRow(ctx context.Context, tenantID, date string) (*domain.FoodLogRow, error) {
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
	i := ds.FindFoodLog(date)
	if i < 0 {
		return nil, ErrFoodLogNotFound
	}
	row := ds.FoodLog[i]
	return &row, nil
}

// RollupFromEvents builds the row for date from its events. An existing row is
// left alone unless overwrite is set. The row is created even when the date has no events.
func (s *trackingService) RollupFromEvents(ctx context.Context, tenantID, date string, overwrite bool) (*RollupResult, error) {
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
	count := len(ds.EventsOn(date))

	if i := ds.FindFoodLog(date); i >= 0 && !overwrite {
		return &RollupResult{Row: ds.FoodLog[i], Action: RollupSkipped, EventCount: count}, nil
	}
	action := RollupCreated
	if ds.FindFoodLog(date) >= 0 {
		action = RollupUpdated
	}
	if err := s.synth.synthesize(ctx, ds, date, true); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tenantID, ds); err != nil {
		return nil, err
	}
	s.logger().WithFields(logrus.Fields{"tenant": tenantID, "date": date, "action": action, "events": count}).Info("food log rolled up")
	return &RollupResult{Row: ds.FoodLog[ds.FindFoodLog(date)], Action: action, EventCount: count}, nil
}

// SyncEventsToFoodLog re-synthesizes the rows fed by events. An empty date
// means every date that has events. With onlyUnsynced, dates whose events
// were all already applied are skipped.
func (s *trackingService) SyncEventsToFoodLog(ctx context.Context, tenantID, date string, onlyUnsynced bool) (*SyncResult, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	if date != "" {
		if err := s.checkDate("date", date); err != nil {
			return nil, err
		}
	}
	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	pending := map[string]int{}
	for _, ev := range ds.FoodEvents {
		if date != "" && ev.Date != date {
			continue
		}
		if onlyUnsynced && ev.AppliedToFoodLog {
			continue
		}
		pending[ev.Date]++
	}
	res := &SyncResult{Dates: make([]string, 0, len(pending))}
	for d, n := range pending {
		res.Dates = append(res.Dates, d)
		res.EventsSynced += n
	}
	sort.Strings(res.Dates)
	if len(res.Dates) == 0 {
		return res, nil
	}

	for _, d := range res.Dates {
		if err := s.synth.synthesize(ctx, ds, d, false); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, tenantID, ds); err != nil {
		return nil, err
	}
	s.logger().WithFields(logrus.Fields{"tenant": tenantID, "dates": len(res.Dates), "events": res.EventsSynced}).Info("events synced to food log")
	return res, nil
}

// UpsertFoodLogRow edits weight and notes of the row for date, creating the
// row from the date's events when missing. Clearing notes hands them back to
// the synthesizer on the next rebuild.
func (s *trackingService) UpsertFoodLogRow(ctx context.Context, tenantID, date string, patch FoodLogPatch) (*domain.FoodLogRow, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.checkDate("date", date); err != nil {
		return nil, err
	}
	if w := patch.WeightLb; w != nil && (math.IsNaN(*w) || math.IsInf(*w, 0) || *w <= 0) {
		return nil, invalid("weight_lb", "must be a positive number")
	}
	if patch.Notes != nil && strings.HasPrefix(*patch.Notes, AutoNotePrefix) {
		return nil, invalid("notes", "must not start with %q", AutoNotePrefix)
	}

	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if ds.FindFoodLog(date) < 0 {
		if err := s.synth.synthesize(ctx, ds, date, true); err != nil {
			return nil, err
		}
	}
	row := &ds.FoodLog[ds.FindFoodLog(date)]
	switch {
	case patch.ClearWeight:
		row.WeightLb = nil
	case patch.WeightLb != nil:
		w := *patch.WeightLb
		row.WeightLb = &w
	}
	if patch.Notes != nil {
		row.Notes = *patch.Notes
	}
	out := *row

	if err := s.save(ctx, tenantID, ds); err != nil {
		return nil, err
	}
	s.logger().WithFields(logrus.Fields{"tenant": tenantID, "date": date}).Info("food log row updated")
	return &out, nil
}
