package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"alcyxob/health-tracker/internal/classifier"
	"alcyxob/health-tracker/internal/config"
	"alcyxob/health-tracker/internal/datetime"
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/metrics"
	"alcyxob/health-tracker/internal/nutrition"
)

// AutoNotePrefix marks notes the synthesizer owns. Notes without it belong to
// the user and are never overwritten.
const AutoNotePrefix = "[auto] "

const topMeals = 3

// IsAutoNote reports whether notes may be regenerated.
func IsAutoNote(notes string) bool {
	return notes == "" || strings.HasPrefix(notes, AutoNotePrefix)
}

// synthesizer rebuilds the food log row of one date from that date's events.
type synthesizer struct {
	dates      *datetime.Normalizer
	classifier classifier.Classifier
	timeout    time.Duration
	diet       config.DietConfig
	log        logrus.FieldLogger
}

// synthesize refreshes the row for date in ds. Without events and without an
// existing row nothing is created unless force is set. Weight and user notes
// are preserved. A classifier failure leaves the previous flags in place.
func (s *synthesizer) synthesize(ctx context.Context, ds *domain.Dataset, date string, force bool) error {
	events := ds.EventsOn(date)
	idx := ds.FindFoodLog(date)
	if len(events) == 0 && idx < 0 && !force {
		return nil
	}
	dow, err := s.dates.DayOfWeek(date)
	if err != nil {
		return invalid("date", "%v", err)
	}

	var row domain.FoodLogRow
	if idx >= 0 {
		row = ds.FoodLog[idx]
	} else {
		row = domain.FoodLogRow{Date: date, Status: domain.FlagIncomplete, Healthy: domain.FlagIncomplete}
	}
	row.DayOfWeek = dow
	row.Nutrients = totalsOf(events)

	activity := activityFor(ds, s.dates, date)
	if IsAutoNote(row.Notes) {
		row.Notes = s.autoNote(events, row.Nutrients, activity)
	}
	s.classify(ctx, ds, &row, events, activity)

	if idx >= 0 {
		ds.FoodLog[idx] = row
	} else {
		ds.FoodLog = append(ds.FoodLog, row)
		sort.SliceStable(ds.FoodLog, func(i, j int) bool { return ds.FoodLog[i].Date < ds.FoodLog[j].Date })
	}
	for i := range ds.FoodEvents {
		if ds.FoodEvents[i].Date == date {
			ds.FoodEvents[i].AppliedToFoodLog = true
		}
	}
	return nil
}

func (s *synthesizer) classify(ctx context.Context, ds *domain.Dataset, row *domain.FoodLogRow, events []domain.FoodEvent, activity classifier.ActivitySummary) {
	req := classifier.Request{Row: *row, Events: events, Activity: activity}
	if prevDate, err := s.dates.AddDays(row.Date, -1); err == nil {
		if i := ds.FindFoodLog(prevDate); i >= 0 {
			prev := ds.FoodLog[i]
			req.Previous = &prev
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.classifier.Classify(cctx, req)
	if errors.Is(err, classifier.ErrDisabled) {
		return
	}
	if err == nil && (!res.Status.Valid() || !res.Healthy.Valid()) {
		err = fmt.Errorf("unknown flags %q/%q", res.Status, res.Healthy)
	}
	if err != nil {
		metrics.RecordClassifierFailure()
		s.log.WithFields(logrus.Fields{"date": row.Date}).WithError(err).Warn("day classifier failed, keeping previous flags")
		return
	}
	row.Status = res.Status
	row.Healthy = res.Healthy
}

// autoNote summarizes the day: the most frequent meals, how the totals sit
// against the configured targets and the week's workout progress.
func (s *synthesizer) autoNote(events []domain.FoodEvent, totals domain.Nutrients, activity classifier.ActivitySummary) string {
	var b strings.Builder
	b.WriteString(AutoNotePrefix)

	if len(events) == 0 {
		b.WriteString("No meals logged.")
	} else {
		b.WriteString("Meals: ")
		b.WriteString(strings.Join(frequentMeals(events, topMeals), ", "))
		if extra := len(distinctMeals(events)) - topMeals; extra > 0 {
			fmt.Fprintf(&b, " and %d more", extra)
		}
		b.WriteString(".")
	}

	if fit := s.goalFit(totals); fit != "" {
		b.WriteString(" Goal fit: ")
		b.WriteString(fit)
		b.WriteString(".")
	}

	if activity.TotalItems > 0 {
		fmt.Fprintf(&b, " Workouts this week: %d of %d done", activity.CheckedItems, activity.TotalItems)
		if len(activity.ActiveCategories) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(activity.ActiveCategories, ", "))
		}
		b.WriteString(".")
	}
	return b.String()
}

func (s *synthesizer) goalFit(totals domain.Nutrients) string {
	t := nutrition.Round(totals)
	var parts []string
	if s.diet.CalorieTarget > 0 {
		parts = append(parts, fmt.Sprintf("%g of %g kcal (%s)", t.Calories, s.diet.CalorieTarget, versus(t.Calories, s.diet.CalorieTarget)))
	}
	if s.diet.ProteinTargetG > 0 {
		parts = append(parts, fmt.Sprintf("protein %g of %g g (%s)", t.ProteinG, s.diet.ProteinTargetG, versus(t.ProteinG, s.diet.ProteinTargetG)))
	}
	if s.diet.FiberTargetG > 0 {
		if t.FiberG == nil {
			parts = append(parts, "fiber unknown")
		} else {
			parts = append(parts, fmt.Sprintf("fiber %g of %g g (%s)", *t.FiberG, s.diet.FiberTargetG, versus(*t.FiberG, s.diet.FiberTargetG)))
		}
	}
	return strings.Join(parts, ", ")
}

// versus classifies actual against target with a 10% tolerance band.
func versus(actual, target float64) string {
	switch {
	case actual < target*0.9:
		return "under"
	case actual > target*1.1:
		return "over"
	default:
		return "on target"
	}
}

// frequentMeals returns up to n descriptions ordered by count, ties broken by first appearance.
func frequentMeals(events []domain.FoodEvent, n int) []string {
	names := distinctMeals(events)
	counts := make(map[string]int, len(names))
	for _, ev := range events {
		counts[ev.Description]++
	}
	sort.SliceStable(names, func(i, j int) bool { return counts[names[i]] > counts[names[j]] })
	if len(names) > n {
		names = names[:n]
	}
	out := make([]string, len(names))
	for i, name := range names {
		if c := counts[name]; c > 1 {
			out[i] = fmt.Sprintf("%s x%d", name, c)
		} else {
			out[i] = name
		}
	}
	return out
}

func distinctMeals(events []domain.FoodEvent) []string {
	seen := map[string]bool{}
	var names []string
	for _, ev := range events {
		if !seen[ev.Description] {
			seen[ev.Description] = true
			names = append(names, ev.Description)
		}
	}
	return names
}

// activityFor summarizes the checklist of the week that contains date.
func activityFor(ds *domain.Dataset, dates *datetime.Normalizer, date string) classifier.ActivitySummary {
	ws, err := dates.WeekStartMonday(date)
	if err != nil {
		return classifier.ActivitySummary{}
	}
	summary := classifier.ActivitySummary{WeekStart: ws, ActiveCategories: []string{}}

	var week *domain.WeeklyChecklist
	if ds.CurrentWeek != nil && ds.CurrentWeek.WeekStart == ws {
		week = ds.CurrentWeek
	} else if i := ds.ArchivedWeek(ws); i >= 0 {
		week = &ds.FitnessWeeks[i]
	}
	if week == nil {
		return summary
	}
	week.Normalize()
	for _, key := range week.CategoryOrder {
		active := false
		for _, it := range week.Categories[key] {
			summary.TotalItems++
			if it.Checked {
				summary.CheckedItems++
				active = true
			}
		}
		if active {
			summary.ActiveCategories = append(summary.ActiveCategories, week.Label(key))
		}
	}
	return summary
}
