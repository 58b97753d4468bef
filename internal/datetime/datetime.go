// Package datetime maps wall-clock instants onto logical tracking dates in a
// single fixed timezone.
package datetime

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the ISO calendar date layout used for every logical date.
const DateLayout = "2006-01-02"

const (
	DefaultRolloverHour  = 5
	DefaultRolloverShift = 6 * time.Hour
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Normalizer converts instants to logical dates. All arithmetic happens in Location.
type Normalizer struct {
	Location      *time.Location
	RolloverHour  int           // civil hour before which "today" is still yesterday
	RolloverShift time.Duration // how far back to look when inside the rollover window
}

// NewNormalizer loads the named zone and returns a Normalizer with the given cutoff.
func NewNormalizer(zone string, rolloverHour int, rolloverShift time.Duration) (*Normalizer, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	if rolloverHour < 0 || rolloverHour > 23 {
		return nil, fmt.Errorf("rollover hour %d out of range", rolloverHour)
	}
	if rolloverShift <= 0 {
		rolloverShift = DefaultRolloverShift
	}
	return &Normalizer{Location: loc, RolloverHour: rolloverHour, RolloverShift: rolloverShift}, nil
}

// In returns t expressed in the normalizer's zone.
func (n *Normalizer) In(t time.Time) time.Time {
	return t.In(n.Location)
}

// LogicalDate returns the civil date of instant in the fixed zone.
func (n *Normalizer) LogicalDate(instant time.Time) string {
	return instant.In(n.Location).Format(DateLayout)
}

// SuggestedLogDate returns the date a meal logged at now should be attributed to.
// Inside the early-morning rollover window the previous logical day is used.
func (n *Normalizer) SuggestedLogDate(now time.Time) string {
	local := now.In(n.Location)
	if local.Hour() < n.RolloverHour {
		return n.LogicalDate(local.Add(-n.RolloverShift))
	}
	return n.LogicalDate(local)
}

// Parse validates a YYYY-MM-DD date and returns midnight of it in the fixed zone.
func (n *Normalizer) Parse(date string) (time.Time, error) {
	if !datePattern.MatchString(date) {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", date)
	}
	t, err := time.ParseInLocation(DateLayout, date, n.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not a calendar date: %w", date, err)
	}
	return t, nil
}

// WeekStartMonday returns the Monday on or before date.
func (n *Normalizer) WeekStartMonday(date string) (string, error) {
	t, err := n.Parse(date)
	if err != nil {
		return "", err
	}
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return t.AddDate(0, 0, -offset).Format(DateLayout), nil
}

// CurrentWeekStart is WeekStartMonday(SuggestedLogDate(now)).
func (n *Normalizer) CurrentWeekStart(now time.Time) string {
	ws, _ := n.WeekStartMonday(n.SuggestedLogDate(now))
	return ws
}

// DayOfWeek returns the English weekday name of date.
func (n *Normalizer) DayOfWeek(date string) (string, error) {
	t, err := n.Parse(date)
	if err != nil {
		return "", err
	}
	return t.Weekday().String(), nil
}

// AddDays shifts a date by days calendar days.
func (n *Normalizer) AddDays(date string, days int) (string, error) {
	t, err := n.Parse(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, days).Format(DateLayout), nil
}

// WeekLabel renders a human label for the week starting on weekStart.
func (n *Normalizer) WeekLabel(weekStart string) string {
	t, err := n.Parse(weekStart)
	if err != nil {
		return "Week of " + weekStart
	}
	return "Week of " + t.Format("Jan 2, 2006")
}

// ValidDate reports whether date is a well-formed calendar date.
func ValidDate(date string) bool {
	if !datePattern.MatchString(date) {
		return false
	}
	_, err := time.Parse(DateLayout, date)
	return err == nil
}
