package datetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNY(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer("America/New_York", DefaultRolloverHour, DefaultRolloverShift)
	require.NoError(t, err)
	return n
}

func TestLogicalDateUsesFixedZone(t *testing.T) {
	n := newNY(t)
	// 03:30 UTC on Feb 11 is 22:30 on Feb 10 in New York.
	instant := time.Date(2026, 2, 11, 3, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-10", n.LogicalDate(instant))
}

func TestSuggestedLogDate(t *testing.T) {
	n := newNY(t)
	tests := []struct {
		name  string
		local time.Time
		want  string
	}{
		{"afternoon", time.Date(2026, 2, 10, 14, 0, 0, 0, n.Location), "2026-02-10"},
		{"just after midnight", time.Date(2026, 2, 11, 0, 30, 0, 0, n.Location), "2026-02-10"},
		{"before cutoff", time.Date(2026, 2, 11, 4, 59, 0, 0, n.Location), "2026-02-10"},
		{"at cutoff", time.Date(2026, 2, 11, 5, 0, 0, 0, n.Location), "2026-02-11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.SuggestedLogDate(tt.local.UTC()))
		})
	}
}

func TestWeekStartMonday(t *testing.T) {
	n := newNY(t)
	tests := map[string]string{
		"2026-02-09": "2026-02-09", // Monday
		"2026-02-10": "2026-02-09",
		"2026-02-15": "2026-02-09", // Sunday
		"2026-02-16": "2026-02-16",
		"2026-01-01": "2025-12-29",
	}
	for in, want := range tests {
		got, err := n.WeekStartMonday(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestCurrentWeekStartHonorsRollover(t *testing.T) {
	n := newNY(t)
	// Monday 02:00 local still belongs to Sunday, so to the previous week.
	now := time.Date(2026, 2, 16, 2, 0, 0, 0, n.Location)
	assert.Equal(t, "2026-02-09", n.CurrentWeekStart(now))
	assert.Equal(t, "2026-02-16", n.CurrentWeekStart(now.Add(4*time.Hour)))
}

func TestParseRejectsMalformedDates(t *testing.T) {
	n := newNY(t)
	for _, bad := range []string{"", "2026-2-10", "2026/02/10", "2026-02-30", "20260210", "2026-02-10T00:00:00Z"} {
		_, err := n.Parse(bad)
		assert.Error(t, err, bad)
		assert.False(t, ValidDate(bad), bad)
	}
	assert.True(t, ValidDate("2026-02-10"))
}

func TestNewNormalizerValidates(t *testing.T) {
	_, err := NewNormalizer("Mars/Olympus", 5, time.Hour)
	assert.Error(t, err)
	_, err = NewNormalizer("UTC", 24, time.Hour)
	assert.Error(t, err)
}

func TestDayOfWeekAndLabel(t *testing.T) {
	n := newNY(t)
	dow, err := n.DayOfWeek("2026-02-10")
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", dow)
	assert.Equal(t, "Week of Feb 9, 2026", n.WeekLabel("2026-02-09"))
	prev, err := n.AddDays("2026-03-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", prev)
}
