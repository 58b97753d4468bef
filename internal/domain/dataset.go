package domain

import "encoding/json"

// Dataset is the whole tracked state of one tenant. Storage adapters read and
// write it as a unit.
type Dataset struct {
	FoodEvents   []FoodEvent       `json:"food_events"`
	FoodLog      []FoodLogRow      `json:"food_log"`
	CurrentWeek  *WeeklyChecklist  `json:"current_week"`
	FitnessWeeks []WeeklyChecklist `json:"fitness_weeks"`
	Profile      json.RawMessage   `json:"profile"`
	Rules        json.RawMessage   `json:"rules"`
}

// NewDataset returns an empty dataset with non-nil collections.
func NewDataset() *Dataset {
	return &Dataset{
		FoodEvents:   []FoodEvent{},
		FoodLog:      []FoodLogRow{},
		FitnessWeeks: []WeeklyChecklist{},
	}
}

// EnsureCollections replaces nil slices with empty ones so the dataset
// serializes as arrays rather than nulls, and collapses JSON null blobs to nil.
func (d *Dataset) EnsureCollections() {
	d.Profile = nullToNil(d.Profile)
	d.Rules = nullToNil(d.Rules)
	for i := range d.FoodEvents {
		d.FoodEvents[i].Items = nullToNil(d.FoodEvents[i].Items)
	}
	if d.FoodEvents == nil {
		d.FoodEvents = []FoodEvent{}
	}
	if d.FoodLog == nil {
		d.FoodLog = []FoodLogRow{}
	}
	if d.FitnessWeeks == nil {
		d.FitnessWeeks = []WeeklyChecklist{}
	}
}

// EventsOn returns the events whose logical date is date.
func (d *Dataset) EventsOn(date string) []FoodEvent {
	var out []FoodEvent
	for _, ev := range d.FoodEvents {
		if ev.Date == date {
			out = append(out, ev)
		}
	}
	return out
}

// FindEvent returns the index of the event with the given id, or -1.
func (d *Dataset) FindEvent(id string) int {
	for i := range d.FoodEvents {
		if d.FoodEvents[i].ID == id {
			return i
		}
	}
	return -1
}

// FindFoodLog returns the index of the row for date, or -1.
func (d *Dataset) FindFoodLog(date string) int {
	for i := range d.FoodLog {
		if d.FoodLog[i].Date == date {
			return i
		}
	}
	return -1
}

// ArchivedWeek returns the index of the archived week starting on weekStart, or -1.
func (d *Dataset) ArchivedWeek(weekStart string) int {
	for i := range d.FitnessWeeks {
		if d.FitnessWeeks[i].WeekStart == weekStart {
			return i
		}
	}
	return -1
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
