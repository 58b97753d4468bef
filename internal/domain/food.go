package domain

import (
	"encoding/json"
	"time"
)

// Source tells how a meal was logged.
type Source string

const (
	SourceManual Source = "manual"
	SourcePhoto  Source = "photo"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceManual || s == SourcePhoto
}

// LogAction reports what an event mutation did.
type LogAction string

const (
	LogActionCreated  LogAction = "created"
	LogActionExisting LogAction = "existing"
	LogActionUpdated  LogAction = "updated"
)

// DayFlag is one of the four quality symbols assigned to a day.
type DayFlag string

const (
	FlagOnTrack    DayFlag = "on_track"
	FlagMixed      DayFlag = "mixed"
	FlagOffTrack   DayFlag = "off_track"
	FlagIncomplete DayFlag = "incomplete"
)

// Valid reports whether f is one of the four known flags.
func (f DayFlag) Valid() bool {
	switch f {
	case FlagOnTrack, FlagMixed, FlagOffTrack, FlagIncomplete:
		return true
	}
	return false
}

// FoodEvent is one logged meal. Events are corrected by update, never deleted.
type FoodEvent struct {
	ID               string          `bson:"id" json:"id"`
	Date             string          `bson:"date" json:"date"` // logical day, YYYY-MM-DD
	LoggedAt         time.Time       `bson:"logged_at" json:"logged_at"`
	RolloverApplied  bool            `bson:"rollover_applied" json:"rollover_applied"`
	Source           Source          `bson:"source" json:"source"`
	Description      string          `bson:"description" json:"description"`
	InputText        *string         `bson:"input_text" json:"input_text"`
	Notes            string          `bson:"notes" json:"notes"`
	Nutrients        Nutrients       `bson:"nutrients" json:"nutrients"`
	Model            string          `bson:"model" json:"model"`
	Confidence       float64         `bson:"confidence" json:"confidence"`
	Items            json.RawMessage `bson:"items,omitempty" json:"items,omitempty"` // passed through untouched
	IdempotencyKey   *string         `bson:"idempotency_key" json:"idempotency_key"`
	AppliedToFoodLog bool            `bson:"applied_to_food_log" json:"applied_to_food_log"`
}

// FoodLogRow is the synthesized summary of one logical date.
type FoodLogRow struct {
	Date      string   `bson:"date" json:"date"`
	DayOfWeek string   `bson:"day_of_week" json:"day_of_week"`
	WeightLb  *float64 `bson:"weight_lb" json:"weight_lb"` // user-owned, never computed
	Nutrients `bson:",inline"`
	Status    DayFlag `bson:"status" json:"status"`
	Healthy   DayFlag `bson:"healthy" json:"healthy"`
	Notes     string  `bson:"notes" json:"notes"`
}
