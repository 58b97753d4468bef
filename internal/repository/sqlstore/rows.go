package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"alcyxob/health-tracker/internal/domain"
)

type nutrientCols struct {
	Calories    float64  `db:"calories"`
	FatG        float64  `db:"fat_g"`
	CarbsG      float64  `db:"carbs_g"`
	ProteinG    float64  `db:"protein_g"`
	FiberG      *float64 `db:"fiber_g"`
	PotassiumMg *float64 `db:"potassium_mg"`
	MagnesiumMg *float64 `db:"magnesium_mg"`
	Omega3Mg    *float64 `db:"omega3_mg"`
	CalciumMg   *float64 `db:"calcium_mg"`
	IronMg      *float64 `db:"iron_mg"`
}

func toNutrientCols(n domain.Nutrients) nutrientCols {
	return nutrientCols{
		Calories: n.Calories, FatG: n.FatG, CarbsG: n.CarbsG, ProteinG: n.ProteinG,
		FiberG: n.FiberG, PotassiumMg: n.PotassiumMg, MagnesiumMg: n.MagnesiumMg,
		Omega3Mg: n.Omega3Mg, CalciumMg: n.CalciumMg, IronMg: n.IronMg,
	}
}

func (c nutrientCols) domain() domain.Nutrients {
	return domain.Nutrients{
		Calories: c.Calories, FatG: c.FatG, CarbsG: c.CarbsG, ProteinG: c.ProteinG,
		FiberG: c.FiberG, PotassiumMg: c.PotassiumMg, MagnesiumMg: c.MagnesiumMg,
		Omega3Mg: c.Omega3Mg, CalciumMg: c.CalciumMg, IronMg: c.IronMg,
	}
}

type eventRow struct {
	TenantID         string  `db:"tenant_id"`
	Seq              int     `db:"seq"`
	ID               string  `db:"id"`
	Date             string  `db:"date"`
	LoggedAt         string  `db:"logged_at"`
	RolloverApplied  bool    `db:"rollover_applied"`
	Source           string  `db:"source"`
	Description      string  `db:"description"`
	InputText        *string `db:"input_text"`
	Notes            string  `db:"notes"`
	nutrientCols
	Model            string  `db:"model"`
	Confidence       float64 `db:"confidence"`
	Items            *string `db:"items"`
	IdempotencyKey   *string `db:"idempotency_key"`
	AppliedToFoodLog bool    `db:"applied_to_food_log"`
}

func toEventRow(tenantID string, seq int, ev domain.FoodEvent) eventRow {
	row := eventRow{
		TenantID:         tenantID,
		Seq:              seq,
		ID:               ev.ID,
		Date:             ev.Date,
		LoggedAt:         ev.LoggedAt.Format(time.RFC3339Nano),
		RolloverApplied:  ev.RolloverApplied,
		Source:           string(ev.Source),
		Description:      ev.Description,
		InputText:        ev.InputText,
		Notes:            ev.Notes,
		nutrientCols:     toNutrientCols(ev.Nutrients),
		Model:            ev.Model,
		Confidence:       ev.Confidence,
		IdempotencyKey:   ev.IdempotencyKey,
		AppliedToFoodLog: ev.AppliedToFoodLog,
	}
	if len(ev.Items) > 0 {
		items := string(ev.Items)
		row.Items = &items
	}
	return row
}

func (r eventRow) domain() (domain.FoodEvent, error) {
	loggedAt, err := time.Parse(time.RFC3339Nano, r.LoggedAt)
	if err != nil {
		return domain.FoodEvent{}, fmt.Errorf("event %s: parse logged_at: %w", r.ID, err)
	}
	ev := domain.FoodEvent{
		ID:               r.ID,
		Date:             r.Date,
		LoggedAt:         loggedAt,
		RolloverApplied:  r.RolloverApplied,
		Source:           domain.Source(r.Source),
		Description:      r.Description,
		InputText:        r.InputText,
		Notes:            r.Notes,
		Nutrients:        r.nutrientCols.domain(),
		Model:            r.Model,
		Confidence:       r.Confidence,
		IdempotencyKey:   r.IdempotencyKey,
		AppliedToFoodLog: r.AppliedToFoodLog,
	}
	if r.Items != nil {
		ev.Items = json.RawMessage(*r.Items)
	}
	return ev, nil
}

type foodLogRow struct {
	TenantID  string   `db:"tenant_id"`
	Seq       int      `db:"seq"`
	Date      string   `db:"date"`
	DayOfWeek string   `db:"day_of_week"`
	WeightLb  *float64 `db:"weight_lb"`
	nutrientCols
	Status  string `db:"status"`
	Healthy string `db:"healthy"`
	Notes   string `db:"notes"`
}

func toFoodLogRow(tenantID string, seq int, row domain.FoodLogRow) foodLogRow {
	return foodLogRow{
		TenantID:     tenantID,
		Seq:          seq,
		Date:         row.Date,
		DayOfWeek:    row.DayOfWeek,
		WeightLb:     row.WeightLb,
		nutrientCols: toNutrientCols(row.Nutrients),
		Status:       string(row.Status),
		Healthy:      string(row.Healthy),
		Notes:        row.Notes,
	}
}

func (r foodLogRow) domain() domain.FoodLogRow {
	return domain.FoodLogRow{
		Date:      r.Date,
		DayOfWeek: r.DayOfWeek,
		WeightLb:  r.WeightLb,
		Nutrients: r.nutrientCols.domain(),
		Status:    domain.DayFlag(r.Status),
		Healthy:   domain.DayFlag(r.Healthy),
		Notes:     r.Notes,
	}
}

// weekRow stores the nested checklist structure as JSON text columns.
type weekRow struct {
	TenantID       string `db:"tenant_id"`
	Seq            int    `db:"seq"`
	WeekStart      string `db:"week_start"`
	WeekLabel      string `db:"week_label"`
	Summary        string `db:"summary"`
	CategoryOrder  string `db:"category_order"`
	CategoryLabels string `db:"category_labels"`
	Categories     string `db:"categories"`
}

func toWeekRow(tenantID string, seq int, w domain.WeeklyChecklist) (weekRow, error) {
	w.Normalize()
	order, err := json.Marshal(w.CategoryOrder)
	if err != nil {
		return weekRow{}, err
	}
	labels, err := json.Marshal(w.CategoryLabels)
	if err != nil {
		return weekRow{}, err
	}
	cats, err := json.Marshal(w.Categories)
	if err != nil {
		return weekRow{}, err
	}
	return weekRow{
		TenantID:       tenantID,
		Seq:            seq,
		WeekStart:      w.WeekStart,
		WeekLabel:      w.WeekLabel,
		Summary:        w.Summary,
		CategoryOrder:  string(order),
		CategoryLabels: string(labels),
		Categories:     string(cats),
	}, nil
}

func (r weekRow) domain() (domain.WeeklyChecklist, error) {
	w := domain.WeeklyChecklist{
		WeekStart: r.WeekStart,
		WeekLabel: r.WeekLabel,
		Summary:   r.Summary,
	}
	if err := json.Unmarshal([]byte(r.CategoryOrder), &w.CategoryOrder); err != nil {
		return w, fmt.Errorf("week %s: decode category_order: %w", r.WeekStart, err)
	}
	if err := json.Unmarshal([]byte(r.CategoryLabels), &w.CategoryLabels); err != nil {
		return w, fmt.Errorf("week %s: decode category_labels: %w", r.WeekStart, err)
	}
	if err := json.Unmarshal([]byte(r.Categories), &w.Categories); err != nil {
		return w, fmt.Errorf("week %s: decode categories: %w", r.WeekStart, err)
	}
	w.Normalize()
	return w, nil
}

type profileRow struct {
	TenantID string  `db:"tenant_id"`
	Profile  *string `db:"profile"`
	Rules    *string `db:"rules"`
}

func blobText(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	s := string(raw)
	return &s
}

func textBlob(s *string) json.RawMessage {
	if s == nil {
		return nil
	}
	return json.RawMessage(*s)
}
