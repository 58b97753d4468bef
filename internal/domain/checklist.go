package domain

import "sort"

// ChecklistItem is one entry of a weekly checklist category.
type ChecklistItem struct {
	Item    string `bson:"item" json:"item"`
	Checked bool   `bson:"checked" json:"checked"`
	Details string `bson:"details" json:"details"`
}

// WeeklyChecklist is the workout checklist for one ISO week starting on WeekStart (a Monday).
type WeeklyChecklist struct {
	WeekStart      string                     `bson:"week_start" json:"week_start"`
	WeekLabel      string                     `bson:"week_label" json:"week_label"`
	Summary        string                     `bson:"summary" json:"summary"`
	CategoryOrder  []string                   `bson:"category_order" json:"category_order"`
	CategoryLabels map[string]string          `bson:"category_labels" json:"category_labels"`
	Categories     map[string][]ChecklistItem `bson:"categories" json:"categories"`
}

// ChecklistTemplate is a saved checklist shape without any check state.
type ChecklistTemplate struct {
	CategoryOrder  []string            `bson:"category_order" json:"category_order"`
	CategoryLabels map[string]string   `bson:"category_labels" json:"category_labels"`
	Categories     map[string][]string `bson:"categories" json:"categories"`
}

// Normalize makes CategoryOrder list exactly the keys present in Categories:
// orphan keys are dropped and missing keys are appended in sorted order.
func (w *WeeklyChecklist) Normalize() {
	if w.Categories == nil {
		w.Categories = map[string][]ChecklistItem{}
	}
	if w.CategoryLabels == nil {
		w.CategoryLabels = map[string]string{}
	}
	seen := make(map[string]bool, len(w.Categories))
	order := make([]string, 0, len(w.Categories))
	for _, key := range w.CategoryOrder {
		if _, ok := w.Categories[key]; !ok || seen[key] {
			continue
		}
		seen[key] = true
		order = append(order, key)
	}
	var missing []string
	for key := range w.Categories {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	w.CategoryOrder = append(order, missing...)
	for key, items := range w.Categories {
		if items == nil {
			w.Categories[key] = []ChecklistItem{}
		}
	}
}

// Label returns the human label of a category, falling back to its key.
func (w *WeeklyChecklist) Label(key string) string {
	if label, ok := w.CategoryLabels[key]; ok && label != "" {
		return label
	}
	return key
}

// CheckedCount returns how many items are checked across all categories.
func (w *WeeklyChecklist) CheckedCount() int {
	n := 0
	for _, items := range w.Categories {
		for _, it := range items {
			if it.Checked {
				n++
			}
		}
	}
	return n
}

// Shape extracts the template of a week: its categories, labels and item names.
func (w *WeeklyChecklist) Shape() ChecklistTemplate {
	t := ChecklistTemplate{
		CategoryOrder:  append([]string(nil), w.CategoryOrder...),
		CategoryLabels: make(map[string]string, len(w.CategoryLabels)),
		Categories:     make(map[string][]string, len(w.Categories)),
	}
	for k, v := range w.CategoryLabels {
		t.CategoryLabels[k] = v
	}
	for key, items := range w.Categories {
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, it.Item)
		}
		t.Categories[key] = names
	}
	return t
}

// Empty reports whether the template defines no categories.
func (t ChecklistTemplate) Empty() bool {
	return len(t.Categories) == 0
}
