package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/metrics"
)

// templatePath is where the saved checklist template lives inside the rules blob.
const templatePath = "metadata.checklist_template"

// Template sources reported by GetChecklistTemplate.
const (
	TemplateStored      = "stored"
	TemplateCurrentWeek = "current_week"
	TemplateNone        = "none"
)

// ChecklistService manages the weekly workout checklist and its archive.
// Every entry point first rolls the current week over when the calendar week changed.
type ChecklistService interface {
	EnsureCurrentWeek(ctx context.Context, tenantID string) (*domain.WeeklyChecklist, error)
	UpdateChecklistItem(ctx context.Context, tenantID, category string, index int, checked bool, details *string) (*domain.WeeklyChecklist, error)
	UpdateChecklistSummary(ctx context.Context, tenantID, summary string) (*domain.WeeklyChecklist, error)
	ListArchivedWeeks(ctx context.Context, tenantID string, limit int) ([]domain.WeeklyChecklist, error)
	GetChecklistTemplate(ctx context.Context, tenantID string) (*TemplateResult, error)
	SetChecklistTemplate(ctx context.Context, tenantID string, tpl domain.ChecklistTemplate, applyToCurrent bool) (*domain.ChecklistTemplate, error)
	ApplyTemplateToCurrentWeek(ctx context.Context, tenantID string) (*domain.WeeklyChecklist, error)
}

// TemplateResult is the effective template and where it came from.
type TemplateResult struct {
	Template domain.ChecklistTemplate `json:"template"`
	Source   string                   `json:"source"`
}

// checklistService implements the ChecklistService interface.
type checklistService struct {
	Core
}

// NewChecklistService creates a new instance of checklistService.
func NewChecklistService(core Core) ChecklistService {
	return &checklistService{Core: core}
}

// EnsureCurrentWeek returns the current week, rolling over first if needed.
func (s *checklistService) EnsureCurrentWeek(ctx context.Context, tenantID string) (*domain.WeeklyChecklist, error) {
	return s.mutateWeek(ctx, tenantID, func(*domain.Dataset, *domain.WeeklyChecklist) (bool, error) {
		return false, nil
	})
}

// UpdateChecklistItem sets the check state of one item. category may be the
// category key or its label; an exact key match wins over a case- and
// whitespace-insensitive match. index is zero based. A nil details keeps the current text.
func (s *checklistService) UpdateChecklistItem(ctx context.Context, tenantID, category string, index int, checked bool, details *string) (*domain.WeeklyChecklist, error) {
	if strings.TrimSpace(category) == "" {
		return nil, invalid("category", "is required")
	}
	return s.mutateWeek(ctx, tenantID, func(_ *domain.Dataset, week *domain.WeeklyChecklist) (bool, error) {
		key, ok := resolveCategory(week, category)
		if !ok {
			return false, ErrInvalidCategory
		}
		items := week.Categories[key]
		if index < 0 || index >= len(items) {
			return false, ErrItemNotFound
		}
		items[index].Checked = checked
		if details != nil {
			items[index].Details = *details
		}
		return true, nil
	})
}

// UpdateChecklistSummary replaces the free-text summary of the current week.
func (s *checklistService) UpdateChecklistSummary(ctx context.Context, tenantID, summary string) (*domain.WeeklyChecklist, error) {
	return s.mutateWeek(ctx, tenantID, func(_ *domain.Dataset, week *domain.WeeklyChecklist) (bool, error) {
		week.Summary = summary
		return true, nil
	})
}

// ListArchivedWeeks returns archived weeks newest first. limit <= 0 returns all.
func (s *checklistService) ListArchivedWeeks(ctx context.Context, tenantID string, limit int) ([]domain.WeeklyChecklist, error) {
	var weeks []domain.WeeklyChecklist
	_, err := s.mutateWeek(ctx, tenantID, func(ds *domain.Dataset, _ *domain.WeeklyChecklist) (bool, error) {
		weeks = append(make([]domain.WeeklyChecklist, 0, len(ds.FitnessWeeks)), ds.FitnessWeeks...)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(weeks, func(i, j int) bool { return weeks[i].WeekStart > weeks[j].WeekStart })
	if limit > 0 && len(weeks) > limit {
		weeks = weeks[:limit]
	}
	return weeks, nil
}

// GetChecklistTemplate returns the saved template, or the current week's shape when none is saved.
func (s *checklistService) GetChecklistTemplate(ctx context.Context, tenantID string) (*TemplateResult, error) {
	var res *TemplateResult
	_, err := s.mutateWeek(ctx, tenantID, func(ds *domain.Dataset, week *domain.WeeklyChecklist) (bool, error) {
		if tpl, ok := storedTemplate(ds.Rules); ok {
			res = &TemplateResult{Template: tpl, Source: TemplateStored}
		} else if len(week.Categories) > 0 {
			res = &TemplateResult{Template: week.Shape(), Source: TemplateCurrentWeek}
		} else {
			res = &TemplateResult{Template: emptyTemplate(), Source: TemplateNone}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SetChecklistTemplate saves tpl into the rules blob. Future rollovers use it;
// with applyToCurrent the current week is reshaped right away.
func (s *checklistService) SetChecklistTemplate(ctx context.Context, tenantID string, tpl domain.ChecklistTemplate, applyToCurrent bool) (*domain.ChecklistTemplate, error) {
	clean, err := normalizeTemplate(tpl)
	if err != nil {
		return nil, err
	}
	if clean.Empty() {
		return nil, invalid("categories", "at least one category is required")
	}
	_, err = s.mutateWeek(ctx, tenantID, func(ds *domain.Dataset, week *domain.WeeklyChecklist) (bool, error) {
		rules, err := withTemplate(ds.Rules, clean)
		if err != nil {
			return false, err
		}
		ds.Rules = rules
		if applyToCurrent {
			reshape(week, clean)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().WithFields(logrus.Fields{"tenant": tenantID, "categories": len(clean.CategoryOrder), "applied": applyToCurrent}).Info("checklist template saved")
	return &clean, nil
}

// ApplyTemplateToCurrentWeek reshapes the current week to the saved template,
// keeping the state of items that survive the change.
func (s *checklistService) ApplyTemplateToCurrentWeek(ctx context.Context, tenantID string) (*domain.WeeklyChecklist, error) {
	return s.mutateWeek(ctx, tenantID, func(ds *domain.Dataset, week *domain.WeeklyChecklist) (bool, error) {
		tpl, ok := storedTemplate(ds.Rules)
		if !ok {
			return false, invalid("template", "no checklist template saved")
		}
		reshape(week, tpl)
		return true, nil
	})
}

// mutateWeek loads the dataset, rolls the week over, runs fn on the current
// week and saves when either step changed something.
func (s *checklistService) mutateWeek(ctx context.Context, tenantID string, fn func(ds *domain.Dataset, week *domain.WeeklyChecklist) (bool, error)) (*domain.WeeklyChecklist, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rolled := s.ensureWeek(tenantID, ds)
	changed, err := fn(ds, ds.CurrentWeek)
	if err != nil {
		return nil, err
	}
	if rolled || changed {
		ds.CurrentWeek.Normalize()
		if err := s.save(ctx, tenantID, ds); err != nil {
			return nil, err
		}
	}
	week := *ds.CurrentWeek
	return &week, nil
}

// ensureWeek moves the current week into the archive when the calendar week
// has advanced and starts a fresh one. It reports whether ds changed.
func (s *checklistService) ensureWeek(tenantID string, ds *domain.Dataset) bool {
	ws := s.Dates.CurrentWeekStart(s.now())
	cur := ds.CurrentWeek
	if cur != nil {
		cur.Normalize()
	}
	if cur != nil && cur.WeekStart >= ws {
		return false
	}

	tpl, ok := storedTemplate(ds.Rules)
	if !ok {
		if cur != nil {
			tpl = cur.Shape()
		} else {
			tpl = emptyTemplate()
		}
	}
	if cur != nil {
		if ds.ArchivedWeek(cur.WeekStart) < 0 {
			ds.FitnessWeeks = append(ds.FitnessWeeks, *cur)
			sort.SliceStable(ds.FitnessWeeks, func(i, j int) bool {
				return ds.FitnessWeeks[i].WeekStart < ds.FitnessWeeks[j].WeekStart
			})
		}
		metrics.RecordRollover()
		s.logger().WithFields(logrus.Fields{"tenant": tenantID, "archived": cur.WeekStart, "current": ws}).Info("checklist week rolled over")
	}

	week := &domain.WeeklyChecklist{WeekStart: ws, WeekLabel: s.Dates.WeekLabel(ws)}
	reshape(week, tpl)
	ds.CurrentWeek = week
	return true
}

// resolveCategory finds a category by exact key first, then by key or label
// ignoring case and whitespace.
func resolveCategory(week *domain.WeeklyChecklist, name string) (string, bool) {
	if _, ok := week.Categories[name]; ok {
		return name, true
	}
	want := foldName(name)
	for _, key := range week.CategoryOrder {
		if foldName(key) == want || foldName(week.Label(key)) == want {
			return key, true
		}
	}
	return "", false
}

func foldName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// reshape makes week follow tpl. Items that keep their name inside the same
// category keep their check state and details.
func reshape(week *domain.WeeklyChecklist, tpl domain.ChecklistTemplate) {
	old := week.Categories
	week.CategoryOrder = append([]string(nil), tpl.CategoryOrder...)
	week.CategoryLabels = make(map[string]string, len(tpl.CategoryLabels))
	for k, v := range tpl.CategoryLabels {
		week.CategoryLabels[k] = v
	}
	week.Categories = make(map[string][]domain.ChecklistItem, len(tpl.Categories))
	for key, names := range tpl.Categories {
		prev := map[string]domain.ChecklistItem{}
		for _, it := range old[key] {
			if _, dup := prev[it.Item]; !dup {
				prev[it.Item] = it
			}
		}
		items := make([]domain.ChecklistItem, 0, len(names))
		for _, name := range names {
			if it, ok := prev[name]; ok {
				items = append(items, it)
				continue
			}
			items = append(items, domain.ChecklistItem{Item: name})
		}
		week.Categories[key] = items
	}
	week.Normalize()
}

func emptyTemplate() domain.ChecklistTemplate {
	return domain.ChecklistTemplate{
		CategoryOrder:  []string{},
		CategoryLabels: map[string]string{},
		Categories:     map[string][]string{},
	}
}

// normalizeTemplate trims names, rejects blanks and reconciles the category order.
func normalizeTemplate(tpl domain.ChecklistTemplate) (domain.ChecklistTemplate, error) {
	out := emptyTemplate()
	for rawKey, names := range tpl.Categories {
		key := strings.TrimSpace(rawKey)
		if key == "" {
			return out, invalid("categories", "category key must not be blank")
		}
		if _, dup := out.Categories[key]; dup {
			return out, invalid("categories", "duplicate category %q", key)
		}
		items := make([]string, 0, len(names))
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				return out, invalid("categories."+key, "item name must not be blank")
			}
			items = append(items, name)
		}
		out.Categories[key] = items
		if label := strings.TrimSpace(tpl.CategoryLabels[rawKey]); label != "" {
			out.CategoryLabels[key] = label
		}
	}
	week := domain.WeeklyChecklist{CategoryOrder: trimAll(tpl.CategoryOrder), Categories: map[string][]domain.ChecklistItem{}}
	for key := range out.Categories {
		week.Categories[key] = nil
	}
	week.Normalize()
	out.CategoryOrder = week.CategoryOrder
	return out, nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// storedTemplate reads the template saved in the rules blob, if any.
func storedTemplate(rules json.RawMessage) (domain.ChecklistTemplate, bool) {
	if len(rules) == 0 {
		return domain.ChecklistTemplate{}, false
	}
	raw := gjson.GetBytes(rules, templatePath)
	if !raw.Exists() || !raw.IsObject() {
		return domain.ChecklistTemplate{}, false
	}
	var tpl domain.ChecklistTemplate
	if err := json.Unmarshal([]byte(raw.Raw), &tpl); err != nil {
		return domain.ChecklistTemplate{}, false
	}
	tpl, err := normalizeTemplate(tpl)
	if err != nil || tpl.Empty() {
		return domain.ChecklistTemplate{}, false
	}
	return tpl, true
}

// withTemplate returns rules with the template written under metadata,
// leaving every other key of the blob as it was.
func withTemplate(rules json.RawMessage, tpl domain.ChecklistTemplate) (json.RawMessage, error) {
	doc := map[string]json.RawMessage{}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &doc); err != nil {
			return nil, invalid("rules", "stored rules are not a JSON object")
		}
	}
	meta := map[string]json.RawMessage{}
	if raw, ok := doc["metadata"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, invalid("rules", "rules.metadata is not a JSON object")
		}
	}
	encoded, err := json.Marshal(tpl)
	if err != nil {
		return nil, err
	}
	meta["checklist_template"] = encoded
	if doc["metadata"], err = json.Marshal(meta); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
