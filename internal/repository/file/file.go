// Package file stores each tenant's dataset as a set of JSON files, one per
// data category, replaced atomically with write-to-temp then rename.
package file

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
)

// File names of the category partitions.
const (
	EventsFile  = "food_events.json"
	FoodLogFile = "food_log.json"
	FitnessFile = "fitness.json"
	ProfileFile = "profile.json"
	RulesFile   = "rules.json"
)

var safeTenant = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// fitnessDoc is the on-disk shape of the fitness partition.
type fitnessDoc struct {
	CurrentWeek  *domain.WeeklyChecklist  `json:"current_week"`
	FitnessWeeks []domain.WeeklyChecklist `json:"fitness_weeks"`
}

// Repository implements repository.DatasetRepository on the local filesystem.
type Repository struct {
	dir        string
	singleUser bool
	mu         sync.Mutex // keeps one process from interleaving renames of two writes
}

// NewRepository stores data under dir. In single-user mode every tenant id maps
// to dir itself; otherwise each tenant gets its own subdirectory.
func NewRepository(dir string, singleUser bool) (*Repository, error) {
	if dir == "" {
		return nil, errors.New("file repository requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Repository{dir: dir, singleUser: singleUser}, nil
}

// TenantDir returns the directory holding a tenant's partitions.
func (r *Repository) TenantDir(tenantID string) string {
	if r.singleUser {
		return r.dir
	}
	name := tenantID
	if !safeTenant.MatchString(name) {
		name = "x-" + hex.EncodeToString([]byte(tenantID))
	}
	return filepath.Join(r.dir, name)
}

func (r *Repository) Read(ctx context.Context, tenantID string) (*domain.Dataset, error) {
	if !r.singleUser {
		if err := repository.CheckTenant(tenantID); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := r.TenantDir(tenantID)
	ds := domain.NewDataset()

	if err := readJSON(filepath.Join(dir, EventsFile), &ds.FoodEvents); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, FoodLogFile), &ds.FoodLog); err != nil {
		return nil, err
	}
	var fitness fitnessDoc
	if err := readJSON(filepath.Join(dir, FitnessFile), &fitness); err != nil {
		return nil, err
	}
	ds.CurrentWeek = fitness.CurrentWeek
	ds.FitnessWeeks = fitness.FitnessWeeks
	if err := readJSON(filepath.Join(dir, ProfileFile), &ds.Profile); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, RulesFile), &ds.Rules); err != nil {
		return nil, err
	}
	ds.EnsureCollections()
	return ds, nil
}

// Write stages every partition into a temp file first and only then renames
// them over their targets. A failure while staging leaves all targets
// untouched. Each rename is atomic on its own; a crash between renames can
// leave a mix of old and new partitions, never a truncated file.
func (r *Repository) Write(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	if !r.singleUser {
		if err := repository.CheckTenant(tenantID); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ds.EnsureCollections()

	dir := r.TenantDir(tenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tenant dir: %w", err)
	}

	parts := []struct {
		name  string
		value any
	}{
		{EventsFile, ds.FoodEvents},
		{FoodLogFile, ds.FoodLog},
		{FitnessFile, fitnessDoc{CurrentWeek: ds.CurrentWeek, FitnessWeeks: ds.FitnessWeeks}},
		{ProfileFile, blob(ds.Profile)},
		{RulesFile, blob(ds.Rules)},
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make([]string, 0, len(parts))
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}
	for _, p := range parts {
		tmp, err := stage(dir, p.name, p.value)
		if err != nil {
			cleanup()
			return fmt.Errorf("stage %s: %w", p.name, err)
		}
		staged = append(staged, tmp)
	}
	for i, p := range parts {
		if err := os.Rename(staged[i], filepath.Join(dir, p.name)); err != nil {
			staged = staged[i:]
			cleanup()
			return fmt.Errorf("replace %s: %w", p.name, err)
		}
	}
	return nil
}

// stage writes value as JSON into a synced temp file next to the target.
func stage(dir, name string, value any) (string, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

func readJSON(path string, into any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func blob(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
