// Package memory keeps datasets in process memory.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
)

// Repository implements repository.DatasetRepository with per-tenant JSON
// snapshots, so callers never share memory with the stored copy.
type Repository struct {
	mu       sync.RWMutex
	datasets map[string][]byte
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{datasets: make(map[string][]byte)}
}

func (r *Repository) Read(ctx context.Context, tenantID string) (*domain.Dataset, error) {
	if err := repository.CheckTenant(tenantID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	raw, ok := r.datasets[tenantID]
	r.mu.RUnlock()
	if !ok {
		return domain.NewDataset(), nil
	}
	ds := domain.NewDataset()
	if err := json.Unmarshal(raw, ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	ds.EnsureCollections()
	return ds, nil
}

func (r *Repository) Write(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	if err := repository.CheckTenant(tenantID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	r.mu.Lock()
	r.datasets[tenantID] = raw
	r.mu.Unlock()
	return nil
}
