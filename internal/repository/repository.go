package repository

import (
	"context"
	"strings"

	"alcyxob/health-tracker/internal/domain"
)

// ErrInvalidTenant is returned by every adapter for a blank tenant id.
var ErrInvalidTenant = RepositoryError("tenant id is required")

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// DefaultTenant is the implicit tenant used by single-user deployments.
const DefaultTenant = "default"

// DatasetRepository reads and writes the complete dataset of one tenant.
//
// Implementations must give read-after-write consistency to a single caller and
// must never apply a Write partially. Reading a tenant that has never been
// written returns an empty dataset, not ErrNotFound. Concurrent writers are not
// coordinated: the last Write wins.
type DatasetRepository interface {
	Read(ctx context.Context, tenantID string) (*domain.Dataset, error)
	Write(ctx context.Context, tenantID string, ds *domain.Dataset) error
}

// CheckTenant validates a caller-supplied tenant id.
func CheckTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrInvalidTenant
	}
	return nil
}
