package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/repository"
	"alcyxob/health-tracker/internal/repository/repotest"
)

func TestContract(t *testing.T) {
	repotest.RunContract(t, func(t *testing.T) repository.DatasetRepository {
		return NewRepository()
	})
}

func TestReadReturnsIndependentCopy(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	require.NoError(t, repo.Write(ctx, "t1", repotest.SampleDataset()))

	first, err := repo.Read(ctx, "t1")
	require.NoError(t, err)
	first.FoodEvents[0].Description = "mutated"

	second, err := repo.Read(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Eggs and toast", second.FoodEvents[0].Description)
}
