package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/repository"
	"alcyxob/health-tracker/internal/repository/repotest"
)

func TestContract(t *testing.T) {
	repotest.RunContract(t, func(t *testing.T) repository.DatasetRepository {
		repo, err := NewRepository(t.TempDir(), false)
		require.NoError(t, err)
		return repo
	})
}

func TestWriteCreatesPartitionsWithoutTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(dir, false)
	require.NoError(t, err)
	require.NoError(t, repo.Write(context.Background(), "alice", repotest.SampleDataset()))

	entries, err := os.ReadDir(filepath.Join(dir, "alice"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
	assert.ElementsMatch(t, []string{EventsFile, FoodLogFile, FitnessFile, ProfileFile, RulesFile}, names)
}

func TestFailedStageLeavesTargetsIntact(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(dir, false)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repo.Write(ctx, "alice", repotest.SampleDataset()))

	before, err := os.ReadFile(filepath.Join(dir, "alice", EventsFile))
	require.NoError(t, err)

	bad := repotest.SampleDataset()
	bad.FoodEvents = bad.FoodEvents[:1]
	bad.Rules = []byte(`{not json`) // fails to encode while staging
	err = repo.Write(ctx, "alice", bad)
	require.Error(t, err)

	after, err := os.ReadFile(filepath.Join(dir, "alice", EventsFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := repo.Read(ctx, "alice")
	require.NoError(t, err)
	repotest.AssertDatasetsEqual(t, repotest.SampleDataset(), got)
}

func TestSingleUserModeIgnoresTenant(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(dir, true)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repo.Write(ctx, "", repotest.SampleDataset()))

	_, err = os.Stat(filepath.Join(dir, EventsFile))
	require.NoError(t, err)

	got, err := repo.Read(ctx, "anyone")
	require.NoError(t, err)
	assert.Len(t, got.FoodEvents, 2)
}

func TestTenantDirEscapesUnsafeIDs(t *testing.T) {
	repo, err := NewRepository(t.TempDir(), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(repo.dir, "user_42"), repo.TenantDir("user_42"))

	escaped := repo.TenantDir("../etc")
	assert.Equal(t, repo.dir, filepath.Dir(escaped))
	assert.True(t, strings.HasPrefix(filepath.Base(escaped), "x-"))
}

func TestCorruptPartitionIsAnError(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(dir, true)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FoodLogFile), []byte("[{"), 0o644))

	_, err = repo.Read(context.Background(), repository.DefaultTenant)
	assert.Error(t, err)
}
