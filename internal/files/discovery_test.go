package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
)

func setupPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestDiscovery_FindDataFiles(t *testing.T) {
	paths := setupPaths(t)
	base := time.Now().Add(-time.Hour)

	touch(t, filepath.Join(paths.RawDir, "b.csv"), base.Add(2*time.Minute))
	touch(t, filepath.Join(paths.RawDir, "a.xlsx"), base)
	touch(t, filepath.Join(paths.RawDir, "notes.txt"), base)
	require.NoError(t, os.Mkdir(filepath.Join(paths.RawDir, "old.csv"), 0755))

	d := NewDiscovery(paths)
	found, err := d.FindDataFiles(".")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a.xlsx", found[0].Name)
	assert.Equal(t, "b.csv", found[1].Name)
	assert.Equal(t, filepath.Join(paths.RawDir, "b.csv"), found[1].Path)

	found, err = d.FindDataFiles(paths.CleanedDir)
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = d.FindDataFiles("missing")
	assert.Error(t, err)
}

func TestDiscovery_FindFilesByPattern(t *testing.T) {
	paths := setupPaths(t)
	now := time.Now()
	touch(t, filepath.Join(paths.CleanedDir, "x_cleaned.csv"), now)
	touch(t, filepath.Join(paths.CleanedDir, "x.csv"), now)

	d := NewDiscovery(paths)
	found, err := d.FindFilesByPattern(paths.CleanedDir, "*"+config.CleanedSuffix+".csv")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "x_cleaned.csv", found[0].Name)

	_, err = d.FindFilesByPattern(paths.CleanedDir, "[")
	assert.Error(t, err)
}

func TestDiscovery_Inventory(t *testing.T) {
	paths := setupPaths(t)
	specs := config.DefaultDatasets()

	general := paths.GetRawPath(specs[0].File)
	touch(t, general, time.Now())
	touch(t, paths.GetCleanedPath(general), time.Now())
	touch(t, paths.GetRawPath(specs[1].File), time.Now())

	inv := NewDiscovery(paths).Inventory(specs)
	require.Len(t, inv, 3)

	assert.Equal(t, "general_info", inv[0].Name)
	assert.True(t, inv[0].Present)
	assert.True(t, inv[0].Cleaned)
	assert.Positive(t, inv[0].Size)

	assert.True(t, inv[1].Present)
	assert.False(t, inv[1].Cleaned)

	assert.False(t, inv[2].Present)
	assert.Zero(t, inv[2].Size)
	assert.Equal(t, []string{"readmissions"}, Missing(inv))
}
