package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "annotations.json")
	in := []map[string]any{{"id": "1", "time": 0.5}}

	require.NoError(t, WriteJSONFile(path, in))

	var out []map[string]any
	require.NoError(t, ReadJSONFile(path, &out))
	assert.Equal(t, []map[string]any{{"id": "1", "time": 0.5}}, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestReadJSONFileErrors(t *testing.T) {
	dir := t.TempDir()
	var v any

	assert.Error(t, ReadJSONFile(filepath.Join(dir, "missing.json"), &v))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	assert.ErrorContains(t, ReadJSONFile(bad, &v), "failed to decode")
}

func TestBackupFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annotations.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0644))
	now := time.Unix(1700000000, 0)

	backup, err := BackupFile(path, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "annotations_backup_1700000000.json"), backup)

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(data))

	_, err = BackupFile(path, now)
	assert.Error(t, err, "an existing backup is never overwritten")
}

func TestBackupFileMissing(t *testing.T) {
	backup, err := BackupFile(filepath.Join(t.TempDir(), "none.json"), time.Now())

	require.NoError(t, err)
	assert.Empty(t, backup)
}
