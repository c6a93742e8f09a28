package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedHistory records one valid and one failed resolution in a fresh
// database and returns its path.
func seedHistory(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "history.db")

	_, err := execute(t, resolveCmd("text", "run-1"), catalogDir,
		"--plan", "dev", "--config", runConfig("dev.yaml"), "--db", db)
	require.NoError(t, err)
	_, err = execute(t, resolveCmd("text", "run-2"), catalogDir,
		"--plan", "dev", "--config", runConfig("invalid.yaml"), "--db", db)
	require.Error(t, err)
	return db
}

func decodeHistory(t *testing.T, out string) []HistoryEntry {
	t.Helper()
	var resp struct {
		Status string         `json:"status"`
		Data   []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	assert.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestHistoryEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No resolutions recorded")
}

func TestHistoryListsResolutions(t *testing.T) {
	db := seedHistory(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "valid")
	assert.Contains(t, out, "4 violation(s)")
	assert.Contains(t, out, "2025-01-01T00:00:00Z")
}

func TestHistoryJSON(t *testing.T) {
	db := seedHistory(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)

	entries := decodeHistory(t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, "run-1", entries[0].RunID)
	assert.True(t, entries[0].Valid)
	assert.Equal(t, int64(2), entries[1].Seq)
	assert.False(t, entries[1].Valid)
	assert.Equal(t, 4, entries[1].Violations)
}

func TestHistoryFilters(t *testing.T) {
	db := seedHistory(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "--failed")
	require.NoError(t, err)
	failed := decodeHistory(t, out)
	require.Len(t, failed, 1)
	assert.Equal(t, "run-2", failed[0].RunID)

	out, err = execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "-n", "1")
	require.NoError(t, err)
	latest := decodeHistory(t, out)
	require.Len(t, latest, 1)
	assert.Equal(t, "run-2", latest[0].RunID)

	out, err = execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "--plan-hash", "nope")
	require.NoError(t, err)
	assert.Empty(t, decodeHistory(t, out))
}

func TestHistoryNegativeLimit(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	_, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--limit", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeInvalidFlags)
}
