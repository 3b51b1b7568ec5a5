package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCommand_NoDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := executeCommand(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No run history found")
}

func TestHistoryCommand_ListAndShow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	root := createDataDir(t, map[string]string{
		"a.csv":   "1,2,9\n1,2,3\n",
		"b.csv":   "5,5,5\n",
		"bad.csv": "1,2\n",
	})

	for i := 0; i < 3; i++ {
		_, _, err := executeCommand(t, "scan", root, "--history-db", dbPath)
		require.NoError(t, err)
	}

	stdout, _, err := executeCommand(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "=== Recorded runs (3) ===")
	assert.Contains(t, stdout, "2 ok / 1 failed")
	assert.Contains(t, stdout, root)

	stdout, _, err = executeCommand(t, "history", "--db", dbPath, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "=== Recorded runs (1) ===")

	// The first token of the run line is the run id
	lines := strings.Split(stdout, "\n")
	var runID string
	for _, line := range lines {
		if strings.Contains(line, root) {
			runID = strings.Fields(line)[0]
			break
		}
	}
	require.NotEmpty(t, runID)

	stdout, _, err = executeCommand(t, "history", "--db", dbPath, "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "=== Run "+runID+" ===")
	assert.Contains(t, stdout, "a,2,1,2,3\nb,1,5,5,5\n")
	assert.Contains(t, stdout, filepath.Join(root, "bad.csv")+" (reduce): ")
}

func TestHistoryCommand_UnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	_, _, err := executeCommand(t, "scan", createDataDir(t, map[string]string{"a.csv": "1,2,3\n"}), "--history-db", dbPath)
	require.NoError(t, err)

	_, _, err = executeCommand(t, "history", "--db", dbPath, "--run", "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestHistoryCommand_NegativeLimit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	_, _, err := executeCommand(t, "scan", createDataDir(t, map[string]string{"a.csv": "1,2,3\n"}), "--history-db", dbPath)
	require.NoError(t, err)

	_, _, err = executeCommand(t, "history", "--db", dbPath, "--limit", "-1")
	require.Error(t, err)
}
