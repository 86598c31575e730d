//go:build unix

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene-regress/internal/db"
	"github.com/banshee-data/scene-regress/internal/testutil"
)

// writeSettings writes a settings file whose comparator is a shell snippet.
// The scene directory arrives as $1.
func writeSettings(t *testing.T, script string, extra map[string]interface{}) string {
	t.Helper()
	s := map[string]interface{}{
		"compare_command": []string{"sh", "-c", script, "sh"},
		"compare_timeout": "30s",
	}
	for k, v := range extra {
		s[k] = v
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

const passScript = `echo '{"cost": 10, "d_cost": 0, "movement": 5, "d_movement": 0}'`

func TestRun_ExecPassingScene(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := t.TempDir()
	testutil.MakeScene(t, root, "scene1")
	settings := writeSettings(t, passScript, nil)

	code := run(context.Background(), []string{"--config=" + settings, root}, &stdout, &stderr)

	assert.Equal(t, exitOK, code, stderr.String())
	assert.Equal(t, root+": 0 of 1 scenes failed\n", stdout.String())
}

func TestRun_ExecTwoRootsOneFailing(t *testing.T) {
	var stdout, stderr bytes.Buffer
	good := t.TempDir()
	bad := t.TempDir()
	testutil.MakeScene(t, good, "ok")
	testutil.MakeScene(t, bad, "broken")
	script := `case "$1" in *broken*) echo "reference mismatch" >&2; exit 3;; esac; ` + passScript
	settings := writeSettings(t, script, nil)

	code := run(context.Background(), []string{"--config=" + settings, good, bad}, &stdout, &stderr)

	assert.Equal(t, exitFailed, code)
	assert.Equal(t, good+": 0 of 1 scenes failed\n"+bad+": 1 of 1 scenes failed\n", stdout.String())
	assert.Contains(t, stderr.String(), "FAILED broken:")
}

func TestRun_ExecWithSinks(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := t.TempDir()
	testutil.MakeScene(t, root, "scene1")
	historyPath := filepath.Join(t.TempDir(), "history.db")
	reportDir := filepath.Join(t.TempDir(), "reports")
	settings := writeSettings(t, passScript, map[string]interface{}{
		"history_db": historyPath,
		"report_dir": reportDir,
	})

	code := run(context.Background(), []string{"--config=" + settings, root}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	database, err := db.NewDB(historyPath)
	require.NoError(t, err)
	store := db.NewStore(database)
	defer store.Close()

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, root, runs[0].Root)
	assert.Equal(t, 10.0, runs[0].Cost)

	for _, ext := range []string{".json", ".html", ".png"} {
		_, err := os.Stat(filepath.Join(reportDir, runs[0].RunID+ext))
		assert.NoError(t, err, "missing %s export", ext)
	}
}
