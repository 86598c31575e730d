package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene-regress/internal/config"
)

func mustSettings(t *testing.T, content string) *config.Settings {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	s, err := config.LoadSettings(path)
	require.NoError(t, err)
	return s
}

func configRun(stats bool) config.RunConfig {
	return config.RunConfig{Stats: stats}
}
