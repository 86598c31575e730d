package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene-regress/internal/testutil"
)

func TestRun_NoRoots(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), nil, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRun_MissingRoot(t *testing.T) {
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "absent")

	code := run(context.Background(), []string{missing}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.Equal(t, missing+": 0 of 0 scenes failed\n", stdout.String())
}

func TestRun_BadSettings(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "settings.json")
	testutil.WriteFile(t, path, `{"compare_timeout": "later"}`)

	code := run(context.Background(), []string{"--config=" + path, t.TempDir()}, &stdout, &stderr)

	assert.Equal(t, exitStartup, code)
	assert.Contains(t, stderr.String(), "invalid compare_timeout")
	assert.Empty(t, stdout.String(), "no root is processed")
}

func TestRun_VerboseBanner(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-v", t.TempDir()}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(stdout.String(), "test-scenes dev (unknown, built unknown)\n"), stdout.String())
}

func TestRun_BannerFollowsSwitchPosition(t *testing.T) {
	var stdout, stderr bytes.Buffer
	first := filepath.Join(t.TempDir(), "first")
	second := filepath.Join(t.TempDir(), "second")

	code := run(context.Background(), []string{first, "-v", second}, &stdout, &stderr)
	require.Equal(t, exitOK, code)

	out := stdout.String()
	quiet := strings.Index(out, first+": 0 of 0 scenes failed")
	banner := strings.Index(out, "test-scenes dev")
	require.GreaterOrEqual(t, quiet, 0)
	require.GreaterOrEqual(t, banner, 0)
	assert.Less(t, quiet, banner, "banner belongs to the first verbose root")
	assert.Equal(t, 1, strings.Count(out, "test-scenes dev"))
}

func TestRun_NoBannerWithoutVerbose(t *testing.T) {
	var stdout, stderr bytes.Buffer

	run(context.Background(), []string{t.TempDir()}, &stdout, &stderr)

	assert.NotContains(t, stdout.String(), "test-scenes dev")
}

func TestRun_BannerDescribesHistory(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history.db")
	settings := filepath.Join(t.TempDir(), "settings.json")
	testutil.WriteFile(t, settings, `{"history_db": "`+filepath.ToSlash(historyPath)+`"}`)
	root := t.TempDir()

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run(context.Background(), []string{"--config=" + settings, "-v", root}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "history: schema v1, no previous runs\n")

	stdout.Reset()
	require.Equal(t, exitOK, run(context.Background(), []string{"--config=" + settings, "-v", root}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "history: schema v1, last run ")
}

func TestRun_NoComparatorFailsScenes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := t.TempDir()
	testutil.MakeScene(t, root, "scene1")

	code := run(context.Background(), []string{root}, &stdout, &stderr)

	assert.Equal(t, exitFailed, code)
	assert.Equal(t, root+": 1 of 1 scenes failed\n", stdout.String())
	assert.Contains(t, stderr.String(), "FAILED scene1: no comparator command configured")
}

func TestRunnerFactory_Target(t *testing.T) {
	settings := mustSettings(t, `{"capture_limit_bytes": 16}`)
	factory := runnerFactory(settings)

	quiet := factory(configRun(false), nil)
	stats := factory(configRun(true), nil)

	assert.Same(t, os.Stderr, quiet.Target)
	assert.Same(t, os.Stdout, stats.Target)
	assert.Equal(t, int64(16), quiet.CaptureLimit)
}
