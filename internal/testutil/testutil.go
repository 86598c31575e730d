// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the scene-tree fixtures used by the locator,
// runner and batch tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Marker path components of a well-formed scene.
const (
	BinTag   = "binFiles"
	SceneTag = "ac2"
	Marker   = "yuy_prev_z_i.files"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WriteFile creates name (and its parent directories) with the given content.
func WriteFile(t *testing.T, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(name), err)
	}
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// MakeScene lays out a well-formed scene at root/rel and returns the scene
// directory.
func MakeScene(t *testing.T, root, rel string) string {
	t.Helper()
	return MakeTagged(t, root, rel, BinTag, SceneTag)
}

// MakeTagged lays out root/rel/<binTag>/<sceneTag>/<Marker>, allowing tests
// to build trees with wrong tags.
func MakeTagged(t *testing.T, root, rel, binTag, sceneTag string) string {
	t.Helper()
	sceneDir := filepath.Join(root, filepath.FromSlash(rel))
	WriteFile(t, filepath.Join(sceneDir, binTag, sceneTag, Marker), "")
	return sceneDir
}
