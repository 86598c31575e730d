// Package scene discovers recorded calibration scenes beneath a root
// directory.
//
// A scene is recognised by its marker file laid out as
//
//	<scene>/binFiles/ac2/yuy_prev_z_i.files
//
// Matches whose two ancestor directories do not carry exactly those tags are
// skipped without diagnostics.
package scene

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// DefaultMarker is the per-scene raw data index file name.
	DefaultMarker = "yuy_prev_z_i.files"
	// DefaultSceneTag is the required name of the marker's parent directory.
	DefaultSceneTag = "ac2"
	// DefaultBinTag is the required name of the marker's grandparent directory.
	DefaultBinTag = "binFiles"
)

// Scene identifies one recorded calibration session.
type Scene struct {
	// TestName is the scene path relative to the batch root, with no leading
	// separator. It is "." when the root itself is the scene.
	TestName string
	// Dir is the absolute scene directory with a trailing separator.
	Dir string
}

// Locator finds scenes by walking a directory tree. The zero value uses the
// default marker and tags and walks the real filesystem.
type Locator struct {
	Marker   string // path.Match pattern for the marker file name
	SceneTag string
	BinTag   string

	// Open returns the filesystem rooted at root. Defaults to os.DirFS.
	Open func(root string) fs.FS
}

// NewLocator returns a Locator using the given marker pattern and tags.
// Empty arguments fall back to the defaults.
func NewLocator(marker, sceneTag, binTag string) *Locator {
	return &Locator{Marker: marker, SceneTag: sceneTag, BinTag: binTag}
}

// Scenes returns the scenes beneath root in lexical walk order. Each range
// over the sequence performs a fresh walk.
//
// A root that does not exist or is not a directory yields nothing. A
// malformed marker pattern or any other traversal error is yielded once, with
// a zero Scene, and ends the sequence.
func (l *Locator) Scenes(root string) iter.Seq2[Scene, error] {
	return func(yield func(Scene, error) bool) {
		marker := l.marker()
		if _, err := path.Match(marker, ""); err != nil {
			yield(Scene{}, fmt.Errorf("marker pattern %q: %w", marker, err))
			return
		}

		fsys := l.open(root)

		info, err := fs.Stat(fsys, ".")
		if err != nil || !info.IsDir() {
			return
		}

		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield(Scene{}, fmt.Errorf("resolve root %q: %w", root, err))
			return
		}

		seen := make(map[string]bool)
		walkErr := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ok, _ := path.Match(marker, d.Name()); !ok {
				return nil
			}
			rel, ok := l.sceneOf(p)
			if !ok || seen[rel] {
				return nil
			}
			seen[rel] = true

			if !yield(newScene(absRoot, rel), nil) {
				return fs.SkipAll
			}
			return nil
		})
		if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) {
			yield(Scene{}, fmt.Errorf("walk %s: %w", root, walkErr))
		}
	}
}

// Collect drains Scenes(root) into a slice, stopping at the first error.
func (l *Locator) Collect(root string) ([]Scene, error) {
	var scenes []Scene
	for s, err := range l.Scenes(root) {
		if err != nil {
			return scenes, err
		}
		scenes = append(scenes, s)
	}
	return scenes, nil
}

// sceneOf maps a slash-separated marker path to its scene directory, walking
// up exactly three levels and checking both intermediate tags.
func (l *Locator) sceneOf(markerPath string) (string, bool) {
	tagDir := path.Dir(markerPath)
	if path.Base(tagDir) != l.sceneTag() {
		return "", false
	}
	binDir := path.Dir(tagDir)
	if binDir == "." || path.Base(binDir) != l.binTag() {
		return "", false
	}
	return path.Dir(binDir), true
}

func newScene(absRoot, rel string) Scene {
	name := filepath.FromSlash(rel)
	dir := absRoot
	if rel != "." {
		dir = filepath.Join(absRoot, name)
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return Scene{TestName: name, Dir: dir}
}

func (l *Locator) open(root string) fs.FS {
	if l.Open != nil {
		return l.Open(root)
	}
	return os.DirFS(root)
}

func (l *Locator) marker() string {
	if l.Marker == "" {
		return DefaultMarker
	}
	return l.Marker
}

func (l *Locator) sceneTag() string {
	if l.SceneTag == "" {
		return DefaultSceneTag
	}
	return l.SceneTag
}

func (l *Locator) binTag() string {
	if l.BinTag == "" {
		return DefaultBinTag
	}
	return l.BinTag
}
