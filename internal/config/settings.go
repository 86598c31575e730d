package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/banshee-data/scene-regress/internal/runner"
	"github.com/banshee-data/scene-regress/internal/scene"
)

// DefaultCaptureLimit is the default number of trailing output bytes kept
// for a failed scene.
const DefaultCaptureLimit int64 = runner.DefaultCaptureLimit

// DefaultCompareTimeout bounds one comparator invocation.
const DefaultCompareTimeout = 30 * time.Minute

// Settings is the optional JSON settings file. Fields omitted from the file
// fall back to the defaults returned by the Get* methods.
type Settings struct {
	// Scene layout
	Marker   *string `json:"marker,omitempty"`
	SceneTag *string `json:"scene_tag,omitempty"`
	BinTag   *string `json:"bin_tag,omitempty"`

	// Comparator
	CompareCommand []string `json:"compare_command,omitempty"`
	CompareTimeout *string  `json:"compare_timeout,omitempty"` // duration string like "10m"
	CaptureLimit   *int64   `json:"capture_limit_bytes,omitempty"`

	// Optional sinks
	HistoryDB *string `json:"history_db,omitempty"`
	ReportDir *string `json:"report_dir,omitempty"`
}

// EmptySettings returns Settings with every field unset.
func EmptySettings() *Settings {
	return &Settings{}
}

// LoadSettings loads Settings from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSettings(p string) (*Settings, error) {
	cleanPath := filepath.Clean(p)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("settings file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("settings file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := EmptySettings()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// Validate checks field values that cannot be caught by JSON decoding.
func (s *Settings) Validate() error {
	if s.Marker != nil {
		if *s.Marker == "" {
			return fmt.Errorf("marker must not be empty")
		}
		if _, err := path.Match(*s.Marker, ""); err != nil {
			return fmt.Errorf("invalid marker pattern '%s': %w", *s.Marker, err)
		}
	}
	if s.SceneTag != nil && *s.SceneTag == "" {
		return fmt.Errorf("scene_tag must not be empty")
	}
	if s.BinTag != nil && *s.BinTag == "" {
		return fmt.Errorf("bin_tag must not be empty")
	}

	if len(s.CompareCommand) > 0 && s.CompareCommand[0] == "" {
		return fmt.Errorf("compare_command program must not be empty")
	}

	if s.CompareTimeout != nil && *s.CompareTimeout != "" {
		d, err := time.ParseDuration(*s.CompareTimeout)
		if err != nil {
			return fmt.Errorf("invalid compare_timeout '%s': %w", *s.CompareTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("compare_timeout must be non-negative, got %v", d)
		}
	}

	if s.CaptureLimit != nil && *s.CaptureLimit < 0 {
		return fmt.Errorf("capture_limit_bytes must be non-negative, got %d", *s.CaptureLimit)
	}

	return nil
}

// GetMarker returns the marker file pattern or the default.
func (s *Settings) GetMarker() string {
	if s.Marker == nil {
		return scene.DefaultMarker
	}
	return *s.Marker
}

// GetSceneTag returns the required marker parent name or the default.
func (s *Settings) GetSceneTag() string {
	if s.SceneTag == nil {
		return scene.DefaultSceneTag
	}
	return *s.SceneTag
}

// GetBinTag returns the required marker grandparent name or the default.
func (s *Settings) GetBinTag() string {
	if s.BinTag == nil {
		return scene.DefaultBinTag
	}
	return *s.BinTag
}

// GetCompareTimeout parses and returns the comparator timeout. Zero means
// no timeout.
func (s *Settings) GetCompareTimeout() time.Duration {
	if s.CompareTimeout == nil || *s.CompareTimeout == "" {
		return DefaultCompareTimeout
	}
	d, err := time.ParseDuration(*s.CompareTimeout)
	if err != nil {
		return DefaultCompareTimeout // default on parse error
	}
	return d
}

// GetCaptureLimit returns the number of captured output bytes to keep.
func (s *Settings) GetCaptureLimit() int64 {
	if s.CaptureLimit == nil {
		return DefaultCaptureLimit
	}
	return *s.CaptureLimit
}

// GetHistoryDB returns the history database path; empty disables history.
func (s *Settings) GetHistoryDB() string {
	if s.HistoryDB == nil {
		return ""
	}
	return *s.HistoryDB
}

// GetReportDir returns the report export directory; empty disables exports.
func (s *Settings) GetReportDir() string {
	if s.ReportDir == nil {
		return ""
	}
	return *s.ReportDir
}
