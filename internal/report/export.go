package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/scene-regress/internal/compare"
	"github.com/banshee-data/scene-regress/internal/fsutil"
	"github.com/banshee-data/scene-regress/internal/runner"
	"github.com/banshee-data/scene-regress/internal/security"
)

// SceneEntry is one scene in an exported report.
type SceneEntry struct {
	TestName     string             `json:"test_name"`
	Dir          string             `json:"scene_dir"`
	Failed       int                `json:"failed"`
	Failures     []string           `json:"failures,omitempty"`
	Stats        compare.SceneStats `json:"stats"`
	CostDriftPct *float64           `json:"cost_drift_pct,omitempty"`
	ElapsedMs    int64              `json:"elapsed_ms"`
}

// Document is the exported record of one root argument.
type Document struct {
	RunID      string       `json:"run_id"`
	Root       string       `json:"root"`
	Version    string       `json:"version"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Totals     Totals       `json:"totals"`
	Summary    Summary      `json:"summary"`
	Scenes     []SceneEntry `json:"scenes"`
}

// NewDocument assembles a Document from the results of one root.
func NewDocument(runID, root, version string, started, finished time.Time, results []runner.Result) *Document {
	doc := &Document{
		RunID:      runID,
		Root:       root,
		Version:    version,
		StartedAt:  started,
		FinishedAt: finished,
		Summary:    Summarize(results),
		Scenes:     make([]SceneEntry, 0, len(results)),
	}
	for _, r := range results {
		doc.Totals.Add(r)

		entry := SceneEntry{
			TestName:  r.Scene.TestName,
			Dir:       r.Scene.Dir,
			Failed:    r.Failed(),
			Failures:  r.Failures,
			Stats:     r.Stats,
			ElapsedMs: r.Elapsed.Milliseconds(),
		}
		if pct, ok := r.Stats.CostDriftPercent(); ok {
			entry.CostDriftPct = &pct
		}
		doc.Scenes = append(doc.Scenes, entry)
	}
	return doc
}

// Exporter writes report artifacts named after the run id into Dir.
type Exporter struct {
	FS  fsutil.FileSystem
	Dir string
}

// NewExporter returns an Exporter writing to dir on the real filesystem.
func NewExporter(dir string) *Exporter {
	return &Exporter{FS: fsutil.OSFileSystem{}, Dir: dir}
}

// Export writes <run>.json and, when the document has scenes, <run>.html and
// <run>.png, where <run> is the sanitized run id. It returns the paths written.
func (e *Exporter) Export(doc *Document) ([]string, error) {
	if err := e.FS.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	base := filepath.Join(e.Dir, security.SanitizeFilename(doc.RunID))
	var written []string

	if err := WriteJSON(e.FS, base+".json", doc); err != nil {
		return written, err
	}
	written = append(written, base+".json")

	if len(doc.Scenes) == 0 {
		return written, nil
	}

	if err := WriteChart(e.FS, base+".html", doc); err != nil {
		return written, err
	}
	written = append(written, base+".html")

	if err := WritePlot(e.FS, base+".png", doc); err != nil {
		return written, err
	}
	written = append(written, base+".png")

	return written, nil
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(fs fsutil.FileSystem, path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := fs.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// driftSeries returns scene names and their cost drift percentages, with an
// undefined drift plotted as zero.
func driftSeries(doc *Document) ([]string, []float64, []float64) {
	names := make([]string, len(doc.Scenes))
	costs := make([]float64, len(doc.Scenes))
	moves := make([]float64, len(doc.Scenes))
	for i, s := range doc.Scenes {
		names[i] = s.TestName
		if s.CostDriftPct != nil {
			costs[i] = *s.CostDriftPct
		}
		moves[i] = s.Stats.DMovement
	}
	return names, costs, moves
}
