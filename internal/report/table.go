package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/scene-regress/internal/compare"
)

// Column layout: Failed 7, Name 70, then four numeric columns of 10.
const (
	headerFormat = "%7s%-70s%-10s%10s%10s%10s\n"
	rowFormat    = "%6d %-70s%10.2f%10s%10.2f%10.2f\n"
)

// totalIndent lines the totals label up under the scene names.
var totalIndent = strings.Repeat(" ", 21)

// Table writes the per-scene statistics report.
type Table struct {
	w io.Writer
}

// NewTable returns a Table writing to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

// Header writes the column titles followed by a divider line.
func (t *Table) Header() {
	fmt.Fprintf(t.w, headerFormat, "Failed ", "Name", "Cost", "%diff", "Pixels", "delta")
	t.Dividers()
}

// Dividers writes one divider line.
func (t *Table) Dividers() {
	fmt.Fprintf(t.w, headerFormat, "------ ", "-----", "----------", "-----", "-------", "-----")
}

// Row writes one scene.
func (t *Table) Row(name string, failed int, s compare.SceneStats) {
	fmt.Fprintf(t.w, rowFormat, failed, name, s.Cost, FormatDrift(s), s.Movement, s.DMovement)
}

// Totals writes a divider and the totals row. The Failed column holds the
// number of failed scenes; the scene count is part of the label.
func (t *Table) Totals(tot Totals) {
	t.Dividers()
	t.Row(fmt.Sprintf("%stotal: %d scenes", totalIndent, tot.Scenes), tot.Failed, tot.Stats)
}

// FormatDrift renders the cost drift percentage, or "n/a" when the
// reference cost is zero and the drift is not.
func FormatDrift(s compare.SceneStats) string {
	pct, ok := s.CostDriftPercent()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", pct)
}

// WriteQuiet writes the one-line summary used when no table is requested.
func WriteQuiet(w io.Writer, root string, tot Totals) {
	fmt.Fprintf(w, "%s: %d of %d scenes failed\n", root, tot.Failed, tot.Scenes)
}
