package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/banshee-data/scene-regress/internal/fsutil"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WritePlot renders a PNG bar chart of per-scene cost drift.
func WritePlot(fs fsutil.FileSystem, path string, doc *Document) error {
	names, costs, _ := driftSeries(doc)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Cost drift: %s", doc.Root)
	p.Y.Label.Text = "%diff"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(costs), vg.Points(14))
	if err != nil {
		return fmt.Errorf("build drift bars: %w", err)
	}
	bars.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4

	width := vg.Length(math.Max(6, 0.4*float64(len(names)))) * vg.Inch
	wt, err := p.WriterTo(width, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	w, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Close()
}
