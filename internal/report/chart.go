package report

import (
	"fmt"
	"math"

	"github.com/banshee-data/scene-regress/internal/fsutil"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteChart renders an HTML bar chart of per-scene cost drift and
// movement delta.
func WriteChart(fs fsutil.FileSystem, path string, doc *Document) error {
	names, costs, moves := driftSeries(doc)

	costData := make([]opts.BarData, len(costs))
	moveData := make([]opts.BarData, len(moves))
	for i := range names {
		costData[i] = opts.BarData{Value: math.Round(costs[i]*100) / 100}
		moveData[i] = opts.BarData{Value: moves[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scene drift", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Calibration drift by scene",
			Subtitle: fmt.Sprintf("root=%s run=%s scenes=%d failed=%d", doc.Root, doc.RunID, doc.Totals.Scenes, doc.Totals.Failed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "scene", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
	)
	bar.SetXAxis(names).
		AddSeries("cost %diff", costData).
		AddSeries("pixels delta", moveData)

	w, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := bar.Render(w); err != nil {
		w.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return w.Close()
}
