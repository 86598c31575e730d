package report

import (
	"math"

	"github.com/banshee-data/scene-regress/internal/runner"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the spread of drift across the passing scenes of one
// root. Scenes whose drift percentage is undefined are counted in Undefined
// and left out of the cost statistics.
type Summary struct {
	Scenes           int     `json:"scenes"`
	Undefined        int     `json:"undefined"`
	MeanCostDriftPct float64 `json:"mean_cost_drift_pct"`
	StdCostDriftPct  float64 `json:"std_cost_drift_pct"`
	MaxCostDriftPct  float64 `json:"max_cost_drift_pct"`
	MeanDMovement    float64 `json:"mean_d_movement"`
	MaxDMovement     float64 `json:"max_d_movement"`
}

// Summarize computes drift statistics over the passing results.
func Summarize(results []runner.Result) Summary {
	var pcts, moves []float64
	var sum Summary
	for _, r := range results {
		if !r.Passed() {
			continue
		}
		sum.Scenes++
		moves = append(moves, math.Abs(r.Stats.DMovement))
		if pct, ok := r.Stats.CostDriftPercent(); ok {
			pcts = append(pcts, pct)
		} else {
			sum.Undefined++
		}
	}

	if len(pcts) > 0 {
		sum.MeanCostDriftPct, sum.StdCostDriftPct = meanStd(pcts)
		sum.MaxCostDriftPct = floats.Max(pcts)
	}
	if len(moves) > 0 {
		sum.MeanDMovement = stat.Mean(moves, nil)
		sum.MaxDMovement = floats.Max(moves)
	}
	return sum
}

// meanStd returns the mean and sample standard deviation. A single sample
// has zero spread.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return stat.Mean(xs, nil), 0
	}
	return stat.MeanStdDev(xs, nil)
}
