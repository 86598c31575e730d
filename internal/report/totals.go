// Package report folds scene results into per-root totals and renders them:
// a one-line quiet summary, a fixed-width table, and file exports.
package report

import (
	"math"

	"github.com/banshee-data/scene-regress/internal/compare"
	"github.com/banshee-data/scene-regress/internal/runner"
)

// Totals accumulates the scenes of one root argument. Drift fields are sums
// of absolute per-scene drift, not signed sums and not means.
type Totals struct {
	Scenes int                `json:"scenes"`
	Failed int                `json:"failed"`
	Stats  compare.SceneStats `json:"stats"`
}

// Add folds one scene result into the totals.
func (t *Totals) Add(res runner.Result) {
	t.Scenes++
	if !res.Passed() {
		t.Failed++
	}
	t.Stats.Cost += res.Stats.Cost
	t.Stats.DCost += math.Abs(res.Stats.DCost)
	t.Stats.Movement += res.Stats.Movement
	t.Stats.DMovement += math.Abs(res.Stats.DMovement)
}

// OK reports whether no scene failed.
func (t Totals) OK() bool {
	return t.Failed == 0
}
