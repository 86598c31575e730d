// Package compare defines the boundary to the calibration pipeline: a
// Comparator replays one scene and reports how far the fresh calibration
// drifted from the scene's stored reference result.
package compare

import (
	"context"
	"math"
)

// SceneStats is the outcome of comparing one scene's computed calibration
// with its reference. DCost and DMovement are zero when the computed output
// matches the reference exactly.
type SceneStats struct {
	Cost      float64 `json:"cost"`
	DCost     float64 `json:"d_cost"`
	Movement  float64 `json:"movement"`
	DMovement float64 `json:"d_movement"`
}

// ReferenceCost is the stored cost the computed value is compared against.
func (s SceneStats) ReferenceCost() float64 {
	return s.Cost - s.DCost
}

// CostDriftPercent returns |DCost| as a percentage of the reference cost.
//
// When the reference cost is zero the result is 0 if there is no drift;
// otherwise the percentage is undefined and ok is false.
func (s SceneStats) CostDriftPercent() (pct float64, ok bool) {
	ref := s.ReferenceCost()
	if ref == 0 {
		if s.DCost == 0 {
			return 0, true
		}
		return 0, false
	}
	return math.Abs(s.DCost) * 100 / ref, true
}

// Finite reports whether every field is a finite number.
func (s SceneStats) Finite() bool {
	for _, v := range []float64{s.Cost, s.DCost, s.Movement, s.DMovement} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Comparator replays the scene stored in sceneDir and compares the result
// against the scene's reference. It must not fail on a well-formed scene; a
// returned error marks the scene as failed.
type Comparator interface {
	Compare(ctx context.Context, sceneDir string) (SceneStats, error)
}

// Func adapts an ordinary function to the Comparator interface.
type Func func(ctx context.Context, sceneDir string) (SceneStats, error)

// Compare calls f.
func (f Func) Compare(ctx context.Context, sceneDir string) (SceneStats, error) {
	return f(ctx, sceneDir)
}
