// Package runner executes one scene comparison in isolation.
//
// Every failure inside a scene, whether an error, a panic or unusable
// numbers, is recorded on that scene's Result and never escapes Run.
package runner

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/banshee-data/scene-regress/internal/compare"
	"github.com/banshee-data/scene-regress/internal/monitoring"
	"github.com/banshee-data/scene-regress/internal/redirect"
	"github.com/banshee-data/scene-regress/internal/scene"
	"github.com/banshee-data/scene-regress/internal/timeutil"
)

// DefaultCaptureLimit is the number of trailing bytes of redirected output
// kept for a failed scene.
const DefaultCaptureLimit = 4096

// Result is the outcome of one scene.
type Result struct {
	Scene    scene.Scene
	Stats    compare.SceneStats
	Failures []string
	Elapsed  time.Duration

	// Output holds the tail of what the scene wrote to the redirected stream.
	// It is only kept when the scene failed.
	Output string
}

// Failed returns the number of failed checks; zero means the scene passed.
func (r Result) Failed() int {
	return len(r.Failures)
}

// Passed reports whether every check succeeded.
func (r Result) Passed() bool {
	return len(r.Failures) == 0
}

// StreamError reports that the process output streams could not be
// redirected or restored. Run panics with it: the process is no longer in a
// usable state and callers must not treat it as a scene failure.
type StreamError struct {
	Scene string
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("output redirection around scene %s: %v", e.Scene, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Runner runs scenes one at a time.
type Runner struct {
	Comparator compare.Comparator

	// Target is the stream silenced while a scene runs. Nil disables
	// redirection.
	Target *os.File
	// CaptureLimit bounds the kept output; zero or less discards it.
	CaptureLimit int64

	Clock timeutil.Clock
	Log   *monitoring.Logger
}

// New returns a Runner with the real clock and the default capture limit.
func New(c compare.Comparator, target *os.File, log *monitoring.Logger) *Runner {
	return &Runner{
		Comparator:   c,
		Target:       target,
		CaptureLimit: DefaultCaptureLimit,
		Clock:        timeutil.RealClock{},
		Log:          log,
	}
}

// Run compares one scene. The returned Result is independent of any other
// scene; Stats are zero unless the comparison succeeded.
func (r *Runner) Run(ctx context.Context, sc scene.Scene) Result {
	res := Result{Scene: sc}
	clock := r.clock()
	start := clock.Now()

	r.Log.Logf("scene %s: start (%s)", sc.TestName, sc.Dir)

	var guard *redirect.Guard
	if r.Target != nil {
		g, err := redirect.Redirect(r.Target, r.CaptureLimit)
		if err != nil {
			panic(&StreamError{Scene: sc.TestName, Err: err})
		}
		guard = g
	}

	stats, err := r.compare(ctx, sc.Dir)

	if guard != nil {
		if rerr := guard.Restore(); rerr != nil {
			panic(&StreamError{Scene: sc.TestName, Err: rerr})
		}
	}

	res.Elapsed = clock.Since(start)
	switch {
	case err != nil:
		res.Failures = append(res.Failures, err.Error())
	case !stats.Finite():
		res.Failures = append(res.Failures, fmt.Sprintf("non-finite statistics %+v", stats))
	default:
		res.Stats = stats
	}

	if !res.Passed() {
		res.Output = string(guard.Captured())
	}
	r.Log.Logf("scene %s: %d failed check(s) in %v", sc.TestName, res.Failed(), res.Elapsed)
	return res
}

// compare calls the comparator, converting a panic into an error.
func (r *Runner) compare(ctx context.Context, dir string) (stats compare.SceneStats, err error) {
	defer func() {
		if v := recover(); v != nil {
			stats = compare.SceneStats{}
			err = fmt.Errorf("comparator panicked: %v", v)
			r.Log.Logf("%s", debug.Stack())
		}
	}()

	if r.Comparator == nil {
		return compare.SceneStats{}, compare.ErrNoCommand
	}
	return r.Comparator.Compare(ctx, dir)
}

func (r *Runner) clock() timeutil.Clock {
	if r.Clock == nil {
		return timeutil.RealClock{}
	}
	return r.Clock
}
