// Package batch drives a regression run over every root directory named on
// the command line and turns the outcome into a single pass/fail signal.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/scene-regress/internal/config"
	"github.com/banshee-data/scene-regress/internal/db"
	"github.com/banshee-data/scene-regress/internal/monitoring"
	"github.com/banshee-data/scene-regress/internal/report"
	"github.com/banshee-data/scene-regress/internal/runner"
	"github.com/banshee-data/scene-regress/internal/scene"
	"github.com/banshee-data/scene-regress/internal/timeutil"
)

// HistoryRecorder stores the outcome of one root and looks up earlier
// results of a scene.
type HistoryRecorder interface {
	RecordRun(run *db.Run, scenes []db.SceneRecord) error
	SceneHistory(testName string, limit int) ([]*db.SceneRecord, error)
}

// ReportExporter writes the report artifacts of one root.
type ReportExporter interface {
	Export(doc *report.Document) ([]string, error)
}

// RunnerFactory builds the scene runner for one job. log is the job's
// trace logger.
type RunnerFactory func(cfg config.RunConfig, log *monitoring.Logger) *runner.Runner

// Controller processes root directories one after another.
type Controller struct {
	Locator   *scene.Locator
	NewRunner RunnerFactory

	// Out receives the table or the quiet summary. Err receives failure
	// details and caught errors. Trace receives verbose diagnostics.
	Out   io.Writer
	Err   io.Writer
	Trace io.Writer

	// Optional sinks; nil disables them.
	History  HistoryRecorder
	Exporter ReportExporter

	// Banner is written to Trace when the first verbose job starts.
	Banner string

	Version  string
	Clock    timeutil.Clock
	NewRunID func() string

	bannerShown bool
}

// New returns a Controller writing to the process streams.
func New(loc *scene.Locator, newRunner RunnerFactory) *Controller {
	return &Controller{
		Locator:   loc,
		NewRunner: newRunner,
		Out:       os.Stdout,
		Err:       os.Stderr,
		Trace:     os.Stdout,
		Clock:     timeutil.RealClock{},
		NewRunID:  uuid.NewString,
	}
}

// Run processes every job in plan and reports whether all scenes in all
// roots passed with no root-level failure. A failure in one root never stops
// the remaining roots.
func (c *Controller) Run(ctx context.Context, plan config.Plan) bool {
	ok := true
	for _, job := range plan.Jobs {
		if job.Config.Verbose && !c.bannerShown && c.Banner != "" {
			fmt.Fprintln(c.trace(), c.Banner)
			c.bannerShown = true
		}
		if !c.runJob(ctx, job) {
			ok = false
		}
	}
	return ok
}

// runJob processes one root, converting anything that escapes into a
// diagnostic line and a failed outcome. Output redirection failures are not
// recoverable and propagate.
func (c *Controller) runJob(ctx context.Context, job config.Job) (ok bool) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		err, isErr := v.(error)
		var se *runner.StreamError
		if isErr && errors.As(err, &se) {
			panic(v)
		}
		if isErr {
			fmt.Fprintf(c.errOut(), "caught error: %v\n", err)
		} else {
			fmt.Fprintf(c.errOut(), "caught unknown failure: %v\n", v)
		}
		ok = false
	}()

	tot, err := c.processRoot(ctx, job)
	if err != nil {
		fmt.Fprintf(c.errOut(), "caught error: %v\n", err)
		return false
	}
	return tot.OK()
}

// processRoot locates, runs, folds and prints the scenes of one root, then
// feeds the configured sinks.
func (c *Controller) processRoot(ctx context.Context, job config.Job) (report.Totals, error) {
	log := monitoring.ForVerbosity(c.trace(), job.Config.Verbose)
	r := c.runnerFor(job.Config, log)
	clock := c.clock()
	runID := c.runID()
	started := clock.Now()

	log.Logf("root %s: run %s", job.Root, runID)

	var table *report.Table
	if job.Config.Stats {
		table = report.NewTable(c.out())
		table.Header()
	}

	var tot report.Totals
	var results []runner.Result
	var walkErr error
	for sc, err := range c.locator().Scenes(job.Root) {
		if err != nil {
			walkErr = err
			break
		}
		res := r.Run(ctx, sc)
		results = append(results, res)
		tot.Add(res)

		if table != nil {
			table.Row(sc.TestName, res.Failed(), res.Stats)
		}
		if !res.Passed() {
			c.reportFailure(res, job.Config.Verbose)
		}
		c.tracePrevious(res, log)
	}

	if table != nil {
		table.Totals(tot)
	} else {
		report.WriteQuiet(c.out(), job.Root, tot)
	}
	finished := clock.Now()

	log.Logf("root %s: %d scene(s), %d failed in %v", job.Root, tot.Scenes, tot.Failed, finished.Sub(started))

	if walkErr != nil {
		return tot, walkErr
	}
	return tot, c.publish(runID, job.Root, started, finished, tot, results, log)
}

// reportFailure writes why a scene failed to the error stream. In verbose
// mode the scene's captured output follows.
func (c *Controller) reportFailure(res runner.Result, verbose bool) {
	for _, msg := range res.Failures {
		fmt.Fprintf(c.errOut(), "FAILED %s: %s\n", res.Scene.TestName, msg)
	}
	if verbose && res.Output != "" {
		out := strings.TrimRight(res.Output, "\n")
		fmt.Fprintf(c.errOut(), "--- output of %s ---\n%s\n", res.Scene.TestName, out)
	}
}

// tracePrevious logs how a passing scene's drift compares with the most
// recent stored result for the same scene.
func (c *Controller) tracePrevious(res runner.Result, log *monitoring.Logger) {
	if c.History == nil || !log.Enabled() || !res.Passed() {
		return
	}
	prev, err := c.History.SceneHistory(res.Scene.TestName, 1)
	if err != nil {
		log.Logf("scene %s: history lookup: %v", res.Scene.TestName, err)
		return
	}
	if len(prev) == 0 {
		log.Logf("scene %s: no previous result", res.Scene.TestName)
		return
	}
	p := prev[0]
	log.Logf("scene %s: d_cost %.2f (was %.2f), d_movement %.2f (was %.2f) vs run %s",
		res.Scene.TestName, res.Stats.DCost, p.DCost, res.Stats.DMovement, p.DMovement, p.RunID)
}

// publish hands the finished root to the history store and the exporter.
func (c *Controller) publish(runID, root string, started, finished time.Time, tot report.Totals, results []runner.Result, log *monitoring.Logger) error {
	var errs []error

	if c.History != nil {
		run := &db.Run{
			RunID:      runID,
			Root:       root,
			Version:    c.Version,
			StartedAt:  started,
			FinishedAt: finished,
			Scenes:     tot.Scenes,
			Failed:     tot.Failed,
			Cost:       tot.Stats.Cost,
			DCost:      tot.Stats.DCost,
			Movement:   tot.Stats.Movement,
			DMovement:  tot.Stats.DMovement,
		}
		if err := c.History.RecordRun(run, sceneRecords(runID, results)); err != nil {
			errs = append(errs, fmt.Errorf("record history for %s: %w", root, err))
		} else {
			log.Logf("root %s: recorded run %s", root, run.RunID)
		}
	}

	if c.Exporter != nil {
		doc := report.NewDocument(runID, root, c.Version, started, finished, results)
		paths, err := c.Exporter.Export(doc)
		for _, p := range paths {
			log.Logf("root %s: wrote %s", root, p)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("export report for %s: %w", root, err))
		}
	}

	return errors.Join(errs...)
}

func sceneRecords(runID string, results []runner.Result) []db.SceneRecord {
	recs := make([]db.SceneRecord, 0, len(results))
	for _, r := range results {
		recs = append(recs, db.SceneRecord{
			RunID:     runID,
			TestName:  r.Scene.TestName,
			Failures:  r.Failed(),
			Message:   strings.Join(r.Failures, "; "),
			Cost:      r.Stats.Cost,
			DCost:     r.Stats.DCost,
			Movement:  r.Stats.Movement,
			DMovement: r.Stats.DMovement,
			Elapsed:   r.Elapsed,
		})
	}
	return recs
}

func (c *Controller) runnerFor(cfg config.RunConfig, log *monitoring.Logger) *runner.Runner {
	if c.NewRunner == nil {
		return runner.New(nil, nil, log)
	}
	return c.NewRunner(cfg, log)
}

func (c *Controller) locator() *scene.Locator {
	if c.Locator == nil {
		return &scene.Locator{}
	}
	return c.Locator
}

func (c *Controller) clock() timeutil.Clock {
	if c.Clock == nil {
		return timeutil.RealClock{}
	}
	return c.Clock
}

func (c *Controller) runID() string {
	if c.NewRunID == nil {
		return uuid.NewString()
	}
	return c.NewRunID()
}

func (c *Controller) out() io.Writer {
	if c.Out == nil {
		return io.Discard
	}
	return c.Out
}

func (c *Controller) errOut() io.Writer {
	if c.Err == nil {
		return io.Discard
	}
	return c.Err
}

func (c *Controller) trace() io.Writer {
	if c.Trace == nil {
		return io.Discard
	}
	return c.Trace
}
