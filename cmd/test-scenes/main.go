// Command test-scenes replays recorded calibration scenes through the
// comparison program and reports drift against the stored references.
//
// Usage:
//
//	test-scenes [ -v ] [ --stats ] [ --config=<file.json> ] <root-dir>...
//
// Switches apply to the roots that follow them. The exit status is 0 when
// every scene under every root passed, 1 otherwise, and 2 when the settings
// file or history database cannot be opened.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/scene-regress/internal/batch"
	"github.com/banshee-data/scene-regress/internal/compare"
	"github.com/banshee-data/scene-regress/internal/config"
	"github.com/banshee-data/scene-regress/internal/db"
	"github.com/banshee-data/scene-regress/internal/monitoring"
	"github.com/banshee-data/scene-regress/internal/report"
	"github.com/banshee-data/scene-regress/internal/runner"
	"github.com/banshee-data/scene-regress/internal/scene"
	"github.com/banshee-data/scene-regress/internal/version"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitStartup = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	plan := config.ParseArgs(args)

	settings := config.EmptySettings()
	if plan.SettingsPath != "" {
		s, err := config.LoadSettings(plan.SettingsPath)
		if err != nil {
			fmt.Fprintf(stderr, "test-scenes: %v\n", err)
			return exitStartup
		}
		settings = s
	}

	ctrl := batch.New(
		scene.NewLocator(settings.GetMarker(), settings.GetSceneTag(), settings.GetBinTag()),
		runnerFactory(settings),
	)
	ctrl.Out = stdout
	ctrl.Err = stderr
	ctrl.Trace = stdout
	ctrl.Version = version.Version
	ctrl.Banner = "test-scenes " + version.String()

	if path := settings.GetHistoryDB(); path != "" {
		database, err := db.NewDB(path)
		if err != nil {
			fmt.Fprintf(stderr, "test-scenes: history database: %v\n", err)
			return exitStartup
		}
		store := db.NewStore(database)
		defer store.Close()
		ctrl.History = store
		ctrl.Banner += "\n" + historySummary(database, store)
	}
	if dir := settings.GetReportDir(); dir != "" {
		ctrl.Exporter = report.NewExporter(dir)
	}

	if !ctrl.Run(ctx, plan) {
		return exitFailed
	}
	return exitOK
}

// historySummary describes the history database for the verbose banner.
func historySummary(database *db.DB, store *db.Store) string {
	v, dirty, err := database.MigrateVersion(db.MigrationsFS())
	if err != nil {
		return fmt.Sprintf("history: %v", err)
	}
	s := fmt.Sprintf("history: schema v%d", v)
	if dirty {
		s += " (dirty)"
	}

	runs, err := store.ListRuns(1)
	switch {
	case err != nil:
		s += fmt.Sprintf(", last run unknown: %v", err)
	case len(runs) == 0:
		s += ", no previous runs"
	default:
		s += fmt.Sprintf(", last run %s at %s", runs[0].RunID, runs[0].StartedAt.Format(time.RFC3339))
	}
	return s
}

// runnerFactory builds a runner per job. The stream silenced around each
// scene is stdout when the table is being printed and stderr otherwise.
func runnerFactory(settings *config.Settings) batch.RunnerFactory {
	return func(cfg config.RunConfig, log *monitoring.Logger) *runner.Runner {
		cmp := &compare.Exec{
			Command: settings.CompareCommand,
			Timeout: settings.GetCompareTimeout(),
			Log:     log,
		}
		target := os.Stderr
		if cfg.Stats {
			target = os.Stdout
		}
		r := runner.New(cmp, target, log)
		r.CaptureLimit = settings.GetCaptureLimit()
		return r
	}
}
