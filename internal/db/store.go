package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/scene-regress/internal/timeutil"
)

// Run is one root directory processed by one invocation.
type Run struct {
	RunID      string
	Root       string
	Version    string
	StartedAt  time.Time
	FinishedAt time.Time
	Scenes     int
	Failed     int
	Cost       float64
	DCost      float64
	Movement   float64
	DMovement  float64
}

// SceneRecord is the stored outcome of one scene within a run.
type SceneRecord struct {
	RunID     string
	TestName  string
	Failures  int
	Message   string
	Cost      float64
	DCost     float64
	Movement  float64
	DMovement float64
	Elapsed   time.Duration
	// StartedAt is filled in from the owning run on reads.
	StartedAt time.Time
}

// Store records and queries run history.
type Store struct {
	db    *DB
	clock timeutil.Clock

	// MaxRetries bounds retries of writes that hit a locked database.
	MaxRetries int
	// RetryDelay is the first backoff delay; it doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewStore returns a Store over db using the real clock.
func NewStore(db *DB) *Store {
	return NewStoreWithClock(db, timeutil.RealClock{})
}

// NewStoreWithClock returns a Store that sleeps between retries on clock.
func NewStoreWithClock(db *DB, clock timeutil.Clock) *Store {
	return &Store{
		db:            db,
		clock:         clock,
		MaxRetries:    5,
		RetryDelay:    50 * time.Millisecond,
		MaxRetryDelay: 2 * time.Second,
	}
}

// RecordRun stores run and its scenes in one transaction. A run without an
// id is given a new one, written back to run.RunID.
func (s *Store) RecordRun(run *Run, scenes []SceneRecord) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	return s.retryOnBusy(func() error {
		return s.recordRun(run, scenes)
	})
}

func (s *Store) recordRun(run *Run, scenes []SceneRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (
			run_id, root, version, started_unix_ns, finished_unix_ns,
			scenes, failed, cost, d_cost, movement, d_movement
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Root, run.Version,
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
		run.Scenes, run.Failed, run.Cost, run.DCost, run.Movement, run.DMovement,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO scene_results (
			run_id, test_name, failures, message,
			cost, d_cost, movement, d_movement, elapsed_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare scene insert: %w", err)
	}
	defer stmt.Close()

	for _, sc := range scenes {
		_, err := stmt.Exec(run.RunID, sc.TestName, sc.Failures, sc.Message,
			sc.Cost, sc.DCost, sc.Movement, sc.DMovement, int64(sc.Elapsed))
		if err != nil {
			return fmt.Errorf("insert scene %s: %w", sc.TestName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	q := `SELECT run_id, root, version, started_unix_ns, finished_unix_ns,
			scenes, failed, cost, d_cost, movement, d_movement
		FROM runs ORDER BY started_unix_ns DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.RunID, &r.Root, &r.Version, &started, &finished,
			&r.Scenes, &r.Failed, &r.Cost, &r.DCost, &r.Movement, &r.DMovement); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		r.FinishedAt = time.Unix(0, finished).UTC()
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// SceneHistory returns up to limit stored results for testName, newest run
// first. limit <= 0 returns all.
func (s *Store) SceneHistory(testName string, limit int) ([]*SceneRecord, error) {
	q := `SELECT s.run_id, s.test_name, s.failures, s.message,
			s.cost, s.d_cost, s.movement, s.d_movement, s.elapsed_ns, r.started_unix_ns
		FROM scene_results s JOIN runs r ON r.run_id = s.run_id
		WHERE s.test_name = ?
		ORDER BY r.started_unix_ns DESC, s.run_id`
	args := []interface{}{testName}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query scene history: %w", err)
	}
	defer rows.Close()

	var out []*SceneRecord
	for rows.Next() {
		var rec SceneRecord
		var elapsed, started int64
		if err := rows.Scan(&rec.RunID, &rec.TestName, &rec.Failures, &rec.Message,
			&rec.Cost, &rec.DCost, &rec.Movement, &rec.DMovement, &elapsed, &started); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		rec.Elapsed = time.Duration(elapsed)
		rec.StartedAt = time.Unix(0, started).UTC()
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// retryOnBusy runs fn, retrying with exponential backoff while sqlite
// reports the database as locked.
func (s *Store) retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) || attempt >= s.MaxRetries {
			return err
		}
		s.clock.Sleep(s.backoff(attempt + 1))
	}
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
func (s *Store) backoff(attempt int) time.Duration {
	delay := s.RetryDelay * time.Duration(1<<uint(attempt-1))
	if s.MaxRetryDelay > 0 && delay > s.MaxRetryDelay {
		delay = s.MaxRetryDelay
	}
	return delay
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
