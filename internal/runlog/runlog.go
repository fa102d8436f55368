package runlog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Status values for runs and per-jurisdiction crawls.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// RunEntry is one recorded orchestrator run.
type RunEntry struct {
	ID           string
	Status       string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Attempted    int
	Succeeded    int
	Failed       int
	FailedStates []string
	TotalBills   int
}

// CrawlEntry is one recorded jurisdiction crawl within a run.
type CrawlEntry struct {
	ID          string
	RunID       string
	State       string
	Status      string
	Bills       int
	Artifact    string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Log records crawl runs in a local sqlite database. It is bookkeeping
// for scheduling and reporting, not bill storage.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the run log database at path and
// applies migrations.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "runlog: create dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}

	l := &Log{db: db}
	if err := l.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL DEFAULT 'running',
	started_at    DATETIME NOT NULL,
	completed_at  DATETIME,
	attempted     INTEGER NOT NULL DEFAULT 0,
	succeeded     INTEGER NOT NULL DEFAULT 0,
	failed        INTEGER NOT NULL DEFAULT 0,
	failed_states TEXT NOT NULL DEFAULT '',
	total_bills   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS crawls (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES runs(id),
	state        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	bills        INTEGER NOT NULL DEFAULT 0,
	artifact     TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_crawls_run_id ON crawls(run_id);
`

func (l *Log) migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "runlog: migrate")
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// StartRun records the beginning of an orchestrator run and returns its ID.
func (l *Log) StartRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, StatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "runlog: start run")
	}
	return id, nil
}

// CompleteRun records the final tallies of a run.
func (l *Log) CompleteRun(ctx context.Context, runID string, attempted, succeeded, failed, totalBills int, failedStates []string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, attempted = ?, succeeded = ?,
		 failed = ?, failed_states = ?, total_bills = ? WHERE id = ?`,
		StatusComplete, time.Now().UTC(), attempted, succeeded, failed,
		strings.Join(failedStates, ","), totalBills, runID,
	)
	return eris.Wrapf(err, "runlog: complete run %s", runID)
}

// StartCrawl records the beginning of one jurisdiction crawl.
func (l *Log) StartCrawl(ctx context.Context, runID, state string) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO crawls (id, run_id, state, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, state, StatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start crawl %s", state)
	}
	return id, nil
}

// CompleteCrawl marks a jurisdiction crawl successful.
func (l *Log) CompleteCrawl(ctx context.Context, crawlID string, bills int, artifact string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE crawls SET status = ?, completed_at = ?, bills = ?, artifact = ? WHERE id = ?`,
		StatusComplete, time.Now().UTC(), bills, artifact, crawlID,
	)
	return eris.Wrapf(err, "runlog: complete crawl %s", crawlID)
}

// FailCrawl marks a jurisdiction crawl failed with its error text.
func (l *Log) FailCrawl(ctx context.Context, crawlID, errMsg string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE crawls SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		StatusFailed, time.Now().UTC(), errMsg, crawlID,
	)
	return eris.Wrapf(err, "runlog: fail crawl %s", crawlID)
}

// LastRunStart returns the start time of the most recent completed run,
// or nil when no run has completed yet. The scheduler anchors its next
// fire time on this.
func (l *Log) LastRunStart(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := l.db.QueryRowContext(ctx,
		`SELECT started_at FROM runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`,
		StatusComplete,
	).Scan(&t)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "runlog: last run start")
	}
	return &t, nil
}

// ListRuns returns recorded runs, most recent first.
func (l *Log) ListRuns(ctx context.Context) ([]RunEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, status, started_at, completed_at, attempted, succeeded, failed, failed_states, total_bills
		 FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var completedAt sql.NullTime
		var failedStates string
		if err := rows.Scan(&e.ID, &e.Status, &e.StartedAt, &completedAt,
			&e.Attempted, &e.Succeeded, &e.Failed, &failedStates, &e.TotalBills); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		if failedStates != "" {
			e.FailedStates = strings.Split(failedStates, ",")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: iterate runs")
}

// ListCrawls returns the per-jurisdiction crawls of one run in start order.
func (l *Log) ListCrawls(ctx context.Context, runID string) ([]CrawlEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, state, status, bills, artifact, error, started_at, completed_at
		 FROM crawls WHERE run_id = ? ORDER BY started_at ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: list crawls for %s", runID)
	}
	defer rows.Close()

	var entries []CrawlEntry
	for rows.Next() {
		var e CrawlEntry
		var completedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.RunID, &e.State, &e.Status, &e.Bills,
			&e.Artifact, &e.Error, &e.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "runlog: scan crawl")
		}
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: iterate crawls")
}
