package recorder

import (
	"database/sql"
	"sort"
	"sync"
	"time"

	"HammerScanner/internal/logger"
	"HammerScanner/internal/model"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists scan-run aggregates to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL UNIQUE,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			mode        TEXT,
			scanned     INTEGER,
			signals     INTEGER,
			no_signal   INTEGER,
			skipped     INTEGER,
			notify_errs INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_skips (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			count  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_skips_run ON scan_skips(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

// RecordRun stores the run aggregates and its skip reasons in one transaction.
func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := rec.Summary
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO scan_runs
		(run_id, started_at, finished_at, mode, scanned, signals, no_signal, skipped, notify_errs)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		s.RunID, s.StartedAt.UnixMilli(), s.FinishedAt.UnixMilli(), s.Mode,
		s.Scanned, s.Signals, s.NoSignal, s.Skipped, s.NotifyErrs,
	); err != nil {
		return errors.Wrap(err, "insert scan run")
	}

	reasons := make([]string, 0, len(rec.SkipReasons))
	for reason := range rec.SkipReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		if _, err := tx.Exec(`INSERT INTO scan_skips (run_id, reason, count) VALUES (?,?,?)`,
			s.RunID, reason, rec.SkipReasons[reason]); err != nil {
			return errors.Wrap(err, "insert scan skip")
		}
	}
	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]model.ScanSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, started_at, finished_at, mode, scanned, signals, no_signal, skipped, notify_errs
		FROM scan_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query scan runs")
	}
	defer rows.Close()

	var out []model.ScanSummary
	for rows.Next() {
		var s model.ScanSummary
		var started, finished int64
		if err := rows.Scan(&s.RunID, &started, &finished, &s.Mode,
			&s.Scanned, &s.Signals, &s.NoSignal, &s.Skipped, &s.NotifyErrs); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		s.StartedAt = time.UnixMilli(started)
		s.FinishedAt = time.UnixMilli(finished)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Infof("closing sqlite recorder")
	return r.db.Close()
}
