// Package history records finished batches in a SQLite ledger.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"squish/internal/processor"
)

// EnvPath overrides the default database location.
const EnvPath = "SQUISH_HISTORY_DB"

const defaultPath = "./squish-history.db"

// ErrRunNotFound is returned by Outcomes for an unknown run id.
var ErrRunNotFound = errors.New("history: run not found")

// DefaultPath returns $SQUISH_HISTORY_DB, or ./squish-history.db.
func DefaultPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return defaultPath
}

type Store struct {
	db *sql.DB
}

// Run is one recorded batch.
type Run struct {
	ID                int64
	Started           time.Time
	Finished          time.Time
	TargetBytes       int64
	OutputFormat      string
	Naming            string
	MaxSearchAttempts int
	OutputDir         string
	Summary           processor.Summary
	Cancelled         bool
}

// Outcome is one recorded job of a run.
type Outcome struct {
	Index         int
	RelPath       string
	OutputPath    string
	Status        string
	Format        string
	OriginalBytes int64
	FinalBytes    int64
	Param         int
	HasParam      bool
	Method        int
	Attempts      int
	TargetMet     bool
	ErrorKind     string
	Error         string
	Elapsed       time.Duration
}

// Open opens (creating if needed) the ledger at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SaveReport stores r as one run with its outcomes and returns the run id.
func (s *Store) SaveReport(ctx context.Context, r processor.BatchReport) (int64, error) {
	var runID int64
	err := runInTransaction(ctx, s.db, func(ctx context.Context) error {
		exec := getExecutor(ctx, s.db)
		sum := r.Summary
		res, err := exec.ExecContext(ctx, `
			INSERT INTO runs (
				started_ms, finished_ms, target_bytes, output_format, naming, max_attempts,
				output_dir, total, copied, compressed, failed, skipped, target_missed,
				bytes_before, bytes_after, cancelled
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Started.UnixMilli(), r.Finished.UnixMilli(), r.Spec.TargetBytes,
			string(r.Spec.OutputFormat), r.Spec.Naming.String(), r.Spec.MaxSearchAttempts,
			r.OutputDir, sum.Total, sum.Copied, sum.Compressed, sum.Failed, sum.Skipped, sum.TargetMissed,
			sum.BytesBefore, sum.BytesAfter, r.Cancelled,
		)
		if err != nil {
			return fmt.Errorf("history: insert run: %w", err)
		}
		runID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		for _, o := range r.Outcomes {
			if err := saveOutcome(ctx, exec, runID, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

func saveOutcome(ctx context.Context, exec executor, runID int64, o processor.JobOutcome) error {
	var param, method sql.NullInt64
	if o.HasParam {
		param = sql.NullInt64{Int64: int64(o.Param), Valid: true}
	}
	if o.Method >= 0 {
		method = sql.NullInt64{Int64: int64(o.Method), Valid: true}
	}
	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}

	_, err := exec.ExecContext(ctx, `
		INSERT INTO outcomes (
			run_id, idx, rel_path, output_path, status, format, original_bytes,
			final_bytes, param, method, attempts, target_met, error_kind, error, elapsed_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Index, o.RelPath, o.OutputPath, o.Status.String(), string(o.Format),
		o.OriginalBytes, o.FinalBytes, param, method, o.Attempts, o.TargetMet,
		o.ErrorKind, errText, o.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("history: insert outcome %d: %w", o.Index, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_ms, finished_ms, target_bytes, output_format, naming, max_attempts,
			output_dir, total, copied, compressed, failed, skipped, target_missed,
			bytes_before, bytes_after, cancelled
		FROM runs
		ORDER BY started_ms DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := getExecutor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		sum := &r.Summary
		if err := rows.Scan(
			&r.ID, &started, &finished, &r.TargetBytes, &r.OutputFormat, &r.Naming,
			&r.MaxSearchAttempts, &r.OutputDir, &sum.Total, &sum.Copied, &sum.Compressed,
			&sum.Failed, &sum.Skipped, &sum.TargetMissed, &sum.BytesBefore, &sum.BytesAfter, &r.Cancelled,
		); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Started = time.UnixMilli(started)
		r.Finished = time.UnixMilli(finished)
		sum.Succeeded = sum.Copied + sum.Compressed
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outcomes returns the recorded jobs of a run in input order.
func (s *Store) Outcomes(ctx context.Context, runID int64) ([]Outcome, error) {
	exec := getExecutor(ctx, s.db)

	var exists int
	err := exec.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("history: look up run %d: %w", runID, err)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT idx, rel_path, output_path, status, format, original_bytes, final_bytes,
			param, method, attempts, target_met, error_kind, error, elapsed_ms
		FROM outcomes
		WHERE run_id = ?
		ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: list outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var param, method sql.NullInt64
		var elapsedMS int64
		if err := rows.Scan(
			&o.Index, &o.RelPath, &o.OutputPath, &o.Status, &o.Format, &o.OriginalBytes,
			&o.FinalBytes, &param, &method, &o.Attempts, &o.TargetMet, &o.ErrorKind,
			&o.Error, &elapsedMS,
		); err != nil {
			return nil, fmt.Errorf("history: scan outcome: %w", err)
		}
		o.Param, o.HasParam = int(param.Int64), param.Valid
		o.Method = -1
		if method.Valid {
			o.Method = int(method.Int64)
		}
		o.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}
