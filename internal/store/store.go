// Package store handles SQLite persistence of generation runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/cpkgen/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run reference matches nothing.
var ErrRunNotFound = errors.New("run not found")

// Store wraps SQLite access for run data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			spec_type TEXT NOT NULL,
			lsl REAL,
			usl REAL,
			target_cpk REAL NOT NULL,
			sample_size INTEGER NOT NULL,
			subgroup_size INTEGER NOT NULL,
			decimals INTEGER NOT NULL,
			min_val REAL NOT NULL,
			max_val REAL NOT NULL,
			sigma_pct REAL NOT NULL,
			center_pct REAL NOT NULL,
			force_range INTEGER NOT NULL,
			auto_adjust INTEGER NOT NULL,
			max_attempts INTEGER NOT NULL,
			tolerance REAL NOT NULL,
			adj_factor REAL NOT NULL,
			seed INTEGER NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			achieved_cpk REAL,
			final_sigma REAL NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_values (
			run_id INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (run_id, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a run and its sample. A missing UUID is generated.
func (s *Store) InsertRun(ctx context.Context, rec model.RunRecord) (_ int64, err error) {
	if rec.UUID == "" {
		rec.UUID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	cfg := rec.Config
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (uuid, created_at, spec_type, lsl, usl, target_cpk, sample_size, subgroup_size, decimals,
			min_val, max_val, sigma_pct, center_pct, force_range, auto_adjust, max_attempts, tolerance, adj_factor, seed,
			status, attempts, achieved_cpk, final_sigma, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UUID,
		rec.CreatedAt.UTC().Format(timeLayout),
		string(cfg.Spec.Type),
		nullFloat(cfg.Spec.LSL),
		nullFloat(cfg.Spec.USL),
		cfg.TargetCpk,
		cfg.SampleSize,
		cfg.SubgroupSize,
		cfg.Decimals,
		cfg.MinVal,
		cfg.MaxVal,
		cfg.SigmaPercent,
		cfg.CenterPercent,
		cfg.ForceRange,
		cfg.AutoAdjust,
		cfg.MaxAttempts,
		cfg.Tolerance,
		cfg.AdjFactor,
		cfg.Seed,
		string(rec.Status),
		rec.Attempts,
		nullFloat(rec.AchievedCpk),
		rec.FinalSigma,
		rec.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rec.Values) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_values (run_id, idx, value) VALUES (?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, v := range rec.Values {
			if _, err := stmt.ExecContext(ctx, id, i, v); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const runColumns = `id, uuid, created_at, spec_type, lsl, usl, target_cpk, sample_size, subgroup_size, decimals,
	min_val, max_val, sigma_pct, center_pct, force_range, auto_adjust, max_attempts, tolerance, adj_factor, seed,
	status, attempts, achieved_cpk, final_sigma, duration_ms`

// ListRuns returns runs (without values), oldest first, filtered by cfg.
func (s *Store) ListRuns(ctx context.Context, cfg model.HistoryConfig) ([]model.RunRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.SpecType != "" {
		clauses = append(clauses, "spec_type = ?")
		args = append(args, string(cfg.SpecType))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT %s FROM runs WHERE %s ORDER BY created_at ASC, id ASC`,
		runColumns, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return runs, nil
}

// GetRun loads a run with its values. ref is a numeric id or a UUID prefix.
func (s *Store) GetRun(ctx context.Context, ref string) (model.RunRecord, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.RunRecord{}, ErrRunNotFound
	}
	var row *sql.Row
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		row = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM runs WHERE id = ?`, runColumns), id)
	} else {
		if !isUUIDPrefix(ref) {
			return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, ref)
		}
		row = s.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT %s FROM runs WHERE uuid LIKE ? ORDER BY id DESC LIMIT 1`, runColumns),
			strings.ToLower(ref)+"%")
	}
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}
	if err != nil {
		return model.RunRecord{}, err
	}
	values, err := s.runValues(ctx, rec.ID)
	if err != nil {
		return model.RunRecord{}, err
	}
	rec.Values = values
	return rec, nil
}

func (s *Store) runValues(ctx context.Context, runID int64) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM run_values WHERE run_id = ? ORDER BY idx ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// isUUIDPrefix reports whether ref only holds hex digits and dashes, so it
// carries no LIKE wildcards.
func isUUIDPrefix(ref string) bool {
	for _, r := range ref {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '-':
		default:
			return false
		}
	}
	return true
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (model.RunRecord, error) {
	var (
		rec       model.RunRecord
		createdAt string
		specType  string
		status    string
		lsl, usl  sql.NullFloat64
		achieved  sql.NullFloat64
	)
	cfg := &rec.Config
	err := sc.Scan(&rec.ID, &rec.UUID, &createdAt, &specType, &lsl, &usl, &cfg.TargetCpk, &cfg.SampleSize,
		&cfg.SubgroupSize, &cfg.Decimals, &cfg.MinVal, &cfg.MaxVal, &cfg.SigmaPercent, &cfg.CenterPercent,
		&cfg.ForceRange, &cfg.AutoAdjust, &cfg.MaxAttempts, &cfg.Tolerance, &cfg.AdjFactor, &cfg.Seed,
		&status, &rec.Attempts, &achieved, &rec.FinalSigma, &rec.DurationMs)
	if err != nil {
		return model.RunRecord{}, err
	}
	parsed, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.RunRecord{}, err
	}
	rec.CreatedAt = parsed
	rec.Status = model.Status(status)
	cfg.Spec = model.NewSpecification(model.SpecType(specType), floatPtr(lsl), floatPtr(usl))
	rec.AchievedCpk = floatPtr(achieved)
	return rec, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
