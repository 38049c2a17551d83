// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/icvial/internal/ports/secondary"
)

// sqliteTimeLayout matches the CURRENT_TIMESTAMP format used by SQLite.
const sqliteTimeLayout = "2006-01-02 15:04:05"

const runColumns = "id, logfile, depth_top, depth_bot, nlogged, first_vial, last_vial, nfilled, merge_count, policy, output_path, metadata_path, created_at"

// RunRepository implements secondary.RunRepository with SQLite.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create persists a new run together with its missed vials.
func (r *RunRepository) Create(ctx context.Context, run *secondary.RunRecord) error {
	policy := "prompt"
	if run.Policy != "" {
		policy = run.Policy
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if run.CreatedAt != "" {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			run.ID, run.Logfile, run.DepthTop, run.DepthBot, run.NLogged, run.FirstVial, run.LastVial, run.NFilled,
			run.MergeCount, policy, run.OutputPath, run.MetadataPath, run.CreatedAt,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO runs (id, logfile, depth_top, depth_bot, nlogged, first_vial, last_vial, nfilled, merge_count, policy, output_path, metadata_path) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			run.ID, run.Logfile, run.DepthTop, run.DepthBot, run.NLogged, run.FirstVial, run.LastVial, run.NFilled,
			run.MergeCount, policy, run.OutputPath, run.MetadataPath,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	for _, v := range run.MissedVials {
		if _, err := tx.ExecContext(ctx, "INSERT INTO run_missed_vials (run_id, vial) VALUES (?, ?)", run.ID, v); err != nil {
			return fmt.Errorf("failed to record missed vial %d: %w", v, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*secondary.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)

	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if record.MissedVials, err = r.missedVials(ctx, record.ID); err != nil {
		return nil, err
	}
	return record, nil
}

// List retrieves runs matching the given filters, newest first.
func (r *RunRepository) List(ctx context.Context, filters secondary.RunFilters) ([]*secondary.RunRecord, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE 1=1"
	args := []any{}

	if filters.Logfile != "" {
		query += " AND logfile = ?"
		args = append(args, filters.Logfile)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*secondary.RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	rows.Close()

	for _, record := range runs {
		if record.MissedVials, err = r.missedVials(ctx, record.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// DeleteOlderThan removes runs created before cutoff. Missed vials cascade.
func (r *RunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM runs WHERE created_at < ?",
		cutoff.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return int(n), nil
}

func (r *RunRepository) missedVials(ctx context.Context, runID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT vial FROM run_missed_vials WHERE run_id = ? ORDER BY vial", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load missed vials: %w", err)
	}
	defer rows.Close()

	var vials []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan missed vial: %w", err)
		}
		vials = append(vials, v)
	}
	return vials, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*secondary.RunRecord, error) {
	var createdAt time.Time

	record := &secondary.RunRecord{}
	err := s.Scan(&record.ID, &record.Logfile, &record.DepthTop, &record.DepthBot, &record.NLogged,
		&record.FirstVial, &record.LastVial, &record.NFilled, &record.MergeCount, &record.Policy,
		&record.OutputPath, &record.MetadataPath, &createdAt)
	if err != nil {
		return nil, err
	}

	record.CreatedAt = createdAt.Format(time.RFC3339)
	return record, nil
}

var _ secondary.RunRepository = (*RunRepository)(nil)
