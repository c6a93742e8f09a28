package store

import (
	"context"
	"fmt"
	"time"
)

const selectRecord = `
		SELECT id, run_id, seq, plan_hash, success, config, violations, created_at
		FROM resolutions`

// ReadResolution retrieves the record for a run ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadResolution(ctx context.Context, runID string) (Record, error) {
	return scanRecord(s.db.QueryRowContext(ctx, selectRecord+` WHERE run_id = ?`, runID))
}

// ListOptions filters ListResolutions.
type ListOptions struct {
	PlanHash string // only records for this plan; empty means all
	Failed   bool   // only failed resolutions
	Limit    int    // most recent N records, still in seq order; 0 means all
}

// ListResolutions returns records with deterministic ordering:
// ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListResolutions(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := selectRecord + ` WHERE 1 = 1`
	var args []any
	if opts.PlanHash != "" {
		query += ` AND plan_hash = ?`
		args = append(args, opts.PlanHash)
	}
	if opts.Failed {
		query += ` AND success = 0`
	}
	if opts.Limit > 0 {
		// Take the newest N, then restore ascending order.
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC, id DESC LIMIT ?)`
		args = append(args, opts.Limit)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}

	return records, nil
}

// scanRecord scans one row selected with selectRecord.
func scanRecord(row rowScanner) (Record, error) {
	var (
		rec            Record
		configJSON     string
		violationsJSON string
		createdAt      string
	)
	if err := row.Scan(&rec.ID, &rec.RunID, &rec.Seq, &rec.PlanHash, &rec.Success,
		&configJSON, &violationsJSON, &createdAt); err != nil {
		return Record{}, err
	}

	cfg, err := unmarshalConfig(configJSON)
	if err != nil {
		return Record{}, fmt.Errorf("scan resolution %s: %w", rec.RunID, err)
	}
	rec.Config = cfg

	violations, err := unmarshalViolations(violationsJSON)
	if err != nil {
		return Record{}, fmt.Errorf("scan resolution %s: %w", rec.RunID, err)
	}
	rec.Violations = violations

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("scan resolution %s: created_at: %w", rec.RunID, err)
	}
	rec.CreatedAt = t

	return rec, nil
}
