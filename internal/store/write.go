package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/resolve"
	"github.com/roach88/configured/internal/schema"
)

// Record is one persisted resolution.
type Record struct {
	ID         string
	RunID      string
	Seq        int64
	PlanHash   string
	Success    bool
	Config     ir.Object // nil when Success is false
	Violations []schema.Violation
	CreatedAt  time.Time
}

// recordID fingerprints the content of a resolution. created_at and seq are
// excluded so identical resolutions hash identically.
func recordID(res *resolve.Resolution) (string, error) {
	var cfg ir.Value = ir.Null{}
	if res.Config != nil {
		cfg = res.Config
	}
	return ir.Fingerprint(ir.DomainResolution, ir.Object{
		"run_id":     ir.String(res.RunID),
		"plan_hash":  ir.String(res.PlanHash),
		"config":     cfg,
		"violations": violationsValue(res.Violations),
	})
}

// WriteResolution records res. Returns the stored record and whether a new
// row was inserted.
//
// Uses ON CONFLICT(run_id) DO NOTHING for idempotency: writing a run ID that
// is already recorded returns the existing record and inserted=false.
//
// seq is assigned inside the transaction as one past the current maximum.
func (s *Store) WriteResolution(ctx context.Context, res *resolve.Resolution) (rec Record, inserted bool, err error) {
	if res == nil || res.RunID == "" {
		return Record{}, false, errors.New("write resolution: run ID is required")
	}

	id, err := recordID(res)
	if err != nil {
		return Record{}, false, fmt.Errorf("write resolution: %w", err)
	}
	configJSON, err := marshalConfig(res.Config)
	if err != nil {
		return Record{}, false, fmt.Errorf("write resolution: %w", err)
	}
	violationsJSON, err := marshalViolations(res.Violations)
	if err != nil {
		return Record{}, false, fmt.Errorf("write resolution: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, false, fmt.Errorf("write resolution: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM resolutions`).Scan(&seq); err != nil {
		return Record{}, false, fmt.Errorf("write resolution: next seq: %w", err)
	}

	createdAt := s.now().UTC()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO resolutions
		(id, run_id, seq, plan_hash, success, config, violations, record_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		id,
		res.RunID,
		seq,
		res.PlanHash,
		res.OK(),
		configJSON,
		violationsJSON,
		ir.RecordVersion,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, false, fmt.Errorf("write resolution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Record{}, false, fmt.Errorf("write resolution: rows affected: %w", err)
	}

	if affected == 0 {
		rec, err := scanRecord(tx.QueryRowContext(ctx, selectRecord+` WHERE run_id = ?`, res.RunID))
		if err != nil {
			return Record{}, false, fmt.Errorf("write resolution: read existing: %w", err)
		}
		return rec, false, nil
	}

	if err := tx.Commit(); err != nil {
		return Record{}, false, fmt.Errorf("write resolution: commit: %w", err)
	}

	return Record{
		ID:         id,
		RunID:      res.RunID,
		Seq:        seq,
		PlanHash:   res.PlanHash,
		Success:    res.OK(),
		Config:     res.Config,
		Violations: res.Violations,
		CreatedAt:  createdAt,
	}, true, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
