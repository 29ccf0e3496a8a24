package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-claims-evaluator/internal/database"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
)

// CheckpointRepository appends and reads per-stage claim snapshots.
type CheckpointRepository struct {
	db *database.DB
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(db *database.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Append inserts one checkpoint. Checkpoints are never updated.
func (r *CheckpointRepository) Append(ctx context.Context, cp *Checkpoint) error {
	query := `
		INSERT INTO claim_evaluation_checkpoints
		    (claim_id, run_id, stage, decision, record)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at
	`

	err := r.db.QueryRow(ctx, query,
		cp.ClaimID,
		cp.RunID,
		cp.Stage,
		cp.Decision,
		[]byte(cp.Record),
	).Scan(&cp.ID, &cp.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append checkpoint")
	}
	return nil
}

// GetByClaimID returns every checkpoint of a claim ordered oldest-first.
func (r *CheckpointRepository) GetByClaimID(ctx context.Context, claimID string) ([]*Checkpoint, error) {
	query := `
		SELECT id::text, claim_id, run_id, stage, decision, record, created_at
		FROM claim_evaluation_checkpoints
		WHERE claim_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, claimID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get checkpoints")
	}
	defer rows.Close()

	return scanCheckpoints(rows)
}

func scanCheckpoints(rows pgx.Rows) ([]*Checkpoint, error) {
	var out []*Checkpoint
	for rows.Next() {
		cp := &Checkpoint{}
		var record []byte
		if err := rows.Scan(
			&cp.ID,
			&cp.ClaimID,
			&cp.RunID,
			&cp.Stage,
			&cp.Decision,
			&record,
			&cp.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan checkpoint")
		}
		cp.Record = record
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read checkpoints")
	}
	return out, nil
}
