package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/database"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
)

// ClaimRepository reads claim submissions. Submissions are stored as
// documents in a JSONB column and may be addressed by claim_id, id or _id.
type ClaimRepository struct {
	db *database.DB
}

// NewClaimRepository creates a new ClaimRepository.
func NewClaimRepository(db *database.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// FetchClaimByID retrieves the submission document of a claim.
func (r *ClaimRepository) FetchClaimByID(ctx context.Context, claimID string) (*claim.Submission, error) {
	query := `
		SELECT document
		FROM claims
		WHERE document->>'claim_id' = $1
		   OR document->>'id' = $1
		   OR document->>'_id' = $1
		LIMIT 1
	`

	var doc []byte
	err := r.db.QueryRow(ctx, query, claimID).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("claim", claimID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to get claim")
	}

	return decodeSubmission(claimID, doc)
}

func decodeSubmission(claimID string, doc []byte) (*claim.Submission, error) {
	sub := &claim.Submission{}
	if err := json.Unmarshal(doc, sub); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to decode claim document")
	}
	if sub.ClaimID == "" {
		sub.ClaimID = claimID
	}
	return sub, nil
}
