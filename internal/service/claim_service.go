package service

import (
	"context"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
	"github.com/pesio-ai/be-claims-evaluator/internal/repository"
)

// ClaimService handles claim evaluation requests.
type ClaimService struct {
	pipeline    *Pipeline
	checkpoints CheckpointStore
	log         *logger.Logger
}

// NewClaimService creates a new ClaimService. checkpoints may be nil.
func NewClaimService(pipeline *Pipeline, checkpoints CheckpointStore, log *logger.Logger) *ClaimService {
	return &ClaimService{
		pipeline:    pipeline,
		checkpoints: checkpoints,
		log:         log,
	}
}

// SubmitClaimRequest is an evaluation request. Submission is optional; when
// absent it is fetched from the claim store.
type SubmitClaimRequest struct {
	ClaimID    string
	PolicyID   string
	Submission *claim.Submission
}

// SubmitClaimResult is the outcome of an evaluation run.
type SubmitClaimResult struct {
	Status           string         `json:"status"`
	ClaimID          string         `json:"claim_id"`
	Decision         claim.Decision `json:"decision"`
	SettlementAmount float64        `json:"settlement_amount"`
	Reasoning        []string       `json:"reasoning"`
	FullState        claim.Record   `json:"full_state"`
}

// Submit evaluates a claim. Rejections and investigations are normal results;
// the error return is reserved for invalid requests and unrecoverable faults.
func (s *ClaimService) Submit(ctx context.Context, req SubmitClaimRequest) (*SubmitClaimResult, error) {
	if req.ClaimID == "" {
		return nil, errors.InvalidInput("claim_id", "claim_id is required")
	}

	s.log.Info().Str("claim_id", req.ClaimID).Msg("Received claim for evaluation")

	rec, err := s.pipeline.Run(ctx, claim.NewRecord(req.ClaimID, req.PolicyID, req.Submission))
	if err != nil {
		s.log.Error().
			Err(err).
			Str("claim_id", req.ClaimID).
			Str("stack", errors.Stack(err)).
			Msg("Claim evaluation failed")
		return nil, err
	}

	return &SubmitClaimResult{
		Status:           "completed",
		ClaimID:          rec.ClaimID,
		Decision:         rec.Decision,
		SettlementAmount: rec.SettlementAmount,
		Reasoning:        rec.Reasoning,
		FullState:        rec,
	}, nil
}

// Checkpoints returns the per-stage history of a claim, oldest first.
func (s *ClaimService) Checkpoints(ctx context.Context, claimID string) ([]*repository.Checkpoint, error) {
	if claimID == "" {
		return nil, errors.InvalidInput("claim_id", "claim_id is required")
	}
	if s.checkpoints == nil {
		return nil, errors.New(errors.ErrCodeUnavailable, "checkpoint store is not configured")
	}
	return s.checkpoints.GetByClaimID(ctx, claimID)
}
