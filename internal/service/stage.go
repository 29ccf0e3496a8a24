package service

import (
	"context"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/repository"
)

// Stage is one step of claim evaluation. Run must not mutate rec; it returns
// the fields to merge. Business outcomes (rejection, investigation) are
// expressed through Update.Decision. A non-nil error means an unrecoverable
// fault and aborts the run.
type Stage interface {
	Name() claim.Step
	Run(ctx context.Context, rec claim.Record) (claim.Update, error)
}

// ClaimStore looks up claim submissions. A missing claim is reported as a
// coded NotFound error.
type ClaimStore interface {
	FetchClaimByID(ctx context.Context, claimID string) (*claim.Submission, error)
}

// PolicyStore looks up policies by policy number. A missing policy is
// reported as a coded NotFound error.
type PolicyStore interface {
	FetchPolicyByNumber(ctx context.Context, policyNumber string) (*claim.PolicyRecord, error)
}

// Extractor reads structured fields from one document.
type Extractor interface {
	Extract(ctx context.Context, documentURL, categoryHint string) (*claim.Extraction, error)
}

// CheckpointStore persists the record after every completed stage.
type CheckpointStore interface {
	Append(ctx context.Context, cp *repository.Checkpoint) error
	GetByClaimID(ctx context.Context, claimID string) ([]*repository.Checkpoint, error)
}

// StateSyncer receives the merged record after every stage. Implementations
// are best-effort: they log their own failures and never affect the run.
type StateSyncer interface {
	SyncState(ctx context.Context, runID string, step claim.Step, rec claim.Record)
}
