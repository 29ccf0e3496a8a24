package service

import (
	"context"
	"fmt"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
)

// PolicyVerificationStage confirms the policy exists in the policy store and
// is Active.
type PolicyVerificationStage struct {
	policies PolicyStore
	log      *logger.Logger
}

// NewPolicyVerificationStage creates a new PolicyVerificationStage.
func NewPolicyVerificationStage(policies PolicyStore, log *logger.Logger) *PolicyVerificationStage {
	return &PolicyVerificationStage{policies: policies, log: log}
}

func (s *PolicyVerificationStage) Name() claim.Step { return claim.StepPolicyVerification }

func (s *PolicyVerificationStage) Run(ctx context.Context, rec claim.Record) (claim.Update, error) {
	var policyNumber string
	if rec.Submission != nil {
		policyNumber = rec.Submission.PolicyNumber
	}
	if policyNumber == "" {
		return claim.Reject("Policy verification failed: Missing policyNumber in claim data."), nil
	}

	policy, err := s.policies.FetchPolicyByNumber(ctx, policyNumber)
	if errors.IsNotFound(err) {
		return claim.Reject(fmt.Sprintf("Policy verification failed: Policy %s not found in SQL database.", policyNumber)), nil
	}
	if err != nil {
		return claim.Update{}, err
	}

	s.log.Debug().
		Str("claim_id", rec.ClaimID).
		Str("policy_number", policyNumber).
		Str("status", policy.Status).
		Msg("Policy found")

	if !policy.IsActive() {
		upd := claim.Reject(fmt.Sprintf("Policy verification failed: Policy %s is in '%s' status (must be Active).",
			policyNumber, policy.Status))
		upd.Policy = policy
		return upd, nil
	}

	return claim.Update{
		Policy:    policy,
		Reasoning: []string{fmt.Sprintf("SQL Policy Verified: Found active policy %s.", policyNumber)},
	}, nil
}
