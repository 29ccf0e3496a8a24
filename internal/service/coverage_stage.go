package service

import (
	"context"
	"fmt"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/rules"
)

// CoverageStage determines whether the policy covers the claim and with which
// limit and deductible.
type CoverageStage struct {
	rules *rules.Rulebook
}

// NewCoverageStage creates a new CoverageStage.
func NewCoverageStage(rb *rules.Rulebook) *CoverageStage {
	return &CoverageStage{rules: rb}
}

func (s *CoverageStage) Name() claim.Step { return claim.StepCoverage }

func (s *CoverageStage) Run(_ context.Context, rec claim.Record) (claim.Update, error) {
	var claimType string
	if rec.Submission != nil {
		claimType = rec.Submission.ClaimType
	}
	r := s.rules.Coverage

	deductible := r.Deductible
	if claimType == claim.TypeLife {
		deductible = r.LifeDeductible
	}

	cov := &claim.Coverage{IsActive: true, CoversIncidentType: true, Deductible: deductible}
	policyRef := rec.PolicyID

	if p := rec.Policy; p != nil {
		policyRef = p.PolicyNumber
		cov.CoversIncidentType = p.IsActive()
		cov.Limit = r.DefaultLimit
		if p.Coverage != nil {
			cov.Limit = *p.Coverage
		}
	} else {
		cov.Limit = r.FallbackLimit
		if claimType == claim.TypeLife {
			cov.Limit = r.FallbackLifeLimit
		}
	}

	if !cov.CoversIncidentType {
		upd := claim.Reject(fmt.Sprintf("Policy %s does not cover %s claim status.", policyRef, claimType))
		upd.Coverage = cov
		return upd, nil
	}

	return claim.Update{
		Coverage:  cov,
		Reasoning: []string{fmt.Sprintf("Policy covers %s insurance up to %.2f", claimType, cov.Limit)},
	}, nil
}
