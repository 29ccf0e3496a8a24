package service

import (
	"context"
	"fmt"
	"math"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/rules"
)

// SettlementStage makes the terminal decision and computes the payout.
type SettlementStage struct {
	rules *rules.Rulebook
}

// NewSettlementStage creates a new SettlementStage.
func NewSettlementStage(rb *rules.Rulebook) *SettlementStage {
	return &SettlementStage{rules: rb}
}

func (s *SettlementStage) Name() claim.Step { return claim.StepSettlement }

func (s *SettlementStage) Run(_ context.Context, rec claim.Record) (claim.Update, error) {
	if rec.Fraud != nil && rec.Fraud.Status == claim.FraudInvestigate {
		return investigate("Claim flagged for fraud investigation."), nil
	}
	if rec.ProofVerified == nil || !*rec.ProofVerified {
		return investigate("Claim requires manual review: Proof of Claim could not be verified automatically from documents."), nil
	}
	if reason := s.extractionGate(rec.Documents); reason != "" {
		return investigate(reason), nil
	}

	var verified, limit, deductible float64
	if rec.Damage != nil {
		verified = rec.Damage.VerifiedAmount
	}
	if rec.Coverage != nil {
		limit = rec.Coverage.Limit
		deductible = rec.Coverage.Deductible
	}

	gross := math.Min(verified, limit)
	payable := math.Max(0, gross-deductible)

	return claim.Update{
		SettlementAmount: claim.Float64(payable),
		Reasoning: []string{fmt.Sprintf("Settlement Approved. Gross: %.2f, Deductible: %.2f, Final Payout: %.2f",
			gross, deductible, payable)},
	}.WithDecision(claim.DecisionApprove), nil
}

// extractionGate returns a reason when any extraction errored or fell below
// the settlement confidence floor.
func (s *SettlementStage) extractionGate(docs *claim.DocumentExtraction) string {
	floor := s.rules.Settlement.MinConfidence
	for _, kr := range docs.Ordered() {
		ext := kr.Result.Extraction
		if ext.Failed() {
			return fmt.Sprintf("Claim requires manual review: Extraction error in %s: %s", kr.Key, ext.Error)
		}
		if c := ext.ConfidenceOrDefault(); c < floor {
			return fmt.Sprintf("Claim requires manual review: Low extraction confidence (%.2f) in %s.", c, kr.Key)
		}
	}
	return ""
}

func investigate(reason string) claim.Update {
	return claim.Update{
		SettlementAmount: claim.Float64(0),
		Reasoning:        []string{reason},
	}.WithDecision(claim.DecisionInvestigate)
}
