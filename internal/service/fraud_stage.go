package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/rules"
)

// FraudStage computes an additive risk score. It only writes the fraud
// assessment; routing reads its status.
type FraudStage struct {
	rules *rules.Rulebook
}

// NewFraudStage creates a new FraudStage.
func NewFraudStage(rb *rules.Rulebook) *FraudStage {
	return &FraudStage{rules: rb}
}

func (s *FraudStage) Name() claim.Step { return claim.StepFraudCheck }

func (s *FraudStage) Run(_ context.Context, rec claim.Record) (claim.Update, error) {
	r := s.rules.Fraud
	score := r.BaseScore
	flags := []string{}

	amount := claimAmount(rec)
	if amount > r.HighValueThreshold {
		score += r.HighValuePenalty
		flags = append(flags, fmt.Sprintf("High Value Claim (%.2f)", amount))
	}

	// The marker replaces the score; document penalties still add on top.
	if strings.Contains(rec.ClaimID, r.Marker) {
		score = r.MarkerScore
		flags = append(flags, "Suspicious Activity Pattern")
	}

	for _, kr := range rec.Documents.Ordered() {
		ext := kr.Result.Extraction
		switch {
		case ext.Failed():
			score += r.ExtractionErrorPenalty
			flags = append(flags, fmt.Sprintf("Incomplete Document Data (%s)", kr.Key))
		case ext.ConfidenceOrDefault() < r.LowConfidenceThreshold:
			score += r.LowConfidencePenalty
			flags = append(flags, fmt.Sprintf("Low Confidence Extraction (%s)", kr.Key))
		}
	}

	status := claim.FraudClear
	if score > r.InvestigateAbove {
		status = claim.FraudInvestigate
	}

	summary := "No flags"
	if len(flags) > 0 {
		summary = strings.Join(flags, ", ")
	}

	return claim.Update{
		Fraud:     &claim.FraudAssessment{Score: score, Flags: flags, Status: status},
		Reasoning: []string{fmt.Sprintf("Fraud Risk Score: %d (%s)", score, summary)},
	}, nil
}

// claimAmount is the best-known claim amount: the verified damage amount when
// present, else the claimant's estimate.
func claimAmount(rec claim.Record) float64 {
	if rec.Damage != nil && rec.Damage.VerifiedAmount > 0 {
		return rec.Damage.VerifiedAmount
	}
	if rec.Submission != nil {
		return rec.Submission.EstimatedAmount.Float()
	}
	return 0
}
