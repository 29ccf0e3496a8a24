package service

import (
	"context"
	"fmt"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/rules"
)

var documentAmountKeys = []string{"total_amount", "bill_amount", "amount"}

// DamageAssessmentStage computes the verified monetary amount of the claim.
type DamageAssessmentStage struct {
	rules *rules.Rulebook
}

// NewDamageAssessmentStage creates a new DamageAssessmentStage.
func NewDamageAssessmentStage(rb *rules.Rulebook) *DamageAssessmentStage {
	return &DamageAssessmentStage{rules: rb}
}

func (s *DamageAssessmentStage) Name() claim.Step { return claim.StepDamageAssessment }

func (s *DamageAssessmentStage) Run(_ context.Context, rec claim.Record) (claim.Update, error) {
	r := s.rules.Assessment
	var dmg claim.DamageAssessment

	switch {
	case rec.Submission != nil && rec.Submission.ClaimType == claim.TypeLife:
		dmg.VerifiedAmount = r.DefaultSumAssured
		if rec.Policy != nil && rec.Policy.SumAssured != nil {
			dmg.VerifiedAmount = *rec.Policy.SumAssured
		}
		dmg.Notes = "Life insurance: Sum Assured applied."

	default:
		if amount, key, ok := largestDocumentAmount(rec.Documents); ok {
			dmg.VerifiedAmount = amount
			dmg.Notes = fmt.Sprintf("Amount taken from extracted document %s.", key)
			break
		}
		estimate := r.DefaultEstimate
		if rec.Submission != nil && rec.Submission.EstimatedAmount != nil {
			estimate = rec.Submission.EstimatedAmount.Float()
		}
		dmg.VerifiedAmount = estimate * (1 - r.DepreciationRate)
		dmg.Notes = fmt.Sprintf("Applied standard %v%% depreciation on parts.", r.DepreciationRate*100)
	}

	return claim.Update{
		Damage:    &dmg,
		Reasoning: []string{fmt.Sprintf("Damage Assessment: %s Verified amount %.2f.", dmg.Notes, dmg.VerifiedAmount)},
	}, nil
}

// largestDocumentAmount scans every successful extraction for amount fields
// and returns the maximum found.
func largestDocumentAmount(docs *claim.DocumentExtraction) (float64, string, bool) {
	var (
		best    float64
		bestKey string
		found   bool
	)
	for _, kr := range docs.Ordered() {
		ext := kr.Result.Extraction
		if ext.Failed() {
			continue
		}
		for _, k := range documentAmountKeys {
			v, ok := ext.Fields[k]
			if !ok {
				continue
			}
			if amount := claim.ParseCurrency(v); amount > 0 && amount > best {
				best, bestKey, found = amount, kr.Key, true
			}
		}
	}
	return best, bestKey, found
}
