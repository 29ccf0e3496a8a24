package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
)

// Document fields compared against the claimant's declaration.
var (
	proofNameKeys = []string{"name", "name_of_deceased"}
	proofDateKeys = []string{"date_of_death", "date_of_admission", "date"}
)

// ProofVerificationStage cross-checks the claimant's declared name and date
// against the facts extracted from the documents. It never rejects; an
// unverified proof routes the claim to investigation.
type ProofVerificationStage struct{}

// NewProofVerificationStage creates a new ProofVerificationStage.
func NewProofVerificationStage() *ProofVerificationStage {
	return &ProofVerificationStage{}
}

func (s *ProofVerificationStage) Name() claim.Step { return claim.StepProofVerification }

func (s *ProofVerificationStage) Run(_ context.Context, rec claim.Record) (claim.Update, error) {
	if rec.Documents.Skipped() {
		return claim.Update{
			ProofVerified: claim.Bool(false),
			Reasoning:     []string{"Warning: No document data available for proof verification."},
		}, nil
	}

	userName := strings.ToLower(strings.TrimSpace(rec.Submission.ClaimantName()))
	userDate := strings.TrimSpace(rec.Submission.DeclaredDate())

	verified := true
	var flags []string
	errorCount, successCount := 0, 0

	for _, kr := range rec.Documents.Ordered() {
		ext := kr.Result.Extraction
		if ext.Failed() {
			errorCount++
			flags = append(flags, fmt.Sprintf("Extraction Error in %s: %s", kr.Key, ext.Error))
			continue
		}
		successCount++

		docName := strings.ToLower(ext.Field(proofNameKeys...))
		if userName != "" && docName != "" && !looselyMatches(userName, docName) {
			verified = false
			flags = append(flags, fmt.Sprintf("Name Mismatch in %s: User says '%s', Doc says '%s'", kr.Key, userName, docName))
		}

		docDate := ext.Field(proofDateKeys...)
		if userDate != "" && docDate != "" && !looselyMatches(userDate, docDate) {
			verified = false
			flags = append(flags, fmt.Sprintf("Date Mismatch in %s: User says '%s', Doc says '%s'", kr.Key, userDate, docDate))
		}
	}

	reasoning := append([]string(nil), flags...)
	switch {
	case errorCount > 0:
		verified = false
		reasoning = append(reasoning, fmt.Sprintf("Proof Verification Failed: %d document(s) could not be read.", errorCount))
	case successCount == 0:
		verified = false
		reasoning = append(reasoning, "Proof Verification Failed: No documents were successfully processed.")
	case verified:
		reasoning = append(reasoning, fmt.Sprintf("Proof of Claim verified against %d document(s).", successCount))
	}

	upd := claim.Update{ProofVerified: claim.Bool(verified), Reasoning: reasoning}
	if !verified {
		upd = upd.WithDecision(claim.DecisionInvestigate)
	}
	return upd, nil
}

// looselyMatches is a bidirectional substring check.
func looselyMatches(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
