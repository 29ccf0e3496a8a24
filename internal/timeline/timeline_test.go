package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
)

var now = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func statuses(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Status
	}
	return out
}

func TestBuild_InProgress(t *testing.T) {
	rec := claim.NewRecord("CLM-1", "", &claim.Submission{ClaimType: claim.TypeCar})
	rec.CurrentStep = claim.StepDocumentExtraction

	steps := Build(rec, nil, now)

	require.Len(t, steps, 8)
	assert.Equal(t, []string{
		StatusCompleted, StatusCompleted, StatusCompleted,
		StatusPending, StatusPending, StatusPending, StatusPending, StatusPending,
	}, statuses(steps))
	assert.Equal(t, 1, steps[0].ID)
	assert.Equal(t, "Final Settlement", steps[7].Name)
	assert.Equal(t, "2024-06-01 10:30:00", steps[0].Timestamp)
}

func TestBuild_RejectedAtPolicy(t *testing.T) {
	rec := claim.NewRecord("CLM-1", "", &claim.Submission{ClaimType: claim.TypeCar})
	rec.Policy = &claim.PolicyRecord{ID: "7", PolicyNumber: "CAR-1", Status: "Lapsed"}
	rec.Decision = claim.DecisionReject
	rec.CurrentStep = claim.StepPolicyVerification

	steps := Build(rec, nil, now)

	assert.Equal(t, StatusCompleted, steps[0].Status)
	assert.Equal(t, StatusFailed, steps[1].Status)
	assert.Equal(t, "Policy 'Lapsed' Found", steps[1].Decision.Outcome)
	for _, s := range steps[2:] {
		assert.Equal(t, StatusSkipped, s.Status, s.Name)
	}
}

func TestBuild_InvestigationSkipsAssessment(t *testing.T) {
	rec := claim.NewRecord("CLM-FRAUD-1", "", &claim.Submission{ClaimType: claim.TypeLife})
	rec.Fraud = &claim.FraudAssessment{Score: 95, Status: claim.FraudInvestigate, Flags: []string{"Suspicious Activity Pattern"}}
	rec.Decision = claim.DecisionInvestigate
	rec.CurrentStep = claim.StepSettlement

	steps := Build(rec, nil, now)

	assert.Equal(t, StatusSkipped, steps[6].Status)
	assert.Equal(t, StatusCompleted, steps[7].Status)
	assert.Equal(t, "Investigate (Score: 95)", steps[5].Decision.Outcome)
	assert.Equal(t, "Process Result: Investigate", steps[7].Decision.Outcome)
}

func TestBuild_InvestigateBeforeSettlementIsNotFinal(t *testing.T) {
	rec := claim.NewRecord("CLM-1", "", &claim.Submission{ClaimType: claim.TypeLife})
	rec.ProofVerified = claim.Bool(false)
	rec.Decision = claim.DecisionInvestigate
	rec.CurrentStep = claim.StepProofVerification

	steps := Build(rec, nil, now)

	assert.Equal(t, StatusPending, steps[7].Status)
	assert.Equal(t, "Process Result: Processing", steps[7].Decision.Outcome)
	assert.NotContains(t, steps[7].Decision.Reasoning, "workflow is complete")

	rec.CurrentStep = claim.StepSettlement
	steps = Build(rec, nil, now)
	assert.Equal(t, "Process Result: Investigate", steps[7].Decision.Outcome)
	assert.Contains(t, steps[7].Decision.Reasoning, "'INVESTIGATE'")
}

func TestBuild_PreservesHumanCompletion(t *testing.T) {
	rec := claim.NewRecord("CLM-1", "", &claim.Submission{ClaimType: claim.TypeCar})
	rec.CurrentStep = claim.StepValidation

	existing := []Step{
		{Name: "Proof Verification", Status: StatusCompleted, CompletedBy: CompletedByHuman, AdminNotes: "Checked originals", CompletedAt: "2024-05-30"},
		{ID: 8, Status: StatusCompleted, CompletedBy: CompletedByHuman},
		{Name: "Fraud Check", Status: StatusCompleted, CompletedBy: "agent"},
	}

	steps := Build(rec, existing, now)

	assert.Equal(t, StatusCompleted, steps[3].Status)
	assert.Equal(t, "Checked originals", steps[3].AdminNotes)
	assert.Equal(t, CompletedByHuman, steps[3].CompletedBy)
	assert.Equal(t, StatusCompleted, steps[7].Status)
	assert.Equal(t, StatusPending, steps[5].Status, "only human completions are kept")
}

func TestBuild_ApprovedSettlement(t *testing.T) {
	rec := claim.NewRecord("CLM-1", "", &claim.Submission{ClaimType: claim.TypeLife})
	rec.Decision = claim.DecisionApprove
	rec.SettlementAmount = 1000000
	rec.Damage = &claim.DamageAssessment{VerifiedAmount: 1000000, Notes: "Life insurance: Sum Assured applied."}
	rec.CurrentStep = claim.StepSettlement

	steps := Build(rec, nil, now)

	for _, s := range steps {
		assert.Equal(t, StatusCompleted, s.Status, s.Name)
	}
	assert.Equal(t, "Assessed Value: ₹1,000,000.00", steps[6].Decision.Outcome)
	assert.Contains(t, steps[7].Decision.Reasoning, "'APPROVE'")
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "₹0.00", Currency(0))
	assert.Equal(t, "₹45,000.00", Currency(45000))
	assert.Equal(t, "₹1,234.50", Currency(1234.5))
}
