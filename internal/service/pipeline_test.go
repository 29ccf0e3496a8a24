package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
	"github.com/pesio-ai/be-claims-evaluator/internal/rules"
)

type harness struct {
	claims      *fakeClaimStore
	policies    *fakePolicyStore
	extractor   *fakeExtractor
	checkpoints *memCheckpoints
	syncer      *recordingSyncer
	pipeline    *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rb := rules.Default()
	log := logger.Nop()

	h := &harness{
		claims: &fakeClaimStore{subs: map[string]*claim.Submission{}},
		policies: &fakePolicyStore{policies: map[string]*claim.PolicyRecord{
			"LIFE-001": {ID: "1", PolicyNumber: "LIFE-001", Status: "Active", Type: claim.TypeLife},
			"CAR-001":  {ID: "2", PolicyNumber: "CAR-001", Status: "Active", Type: claim.TypeCar, Coverage: claim.Float64(300000)},
		}},
		extractor:   &fakeExtractor{results: map[string]*claim.Extraction{}},
		checkpoints: &memCheckpoints{},
		syncer:      &recordingSyncer{},
	}
	for url, ext := range lifeExtractions() {
		h.extractor.results[url] = ext
	}
	for url, ext := range carExtractions() {
		h.extractor.results[url] = ext
	}

	stages := Stages{
		Validation: NewValidationStage(h.claims, rb, log),
		Policy:     NewPolicyVerificationStage(h.policies, log),
		Extraction: NewExtractionStage(h.extractor, 4, time.Second, log),
		Proof:      NewProofVerificationStage(),
		Coverage:   NewCoverageStage(rb),
		Fraud:      NewFraudStage(rb),
		Assessment: NewDamageAssessmentStage(rb),
		Settlement: NewSettlementStage(rb),
	}
	h.pipeline = NewPipeline(stages, h.checkpoints, []StateSyncer{h.syncer},
		PipelineConfig{StageTimeout: 5 * time.Second, ExtractionTimeout: 10 * time.Second}, log)
	return h
}

func (h *harness) run(t *testing.T, claimID string, sub *claim.Submission) claim.Record {
	t.Helper()
	rec, err := h.pipeline.Run(context.Background(), claim.NewRecord(claimID, "", sub))
	require.NoError(t, err)
	return rec
}

func TestNext(t *testing.T) {
	investigating := claim.Record{Fraud: &claim.FraudAssessment{Status: claim.FraudInvestigate}}
	flagged := claim.Record{Decision: claim.DecisionInvestigate}
	rejected := claim.Record{Decision: claim.DecisionReject}

	tests := []struct {
		step claim.Step
		rec  claim.Record
		want claim.Step
	}{
		{claim.StepValidation, claim.Record{}, claim.StepPolicyVerification},
		{claim.StepValidation, rejected, claim.StepEnd},
		{claim.StepPolicyVerification, claim.Record{}, claim.StepDocumentExtraction},
		{claim.StepPolicyVerification, rejected, claim.StepEnd},
		{claim.StepDocumentExtraction, claim.Record{}, claim.StepProofVerification},
		{claim.StepProofVerification, flagged, claim.StepCoverage},
		{claim.StepCoverage, claim.Record{}, claim.StepFraudCheck},
		{claim.StepCoverage, rejected, claim.StepEnd},
		{claim.StepFraudCheck, claim.Record{}, claim.StepDamageAssessment},
		{claim.StepFraudCheck, investigating, claim.StepSettlement},
		{claim.StepFraudCheck, flagged, claim.StepSettlement},
		{claim.StepDamageAssessment, claim.Record{}, claim.StepSettlement},
		{claim.StepSettlement, claim.Record{}, claim.StepEnd},
		{claim.StepEnd, claim.Record{}, claim.StepEnd},
	}
	for _, tt := range tests {
		t.Run(string(tt.step)+"->"+string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.step, tt.rec))
		})
	}
}

func TestPipeline_ScenarioA_MissingTypeFields(t *testing.T) {
	h := newHarness(t)
	sub := lifeSubmission()
	sub.DeathDetails.CauseOfDeath = ""

	rec := h.run(t, "CLM-A", sub)

	assert.Equal(t, claim.DecisionReject, rec.Decision)
	require.Len(t, rec.Reasoning, 1)
	assert.Contains(t, rec.Reasoning[0], "death_details.cause_of_death")
	assert.Equal(t, claim.StepValidation, rec.CurrentStep)
	assert.Empty(t, h.extractor.calls, "no later stage runs")
	assert.Equal(t, []claim.Step{claim.StepValidation}, h.syncer.steps)
}

func TestPipeline_ScenarioB_InactivePolicy(t *testing.T) {
	h := newHarness(t)
	h.policies.policies["CAR-001"].Status = "Lapsed"

	rec := h.run(t, "CLM-B", carSubmission())

	assert.Equal(t, claim.DecisionReject, rec.Decision)
	assert.Equal(t, 0.0, rec.SettlementAmount)
	require.Len(t, rec.Reasoning, 2)
	assert.Contains(t, rec.Reasoning[1], "'Lapsed' status")
	require.NotNil(t, rec.Policy)
	assert.Nil(t, rec.Documents)
	assert.Equal(t, claim.StepPolicyVerification, rec.CurrentStep)
	assert.Empty(t, h.extractor.calls)
}

func TestPipeline_ScenarioC_LifeApproved(t *testing.T) {
	h := newHarness(t)

	rec := h.run(t, "CLM-C", lifeSubmission())

	assert.Equal(t, claim.DecisionApprove, rec.Decision)
	assert.Equal(t, 1000000.0, rec.SettlementAmount)
	require.NotNil(t, rec.ProofVerified)
	assert.True(t, *rec.ProofVerified)
	assert.Equal(t, 0.0, rec.Coverage.Deductible)
	assert.Equal(t, claim.StepSettlement, rec.CurrentStep)
	assert.Equal(t, []claim.Step{
		claim.StepValidation,
		claim.StepPolicyVerification,
		claim.StepDocumentExtraction,
		claim.StepProofVerification,
		claim.StepCoverage,
		claim.StepFraudCheck,
		claim.StepDamageAssessment,
		claim.StepSettlement,
	}, h.syncer.steps)
	assert.Len(t, h.checkpoints.cps, 8)
}

func TestPipeline_ScenarioD_FraudMarker(t *testing.T) {
	h := newHarness(t)

	rec := h.run(t, "CLM-FRAUD-D", lifeSubmission())

	require.NotNil(t, rec.Fraud)
	assert.Equal(t, 95, rec.Fraud.Score)
	assert.Equal(t, claim.FraudInvestigate, rec.Fraud.Status)
	assert.Equal(t, claim.DecisionInvestigate, rec.Decision)
	assert.Equal(t, 0.0, rec.SettlementAmount)
	assert.Nil(t, rec.Damage, "damage assessment is skipped")
	assert.NotContains(t, h.syncer.steps, claim.StepDamageAssessment)
}

func TestPipeline_ScenarioE_OneDocumentFails(t *testing.T) {
	h := newHarness(t)
	h.extractor.errs = map[string]error{
		"https://docs/bank.png": errors.New(errors.ErrCodeUnavailable, "vision service timeout"),
	}

	rec := h.run(t, "CLM-E", lifeSubmission())

	require.NotNil(t, rec.ProofVerified)
	assert.False(t, *rec.ProofVerified)
	assert.False(t, rec.Documents.Results["0_death-certificate"].Extraction.Failed())
	assert.True(t, rec.Documents.Results["1_bank-details"].Extraction.Failed())
	assert.Equal(t, claim.DecisionInvestigate, rec.Decision)
	assert.Equal(t, 0.0, rec.SettlementAmount)
	assert.Equal(t, 15, rec.Fraud.Score)
}

func TestPipeline_CarApproved(t *testing.T) {
	h := newHarness(t)

	rec := h.run(t, "CLM-CAR", carSubmission())

	assert.Equal(t, claim.DecisionApprove, rec.Decision)
	require.NotNil(t, rec.Damage)
	assert.Equal(t, 42000.0, rec.Damage.VerifiedAmount)
	assert.Equal(t, 37000.0, rec.SettlementAmount)
	assert.LessOrEqual(t, rec.SettlementAmount, rec.Coverage.Limit-rec.Coverage.Deductible)
}

func TestPipeline_NoDocumentsGoesToInvestigation(t *testing.T) {
	h := newHarness(t)
	h.claims.subs["CLM-EMPTY"] = &claim.Submission{
		UserID: "u", PolicyID: "p", PolicyNumber: "CAR-001", ClaimType: "travel", Status: "submitted",
		IncidentDetails: &claim.IncidentDetails{IncidentDate: "2024-01-01"},
	}

	rec := h.run(t, "CLM-EMPTY", nil)

	assert.Equal(t, claim.ExtractionSkipped, rec.Documents.Status)
	assert.False(t, *rec.ProofVerified)
	assert.Equal(t, claim.DecisionInvestigate, rec.Decision)
	assert.Equal(t, 0.0, rec.SettlementAmount)
}

func TestPipeline_ReasoningIsAppendOnly(t *testing.T) {
	h := newHarness(t)

	rec := h.run(t, "CLM-C", lifeSubmission())

	require.Len(t, h.checkpoints.cps, 8)
	assert.Equal(t, "Full schema for life claim validated successfully. All required fields present.", rec.Reasoning[0])
	assert.Equal(t, "SQL Policy Verified: Found active policy LIFE-001.", rec.Reasoning[1])
	assert.Contains(t, rec.Reasoning[len(rec.Reasoning)-1], "Settlement Approved.")
}

func TestPipeline_Idempotent(t *testing.T) {
	for _, id := range []string{"CLM-C", "CLM-FRAUD-1"} {
		h := newHarness(t)
		first := h.run(t, id, lifeSubmission())
		second := h.run(t, id, lifeSubmission())

		assert.Equal(t, first.Decision, second.Decision)
		assert.Equal(t, first.SettlementAmount, second.SettlementAmount)
		assert.Equal(t, first.Reasoning, second.Reasoning)
	}
}

func TestPipeline_DoesNotMutateInput(t *testing.T) {
	h := newHarness(t)
	sub := lifeSubmission()
	in := claim.NewRecord("CLM-C", "", sub)

	_, err := h.pipeline.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, in.Reasoning)
	assert.Equal(t, claim.DecisionUnset, in.Decision)
	assert.Empty(t, sub.IncidentDate)
}

func TestPipeline_StageFaultAborts(t *testing.T) {
	h := newHarness(t)
	h.policies.err = errors.New(errors.ErrCodeUnavailable, "policy store unreachable")

	rec, err := h.pipeline.Run(context.Background(), claim.NewRecord("CLM-1", "", lifeSubmission()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage policy_verification")
	assert.Equal(t, errors.ErrCodeUnavailable, errors.CodeOf(err))
	assert.Equal(t, claim.StepValidation, rec.CurrentStep, "state up to the last completed stage is kept")
	assert.Len(t, h.checkpoints.cps, 1)
}

func TestPipeline_CheckpointFailureIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.checkpoints.err = errors.New(errors.ErrCodeUnavailable, "db down")

	rec := h.run(t, "CLM-C", lifeSubmission())
	assert.Equal(t, claim.DecisionApprove, rec.Decision)
}

func TestPipeline_CancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline.Run(ctx, claim.NewRecord("CLM-1", "", lifeSubmission()))
	require.Error(t, err)
	assert.Empty(t, h.checkpoints.cps)
}

func TestClaimService_Submit(t *testing.T) {
	h := newHarness(t)
	svc := NewClaimService(h.pipeline, h.checkpoints, logger.Nop())

	res, err := svc.Submit(context.Background(), SubmitClaimRequest{ClaimID: "CLM-C", Submission: lifeSubmission()})
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, "CLM-C", res.ClaimID)
	assert.Equal(t, claim.DecisionApprove, res.Decision)
	assert.Equal(t, 1000000.0, res.SettlementAmount)
	assert.Equal(t, res.Reasoning, res.FullState.Reasoning)

	cps, err := svc.Checkpoints(context.Background(), "CLM-C")
	require.NoError(t, err)
	require.Len(t, cps, 8)
	assert.Equal(t, string(claim.StepValidation), cps[0].Stage)
	assert.Equal(t, string(claim.DecisionApprove), cps[7].Decision)
	assert.NotEmpty(t, cps[0].RunID)
}

func TestClaimService_Validation(t *testing.T) {
	h := newHarness(t)
	svc := NewClaimService(h.pipeline, nil, logger.Nop())

	_, err := svc.Submit(context.Background(), SubmitClaimRequest{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	_, err = svc.Checkpoints(context.Background(), "CLM-1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnavailable, errors.CodeOf(err))
}
