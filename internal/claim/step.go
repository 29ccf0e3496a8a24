package claim

// Step names a pipeline stage. Record.CurrentStep holds the last completed one.
type Step string

const (
	StepValidation         Step = "fnol_validation"
	StepPolicyVerification Step = "policy_verification"
	StepDocumentExtraction Step = "document_processing"
	StepProofVerification  Step = "proof_verification"
	StepCoverage           Step = "coverage_analysis"
	StepFraudCheck         Step = "fraud_check"
	StepDamageAssessment   Step = "damage_assessment"
	StepSettlement         Step = "settlement"
	StepEnd                Step = "end"
)
