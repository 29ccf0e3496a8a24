package claim

// Decision is the outcome of an evaluation run. The zero value means no
// decision has been made yet.
type Decision string

const (
	DecisionUnset       Decision = ""
	DecisionApprove     Decision = "Approve"
	DecisionReject      Decision = "Reject"
	DecisionInvestigate Decision = "Investigate"
)

// Claim types with type-specific validation and payout rules.
const (
	TypeLife   = "life"
	TypeCar    = "car"
	TypeHealth = "health"
)

// Extraction statuses.
const (
	ExtractionCompleted = "completed"
	ExtractionSkipped   = "skipped"
)

// FraudStatus values.
const (
	FraudClear       = "Clear"
	FraudInvestigate = "Investigate"
)

// Record is the claim state threaded through the evaluation pipeline. Stages
// never mutate it; they return an Update that the executor merges.
type Record struct {
	ClaimID          string              `json:"claim_id"`
	PolicyID         string              `json:"policy_id"`
	Submission       *Submission         `json:"fnol_data,omitempty"`
	Policy           *PolicyRecord       `json:"policy_sql_data,omitempty"`
	Documents        *DocumentExtraction `json:"document_data,omitempty"`
	ProofVerified    *bool               `json:"proof_verified,omitempty"`
	Coverage         *Coverage           `json:"coverage_data,omitempty"`
	Fraud            *FraudAssessment    `json:"fraud_risk,omitempty"`
	Damage           *DamageAssessment   `json:"damage_assessment,omitempty"`
	SettlementAmount float64             `json:"settlement_amount"`
	Decision         Decision            `json:"decision,omitempty"`
	Reasoning        []string            `json:"reasoning"`
	CurrentStep      Step                `json:"current_step,omitempty"`
}

// NewRecord creates the initial record for an incoming claim request.
// submission may be nil, in which case validation fetches it by claim id.
func NewRecord(claimID, policyID string, submission *Submission) Record {
	return Record{
		ClaimID:    claimID,
		PolicyID:   policyID,
		Submission: submission,
		Reasoning:  []string{},
	}
}

// PolicyRecord is the relational policy store snapshot.
type PolicyRecord struct {
	ID           string   `json:"id"`
	PolicyNumber string   `json:"policyNumber"`
	Status       string   `json:"status"`
	Type         string   `json:"type,omitempty"`
	HolderName   string   `json:"holderName,omitempty"`
	Coverage     *float64 `json:"coverage,omitempty"`
	SumAssured   *float64 `json:"sumAssured,omitempty"`
}

// IsActive reports whether the policy is in force.
func (p *PolicyRecord) IsActive() bool {
	return p != nil && p.Status == "Active"
}

// Coverage is the applicability and limits of the policy for this claim.
type Coverage struct {
	IsActive           bool    `json:"is_active"`
	CoversIncidentType bool    `json:"covers_incident_type"`
	Deductible         float64 `json:"deductible"`
	Limit              float64 `json:"coverage_limit"`
}

// FraudAssessment is the additive risk score and its flags.
type FraudAssessment struct {
	Score  int      `json:"risk_score"`
	Flags  []string `json:"flags"`
	Status string   `json:"status"`
}

// DamageAssessment is the verified monetary amount of the claim.
type DamageAssessment struct {
	VerifiedAmount float64 `json:"verified_amount"`
	Notes          string  `json:"notes"`
}
