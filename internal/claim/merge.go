package claim

// Update is the sparse output of a stage. Nil fields are left untouched by
// Merge; Reasoning is appended.
type Update struct {
	Submission       *Submission
	Policy           *PolicyRecord
	Documents        *DocumentExtraction
	ProofVerified    *bool
	Coverage         *Coverage
	Fraud            *FraudAssessment
	Damage           *DamageAssessment
	SettlementAmount *float64
	Decision         *Decision
	Reasoning        []string
}

// WithDecision returns u with its decision set to d.
func (u Update) WithDecision(d Decision) Update {
	u.Decision = &d
	return u
}

// Reject is the update a stage returns to end the run with a rejection.
func Reject(reason string) Update {
	return Update{Reasoning: []string{reason}}.WithDecision(DecisionReject)
}

// MergeReasoning concatenates the reasoning logs in execution order. The
// result never aliases either input.
func MergeReasoning(old, add []string) []string {
	out := make([]string, 0, len(old)+len(add))
	out = append(out, old...)
	return append(out, add...)
}

// Merge applies u to rec and returns the new record. rec is not modified.
// Document extraction results are write-once.
func Merge(rec Record, u Update) Record {
	next := rec
	if u.Submission != nil {
		next.Submission = u.Submission
	}
	if u.Policy != nil {
		next.Policy = u.Policy
	}
	if u.Documents != nil && rec.Documents == nil {
		next.Documents = u.Documents
	}
	if u.ProofVerified != nil {
		v := *u.ProofVerified
		next.ProofVerified = &v
	}
	if u.Coverage != nil {
		next.Coverage = u.Coverage
	}
	if u.Fraud != nil {
		next.Fraud = u.Fraud
	}
	if u.Damage != nil {
		next.Damage = u.Damage
	}
	if u.SettlementAmount != nil {
		next.SettlementAmount = *u.SettlementAmount
	}
	if u.Decision != nil {
		next.Decision = *u.Decision
	}
	next.Reasoning = MergeReasoning(rec.Reasoning, u.Reasoning)
	return next
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
