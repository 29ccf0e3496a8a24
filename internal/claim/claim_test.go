package claim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"float", 1234.5, 1234.5},
		{"int", 500, 500},
		{"int64", int64(42), 42},
		{"json number", json.Number("99.5"), 99.5},
		{"indian grouping", "1,00,000", 100000},
		{"rupee symbol", "₹ 50000", 50000},
		{"dollar", "$1000", 1000},
		{"decimals with separators", "12,345.67", 12345.67},
		{"surrounding whitespace", "  7500 ", 7500},
		{"garbage", "approx. ten thousand", 0},
		{"empty", "", 0},
		{"nil", nil, 0},
		{"nan string", "NaN", 0},
		{"unsupported type", []string{"1"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCurrency(tt.input))
		})
	}
}

func TestAmountUnmarshal(t *testing.T) {
	var s struct {
		A *Amount `json:"a"`
		B *Amount `json:"b"`
		C *Amount `json:"c"`
		D *Amount `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 120000, "b": "₹ 1,20,000", "c": "n/a"}`), &s))

	assert.Equal(t, 120000.0, s.A.Float())
	assert.Equal(t, 120000.0, s.B.Float())
	assert.Equal(t, 0.0, s.C.Float())
	assert.Nil(t, s.D)
	assert.Equal(t, 0.0, s.D.Float())
}

func TestMergeReasoningConcatenates(t *testing.T) {
	old := []string{"a", "b"}
	add := []string{"b", "c"}

	merged := MergeReasoning(old, add)

	assert.Equal(t, []string{"a", "b", "b", "c"}, merged)
	merged[0] = "changed"
	assert.Equal(t, "a", old[0], "merge must not alias the old log")
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	rec := NewRecord("C-1", "P-1", nil)
	rec.Reasoning = []string{"first"}

	next := Merge(rec, Update{
		Coverage:  &Coverage{IsActive: true, Limit: 100},
		Reasoning: []string{"second"},
	}.WithDecision(DecisionInvestigate))

	assert.Nil(t, rec.Coverage)
	assert.Equal(t, DecisionUnset, rec.Decision)
	assert.Equal(t, []string{"first"}, rec.Reasoning)

	assert.Equal(t, 100.0, next.Coverage.Limit)
	assert.Equal(t, DecisionInvestigate, next.Decision)
	assert.Equal(t, []string{"first", "second"}, next.Reasoning)
}

func TestMergeDocumentsWriteOnce(t *testing.T) {
	rec := NewRecord("C-1", "P-1", nil)
	first := &DocumentExtraction{Status: ExtractionCompleted, Results: map[string]DocumentResult{
		"0_death-certificate": {Index: 0, Category: "death-certificate"},
	}}
	rec = Merge(rec, Update{Documents: first})
	rec = Merge(rec, Update{Documents: &DocumentExtraction{Status: ExtractionSkipped}})

	assert.Same(t, first, rec.Documents)
}

func TestMergeDecisionCanBeOverridden(t *testing.T) {
	rec := Merge(NewRecord("C-1", "P-1", nil), Update{}.WithDecision(DecisionInvestigate))
	rec = Merge(rec, Update{SettlementAmount: Float64(10)}.WithDecision(DecisionApprove))

	assert.Equal(t, DecisionApprove, rec.Decision)
	assert.Equal(t, 10.0, rec.SettlementAmount)
}

func TestMergeLeavesUnsetFields(t *testing.T) {
	rec := NewRecord("C-1", "P-1", nil)
	rec.ProofVerified = Bool(true)
	rec.Decision = DecisionInvestigate

	next := Merge(rec, Update{Reasoning: []string{"note"}})

	require.NotNil(t, next.ProofVerified)
	assert.True(t, *next.ProofVerified)
	assert.Equal(t, DecisionInvestigate, next.Decision)
}

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "0_death-certificate", DocumentKey(0, "death-certificate"))
	assert.Equal(t, "3_unknown", DocumentKey(3, ""))
}

func TestOrderedUsesManifestIndex(t *testing.T) {
	d := &DocumentExtraction{Status: ExtractionCompleted, Results: map[string]DocumentResult{
		"10_bills":    {Index: 10},
		"2_claim":     {Index: 2},
		"0_discharge": {Index: 0},
	}}

	var keys []string
	for _, kr := range d.Ordered() {
		keys = append(keys, kr.Key)
	}
	assert.Equal(t, []string{"0_discharge", "2_claim", "10_bills"}, keys)
}

func TestExtractionHelpers(t *testing.T) {
	e := Extraction{Fields: map[string]any{"name": "", "name_of_deceased": "Ravi Kumar", "amount": 1200.0}}

	assert.Equal(t, "Ravi Kumar", e.Field("name", "name_of_deceased"))
	assert.Equal(t, "1200", e.Field("amount"))
	assert.Equal(t, "", e.Field("missing"))
	assert.Equal(t, 1.0, e.ConfidenceOrDefault())
	assert.False(t, e.Failed())
	assert.True(t, Extraction{Error: "timeout"}.Failed())
}

func TestSubmissionAliasesAndEmptiness(t *testing.T) {
	var s Submission
	require.NoError(t, json.Unmarshal([]byte(`{"userId": "U-1", "policyId": "POL-1", "claim_type": "car"}`), &s))

	assert.Equal(t, "U-1", s.EffectiveUserID())
	assert.Equal(t, "POL-1", s.EffectivePolicyID())
	assert.False(t, s.IsEmpty())
	assert.True(t, (&Submission{}).IsEmpty())
	assert.True(t, (*Submission)(nil).IsEmpty())
}

func TestSubmissionWithOnlyDetailsIsNotEmpty(t *testing.T) {
	amount := Amount(100)
	tests := []struct {
		name string
		sub  *Submission
	}{
		{"death details", &Submission{DeathDetails: &DeathDetails{DateOfDeath: "2024-03-01", CauseOfDeath: "cardiac arrest"}}},
		{"accident details", &Submission{AccidentDetails: &AccidentDetails{AccidentType: "collision"}}},
		{"hospitalization details", &Submission{HospitalizationDetails: &HospitalizationDetails{AdmissionDate: "2024-02-01"}}},
		{"estimated amount", &Submission{EstimatedAmount: &amount}},
		{"claim id", &Submission{ClaimID: "CLM-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.sub.IsEmpty())
		})
	}
}

func TestSubmissionCloneIsDeep(t *testing.T) {
	s := &Submission{
		ClaimantInfo: &ClaimantInfo{Name: "A"},
		Documents:    []Document{{Category: "claim-form"}},
	}
	c := s.Clone()
	c.ClaimantInfo.Name = "B"
	c.Documents[0].Category = "changed"

	assert.Equal(t, "A", s.ClaimantInfo.Name)
	assert.Equal(t, "claim-form", s.Documents[0].Category)
}
