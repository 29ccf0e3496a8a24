package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
)

func TestDecodeSubmission(t *testing.T) {
	doc := []byte(`{
		"userId": "u-1",
		"policyId": "p-1",
		"policyNumber": "POL-9",
		"claim_type": "life",
		"status": "submitted",
		"estimated_amount": "₹ 1,50,000",
		"claimant_info": {"name": "Asha Rao"},
		"death_details": {"date_of_death": "2024-01-05", "cause_of_death": "natural"},
		"documents": [{"filename": "dc.pdf", "url": "https://x/dc.pdf", "category": "death-certificate"}]
	}`)

	sub, err := decodeSubmission("CLM-1", doc)
	require.NoError(t, err)

	assert.Equal(t, "CLM-1", sub.ClaimID)
	assert.Equal(t, "u-1", sub.EffectiveUserID())
	assert.Equal(t, "p-1", sub.EffectivePolicyID())
	assert.Equal(t, claim.TypeLife, sub.ClaimType)
	assert.InDelta(t, 150000.0, sub.EstimatedAmount.Float(), 1e-9)
	assert.Equal(t, "Asha Rao", sub.ClaimantName())
	require.Len(t, sub.Documents, 1)
	assert.Equal(t, "death-certificate", sub.Documents[0].Category)
}

func TestDecodeSubmission_KeepsStoredClaimID(t *testing.T) {
	sub, err := decodeSubmission("lookup-key", []byte(`{"claim_id": "CLM-7"}`))
	require.NoError(t, err)
	assert.Equal(t, "CLM-7", sub.ClaimID)
}

func TestDecodeSubmission_Malformed(t *testing.T) {
	_, err := decodeSubmission("CLM-1", []byte(`{"claim_type": `))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.CodeOf(err))
}
