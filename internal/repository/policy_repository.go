package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/database"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
)

// PolicyRepository reads policies from the relational policy store.
type PolicyRepository struct {
	db *database.DB
}

// NewPolicyRepository creates a new PolicyRepository.
func NewPolicyRepository(db *database.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// FetchPolicyByNumber retrieves a policy by its policy number. The row is
// read whole so optional columns (type, holderName, sumAssured) are picked up
// when the table has them and ignored when it does not.
func (r *PolicyRepository) FetchPolicyByNumber(ctx context.Context, policyNumber string) (*claim.PolicyRecord, error) {
	var doc []byte

	query := `
		SELECT row_to_json(p)
		FROM public.policy p
		WHERE p."policyNumber" = $1
		LIMIT 1
	`

	err := r.db.QueryRow(ctx, query, policyNumber).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("policy", policyNumber)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to get policy")
	}

	return decodePolicy(doc)
}

func decodePolicy(doc []byte) (*claim.PolicyRecord, error) {
	var row map[string]any
	if err := json.Unmarshal(doc, &row); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to decode policy row")
	}

	p := &claim.PolicyRecord{
		ID:           stringColumn(row, "id"),
		PolicyNumber: stringColumn(row, "policyNumber"),
		Status:       stringColumn(row, "status"),
		Type:         stringColumn(row, "type"),
		HolderName:   stringColumn(row, "holderName"),
		Coverage:     amountColumn(row, "coverage"),
		SumAssured:   amountColumn(row, "sumAssured"),
	}
	return p, nil
}

func stringColumn(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// amountColumn returns nil for absent or null columns so callers can fall
// back to their defaults.
func amountColumn(row map[string]any, key string) *float64 {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	return claim.Float64(claim.ParseCurrency(v))
}
