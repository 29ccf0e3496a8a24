package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
	"github.com/pesio-ai/be-claims-evaluator/internal/rules"
)

// ValidationStage performs First Notice of Loss validation: required fields,
// claim-type specific details, incident date and mandatory documents.
type ValidationStage struct {
	claims ClaimStore
	rules  *rules.Rulebook
	log    *logger.Logger
}

// NewValidationStage creates a new ValidationStage.
func NewValidationStage(claims ClaimStore, rb *rules.Rulebook, log *logger.Logger) *ValidationStage {
	return &ValidationStage{claims: claims, rules: rb, log: log}
}

func (s *ValidationStage) Name() claim.Step { return claim.StepValidation }

func (s *ValidationStage) Run(ctx context.Context, rec claim.Record) (claim.Update, error) {
	sub := rec.Submission
	if sub.IsEmpty() {
		s.log.Info().Str("claim_id", rec.ClaimID).Msg("Submission missing, fetching from claim store")

		fetched, err := s.claims.FetchClaimByID(ctx, rec.ClaimID)
		if errors.IsNotFound(err) {
			return claim.Reject(fmt.Sprintf("Could not find claim details for ID: %s", rec.ClaimID)), nil
		}
		if err != nil {
			return claim.Update{}, err
		}
		sub = fetched
	}
	sub = sub.Clone()

	if missing := missingFields(sub); len(missing) > 0 {
		return claim.Reject(fmt.Sprintf("Missing required fields in schema: %s", strings.Join(missing, ", "))), nil
	}

	sub.IncidentDate = incidentDate(sub)
	if sub.IncidentDate == "" {
		return claim.Reject("Could not extract incident date from provided details"), nil
	}

	if missing := s.missingDocuments(sub); len(missing) > 0 {
		return claim.Reject(fmt.Sprintf("Missing mandatory documents for %s claim: %s",
			sub.ClaimType, strings.Join(missing, ", "))), nil
	}

	return claim.Update{
		Submission: sub,
		Reasoning: []string{
			fmt.Sprintf("Full schema for %s claim validated successfully. All required fields present.", sub.ClaimType),
		},
	}, nil
}

// missingFields lists absent required fields as dotted paths.
func missingFields(sub *claim.Submission) []string {
	var missing []string
	if sub.EffectiveUserID() == "" {
		missing = append(missing, "user_id")
	}
	if sub.EffectivePolicyID() == "" {
		missing = append(missing, "policy_id")
	}
	if sub.ClaimType == "" {
		missing = append(missing, "claim_type")
	}
	if sub.Status == "" {
		missing = append(missing, "status")
	}

	switch sub.ClaimType {
	case claim.TypeLife:
		if sub.DeathDetails == nil || *sub.DeathDetails == (claim.DeathDetails{}) {
			missing = append(missing, "death_details")
		} else {
			if sub.DeathDetails.DateOfDeath == "" {
				missing = append(missing, "death_details.date_of_death")
			}
			if sub.DeathDetails.CauseOfDeath == "" {
				missing = append(missing, "death_details.cause_of_death")
			}
		}
		if sub.ClaimantName() == "" {
			missing = append(missing, "claimant_info.name")
		}

	case claim.TypeCar:
		if sub.AccidentDetails == nil || *sub.AccidentDetails == (claim.AccidentDetails{}) {
			missing = append(missing, "accident_details")
		} else if sub.AccidentDetails.AccidentType == "" {
			missing = append(missing, "accident_details.accident_type")
		}

	case claim.TypeHealth:
		if sub.HospitalizationDetails == nil || *sub.HospitalizationDetails == (claim.HospitalizationDetails{}) {
			missing = append(missing, "hospitalization_details")
		} else if sub.HospitalizationDetails.AdmissionDate == "" {
			missing = append(missing, "hospitalization_details.admission_date")
		}
	}

	return missing
}

// incidentDate derives the incident date: date of death for life claims,
// otherwise the generic incident date with a type-specific fallback.
func incidentDate(sub *claim.Submission) string {
	if sub.ClaimType == claim.TypeLife {
		if sub.DeathDetails != nil {
			return sub.DeathDetails.DateOfDeath
		}
		return ""
	}

	if sub.IncidentDetails != nil && sub.IncidentDetails.IncidentDate != "" {
		return sub.IncidentDetails.IncidentDate
	}
	switch sub.ClaimType {
	case claim.TypeCar:
		if sub.AccidentDetails != nil {
			return sub.AccidentDetails.AccidentDate
		}
	case claim.TypeHealth:
		if sub.HospitalizationDetails != nil {
			return sub.HospitalizationDetails.AdmissionDate
		}
	}
	return ""
}

func (s *ValidationStage) missingDocuments(sub *claim.Submission) []string {
	provided := make(map[string]struct{}, len(sub.Documents))
	for _, doc := range sub.Documents {
		if doc.Category != "" {
			provided[doc.Category] = struct{}{}
		}
	}

	var missing []string
	for _, category := range s.rules.RequiredDocuments(sub.ClaimType) {
		if _, ok := provided[category]; !ok {
			missing = append(missing, category)
		}
	}
	return missing
}
