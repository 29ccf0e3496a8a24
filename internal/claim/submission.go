package claim

import (
	"bytes"
	"encoding/json"
)

// Submission is the claim intake document as stored in the claim store.
type Submission struct {
	ClaimID         string  `json:"claim_id,omitempty"`
	UserID          string  `json:"user_id,omitempty"`
	UserIDAlt       string  `json:"userId,omitempty"`
	PolicyID        string  `json:"policy_id,omitempty"`
	PolicyIDAlt     string  `json:"policyId,omitempty"`
	PolicyNumber    string  `json:"policyNumber,omitempty"`
	ClaimType       string  `json:"claim_type,omitempty"`
	Status          string  `json:"status,omitempty"`
	EstimatedAmount *Amount `json:"estimated_amount,omitempty"`

	ClaimantInfo           *ClaimantInfo           `json:"claimant_info,omitempty"`
	DeathDetails           *DeathDetails           `json:"death_details,omitempty"`
	AccidentDetails        *AccidentDetails        `json:"accident_details,omitempty"`
	HospitalizationDetails *HospitalizationDetails `json:"hospitalization_details,omitempty"`
	IncidentDetails        *IncidentDetails        `json:"incident_details,omitempty"`

	Documents []Document `json:"documents,omitempty"`

	// IncidentDate is derived during validation.
	IncidentDate string `json:"incident_date,omitempty"`
}

type ClaimantInfo struct {
	Name string `json:"name,omitempty"`
}

type DeathDetails struct {
	DateOfDeath  string `json:"date_of_death,omitempty"`
	CauseOfDeath string `json:"cause_of_death,omitempty"`
}

type AccidentDetails struct {
	AccidentType string `json:"accident_type,omitempty"`
	AccidentDate string `json:"accident_date,omitempty"`
}

type HospitalizationDetails struct {
	AdmissionDate string `json:"admission_date,omitempty"`
}

type IncidentDetails struct {
	IncidentDate string `json:"incident_date,omitempty"`
}

// Document is one entry of the submission's document manifest.
type Document struct {
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Category string `json:"category,omitempty"`
}

// IsEmpty reports whether no submission data is present. Any populated field,
// including a detail section on its own, makes the submission non-empty.
func (s *Submission) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.ClaimID == "" && s.UserID == "" && s.UserIDAlt == "" && s.PolicyID == "" && s.PolicyIDAlt == "" &&
		s.PolicyNumber == "" && s.ClaimType == "" && s.Status == "" && s.EstimatedAmount == nil &&
		s.ClaimantInfo == nil && s.DeathDetails == nil && s.AccidentDetails == nil &&
		s.HospitalizationDetails == nil && s.IncidentDetails == nil &&
		len(s.Documents) == 0 && s.IncidentDate == ""
}

// EffectiveUserID returns user_id, falling back to userId.
func (s *Submission) EffectiveUserID() string {
	if s.UserID != "" {
		return s.UserID
	}
	return s.UserIDAlt
}

// EffectivePolicyID returns policy_id, falling back to policyId.
func (s *Submission) EffectivePolicyID() string {
	if s.PolicyID != "" {
		return s.PolicyID
	}
	return s.PolicyIDAlt
}

// ClaimantName returns the declared claimant name or "".
func (s *Submission) ClaimantName() string {
	if s == nil || s.ClaimantInfo == nil {
		return ""
	}
	return s.ClaimantInfo.Name
}

// DeclaredDate returns the claimant-declared event date used for proof
// checks: the date of death, else the generic incident date.
func (s *Submission) DeclaredDate() string {
	if s == nil {
		return ""
	}
	if s.DeathDetails != nil && s.DeathDetails.DateOfDeath != "" {
		return s.DeathDetails.DateOfDeath
	}
	if s.IncidentDetails != nil {
		return s.IncidentDetails.IncidentDate
	}
	return ""
}

// Clone returns a deep copy so that normalization never touches the caller's
// submission.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	if s.EstimatedAmount != nil {
		a := *s.EstimatedAmount
		c.EstimatedAmount = &a
	}
	if s.ClaimantInfo != nil {
		v := *s.ClaimantInfo
		c.ClaimantInfo = &v
	}
	if s.DeathDetails != nil {
		v := *s.DeathDetails
		c.DeathDetails = &v
	}
	if s.AccidentDetails != nil {
		v := *s.AccidentDetails
		c.AccidentDetails = &v
	}
	if s.HospitalizationDetails != nil {
		v := *s.HospitalizationDetails
		c.HospitalizationDetails = &v
	}
	if s.IncidentDetails != nil {
		v := *s.IncidentDetails
		c.IncidentDetails = &v
	}
	c.Documents = append([]Document(nil), s.Documents...)
	return &c
}

// Amount is a monetary value that may arrive as a JSON number or a formatted
// string such as "₹ 1,00,000".
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(ParseCurrency(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*a = 0
		return nil
	}
	*a = Amount(f)
	return nil
}

// Float returns the amount as float64.
func (a *Amount) Float() float64 {
	if a == nil {
		return 0
	}
	return float64(*a)
}
