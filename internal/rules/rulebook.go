// Package rules holds the business constants of claim evaluation.
package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
)

//go:embed rulebook.yaml
var defaultRulebook []byte

// Rulebook is the full set of evaluation constants.
type Rulebook struct {
	MandatoryDocuments map[string][]string `yaml:"mandatory_documents"`
	Coverage           CoverageRules       `yaml:"coverage"`
	Fraud              FraudRules          `yaml:"fraud"`
	Assessment         AssessmentRules     `yaml:"assessment"`
	Settlement         SettlementRules     `yaml:"settlement"`
}

type CoverageRules struct {
	// DefaultLimit applies when the policy snapshot has no coverage value.
	DefaultLimit float64 `yaml:"default_limit"`
	// FallbackLimit and FallbackLifeLimit apply when no snapshot exists at all.
	FallbackLimit     float64 `yaml:"fallback_limit"`
	FallbackLifeLimit float64 `yaml:"fallback_life_limit"`
	Deductible        float64 `yaml:"deductible"`
	LifeDeductible    float64 `yaml:"life_deductible"`
}

type FraudRules struct {
	BaseScore              int     `yaml:"base_score"`
	HighValueThreshold     float64 `yaml:"high_value_threshold"`
	HighValuePenalty       int     `yaml:"high_value_penalty"`
	Marker                 string  `yaml:"marker"`
	MarkerScore            int     `yaml:"marker_score"`
	ExtractionErrorPenalty int     `yaml:"extraction_error_penalty"`
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`
	LowConfidencePenalty   int     `yaml:"low_confidence_penalty"`
	InvestigateAbove       int     `yaml:"investigate_above"`
}

type AssessmentRules struct {
	DefaultSumAssured float64 `yaml:"default_sum_assured"`
	DefaultEstimate   float64 `yaml:"default_estimate"`
	DepreciationRate  float64 `yaml:"depreciation_rate"`
}

type SettlementRules struct {
	MinConfidence float64 `yaml:"min_confidence"`
}

// Default returns the rulebook compiled into the binary.
func Default() *Rulebook {
	rb, err := Parse(defaultRulebook)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded rulebook is invalid: %v", err))
	}
	return rb
}

// Load returns the embedded rulebook with the file at path, if any, laid over
// it. Keys absent from the file keep their default values.
func Load(path string) (*Rulebook, error) {
	rb := Default()
	if path == "" {
		return rb, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read rulebook")
	}
	if err := yaml.Unmarshal(data, rb); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to parse rulebook")
	}
	if err := rb.Validate(); err != nil {
		return nil, err
	}
	return rb, nil
}

// Parse decodes and validates a YAML rulebook.
func Parse(data []byte) (*Rulebook, error) {
	var rb Rulebook
	if err := yaml.Unmarshal(data, &rb); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to parse rulebook")
	}
	if err := rb.Validate(); err != nil {
		return nil, err
	}
	return &rb, nil
}

// Validate rejects rulebooks no evaluation could run on.
func (rb *Rulebook) Validate() error {
	switch {
	case rb.Fraud.Marker == "":
		return errors.InvalidInput("fraud.marker", "must not be empty")
	case rb.Fraud.LowConfidenceThreshold < 0 || rb.Fraud.LowConfidenceThreshold > 1:
		return errors.InvalidInput("fraud.low_confidence_threshold", "must be within [0, 1]")
	case rb.Settlement.MinConfidence < 0 || rb.Settlement.MinConfidence > 1:
		return errors.InvalidInput("settlement.min_confidence", "must be within [0, 1]")
	case rb.Fraud.ExtractionErrorPenalty < 0:
		return errors.InvalidInput("fraud.extraction_error_penalty", "must not be negative")
	case rb.Fraud.LowConfidencePenalty < 0:
		return errors.InvalidInput("fraud.low_confidence_penalty", "must not be negative")
	case rb.Fraud.HighValuePenalty < 0:
		return errors.InvalidInput("fraud.high_value_penalty", "must not be negative")
	case rb.Fraud.HighValueThreshold < 0:
		return errors.InvalidInput("fraud.high_value_threshold", "must not be negative")
	case rb.Coverage.Deductible < 0 || rb.Coverage.LifeDeductible < 0:
		return errors.InvalidInput("coverage.deductible", "must not be negative")
	case rb.Assessment.DepreciationRate < 0 || rb.Assessment.DepreciationRate >= 1:
		return errors.InvalidInput("assessment.depreciation_rate", "must be within [0, 1)")
	}
	return nil
}

// RequiredDocuments returns the mandatory document categories for a claim type.
func (rb *Rulebook) RequiredDocuments(claimType string) []string {
	return rb.MandatoryDocuments[claimType]
}
