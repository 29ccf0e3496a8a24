package claim

import (
	"fmt"
	"sort"
	"strings"
)

// Extraction is the outcome of reading one document with the vision
// collaborator: either structured fields with a confidence, or an error.
type Extraction struct {
	DocumentType string         `json:"document_type,omitempty"`
	Fields       map[string]any `json:"extracted_data,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Failed reports whether the extraction is an error marker.
func (e Extraction) Failed() bool {
	return e.Error != ""
}

// ConfidenceOrDefault returns the reported confidence, treating a missing
// value as fully confident.
func (e Extraction) ConfidenceOrDefault() float64 {
	if e.Confidence == nil {
		return 1.0
	}
	return *e.Confidence
}

// Field returns the first non-empty value among keys, rendered as a string.
func (e Extraction) Field(keys ...string) string {
	for _, k := range keys {
		v, ok := e.Fields[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s != "" {
			return s
		}
	}
	return ""
}

// DocumentResult is the extraction outcome for one manifest entry.
type DocumentResult struct {
	Index      int        `json:"index"`
	Filename   string     `json:"filename"`
	Category   string     `json:"category"`
	URL        string     `json:"url"`
	Extraction Extraction `json:"extraction"`
}

// DocumentExtraction is the output of the document extraction stage.
type DocumentExtraction struct {
	Status  string                    `json:"status"`
	Reason  string                    `json:"reason,omitempty"`
	Results map[string]DocumentResult `json:"results,omitempty"`
}

// DocumentKey builds the result key for a manifest entry. The index keeps
// same-category documents apart.
func DocumentKey(index int, category string) string {
	if category == "" {
		category = "unknown"
	}
	return fmt.Sprintf("%d_%s", index, category)
}

// KeyedResult pairs a result with its key.
type KeyedResult struct {
	Key    string
	Result DocumentResult
}

// Ordered returns the results in manifest order.
func (d *DocumentExtraction) Ordered() []KeyedResult {
	if d == nil {
		return nil
	}
	out := make([]KeyedResult, 0, len(d.Results))
	for k, r := range d.Results {
		out = append(out, KeyedResult{Key: k, Result: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Result.Index != out[j].Result.Index {
			return out[i].Result.Index < out[j].Result.Index
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Skipped reports whether extraction did not run or produced nothing.
func (d *DocumentExtraction) Skipped() bool {
	return d == nil || d.Status == ExtractionSkipped || len(d.Results) == 0
}
