package model

import (
	"encoding/json"
)

// FieldType represents the kind of value an extraction backend reported for a field
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeDate      FieldType = "date"
	FieldTypeNumber    FieldType = "number"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeSignature FieldType = "signature"
)

// Valid reports whether the field type is one of the known wire values
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeDate, FieldTypeNumber, FieldTypeCheckbox, FieldTypeSignature:
		return true
	}
	return false
}

// ExtractedField is a single labeled value produced by an extraction backend.
// Confidence is an integer percentage in [0,100].
type ExtractedField struct {
	Label       string    `json:"label"`
	Value       string    `json:"value"`
	Confidence  int       `json:"confidence"`
	Type        FieldType `json:"type"`
	BoundingBox []float64 `json:"boundingBox,omitempty"`
}

// ClampConfidence forces a confidence value into [0,100]
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Normalized returns a copy with a clamped confidence and a known field type
func (f ExtractedField) Normalized() ExtractedField {
	out := f
	out.Confidence = ClampConfidence(f.Confidence)
	if !out.Type.Valid() {
		out.Type = FieldTypeText
	}
	if f.BoundingBox != nil {
		out.BoundingBox = append([]float64(nil), f.BoundingBox...)
	}
	return out
}

// Severity ranks a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue is a finding reported by the rules engine or the semantic validator
type ValidationIssue struct {
	Field       string   `json:"field"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Suggestion  string   `json:"suggestion,omitempty"`
	AutoFixable bool     `json:"autoFixable,omitempty"`
}

// FieldMatchResult is the outcome of mapping one extracted field onto the canonical schema.
// An empty Path means the field stayed unmatched, which is not an error.
type FieldMatchResult struct {
	Field          ExtractedField `json:"extractedField"`
	Path           CanonicalPath  `json:"canonicalPath"`
	Confidence     int            `json:"confidence"`
	NeedsTransform bool           `json:"needsTransform"`
	Transform      string         `json:"transform,omitempty"`
	Value          FieldValue     `json:"-"`
}

// Matched reports whether the field was mapped onto a canonical path
func (r FieldMatchResult) Matched() bool {
	return r.Path != ""
}

// Key identifies the result for highlighting: the canonical path when matched, else the raw label
func (r FieldMatchResult) Key() string {
	if r.Matched() {
		return string(r.Path)
	}
	return r.Field.Label
}

// MarshalJSON renders an unmatched path as null
func (r FieldMatchResult) MarshalJSON() ([]byte, error) {
	type alias struct {
		Field          ExtractedField `json:"extractedField"`
		Path           *string        `json:"canonicalPath"`
		Confidence     int            `json:"confidence"`
		NeedsTransform bool           `json:"needsTransform"`
		Transform      string         `json:"transform,omitempty"`
		Value          string         `json:"value,omitempty"`
	}
	a := alias{
		Field:          r.Field,
		Confidence:     r.Confidence,
		NeedsTransform: r.NeedsTransform,
		Transform:      r.Transform,
	}
	if r.Matched() {
		p := string(r.Path)
		a.Path = &p
	}
	if r.Value != nil {
		a.Value = r.Value.String()
	}
	return json.Marshal(a)
}

// ReviewAction is the pipeline's terminal human-workflow recommendation
type ReviewAction string

const (
	ActionAutoApprove ReviewAction = "auto_approve"
	ActionSpotCheck   ReviewAction = "spot_check"
	ActionFullReview  ReviewAction = "full_review"
)

// ReviewDecision is the consolidated routing result for one application
type ReviewDecision struct {
	Action              ReviewAction      `json:"action"`
	Message             string            `json:"message"`
	OverallConfidence   int               `json:"overallConfidence"`
	ReviewRequired      bool              `json:"reviewRequired"`
	HighlightFields     []string          `json:"highlightFields,omitempty"`
	CriticalIssues      []ValidationIssue `json:"criticalIssues"`
	Warnings            []ValidationIssue `json:"warnings"`
	EstimatedReviewTime string            `json:"estimatedReviewTime,omitempty"`
}
