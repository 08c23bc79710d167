// Package extraction routes documents to external extraction backends by document type and quality.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/a3tai/mcp-visa-intake/internal/model"
)

// DocumentType is the kind of document submitted for extraction
type DocumentType string

const (
	DocVisaForm      DocumentType = "visa_form"
	DocPassport      DocumentType = "passport"
	DocSupportingDoc DocumentType = "supporting_doc"
)

// ParseDocumentType validates a wire value
func ParseDocumentType(s string) (DocumentType, error) {
	switch d := DocumentType(strings.ToLower(strings.TrimSpace(s))); d {
	case DocVisaForm, DocPassport, DocSupportingDoc:
		return d, nil
	}
	return "", fmt.Errorf("unknown document type %q (expected visa_form, passport or supporting_doc)", s)
}

// Method names the backend family that produced a result
type Method string

const (
	MethodStructuredLayout Method = "structured_layout"
	MethodIDDocument       Method = "id_document"
	MethodVisionModel      Method = "vision_model"
)

// Quality is the assessed suitability of a document for structured extraction
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Image is one page image handed to the vision backend
type Image struct {
	Page        int    `json:"page"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// Input is what a backend receives
type Input struct {
	DocumentType DocumentType
	Data         []byte
	ContentType  string
	Images       []Image
}

// Backend is an external extraction service
type Backend interface {
	Name() string
	Extract(ctx context.Context, in Input) ([]model.ExtractedField, error)
}

// Attempt records one backend call made while routing
type Attempt struct {
	Backend    string        `json:"backend"`
	Method     Method        `json:"method"`
	Confidence int           `json:"confidence,omitempty"`
	Accepted   bool          `json:"accepted"`
	Skipped    bool          `json:"skipped,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Result is the router's output
type Result struct {
	Fields            []model.ExtractedField `json:"fields"`
	Method            Method                 `json:"method"`
	OverallConfidence int                    `json:"overallConfidence"`
	PageCount         int                    `json:"pageCount"`
	ProcessingTime    time.Duration          `json:"processingTime"`
	Quality           Quality                `json:"quality,omitempty"`
	Attempts          []Attempt              `json:"attempts"`
}

var (
	// ErrBackendUnavailable means the backend is not configured or not reachable; the router skips it
	ErrBackendUnavailable = errors.New("extraction backend unavailable")
	// ErrExtractionExhausted means no backend produced a result
	ErrExtractionExhausted = errors.New("all extraction backends failed")
)

// BackendError is a runtime failure inside a backend; the router logs it and falls back
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ExhaustedError lists every attempt made before giving up
type ExhaustedError struct {
	DocumentType DocumentType
	Attempts     []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reason := a.Error
		if reason == "" {
			reason = "rejected"
		}
		parts = append(parts, a.Backend+": "+reason)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s for %s: no backend configured", ErrExtractionExhausted, e.DocumentType)
	}
	return fmt.Sprintf("%s for %s: %s", ErrExtractionExhausted, e.DocumentType, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrExtractionExhausted) hold
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExtractionExhausted
}

// OverallConfidence is the mean field confidence, rounded, or 0 without fields
func OverallConfidence(fields []model.ExtractedField) int {
	if len(fields) == 0 {
		return 0
	}
	sum := 0
	for _, f := range fields {
		sum += model.ClampConfidence(f.Confidence)
	}
	return (sum + len(fields)/2) / len(fields)
}
