// Package metrics exposes Prometheus instruments for the intake pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics tracks extraction routing, review outcomes and form filling.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ExtractionAttempts *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	ExtractionFailures prometheus.Counter
	ReviewDecisions    *prometheus.CounterVec
	ReviewConfidence   prometheus.Histogram
	FieldsMatched      *prometheus.CounterVec
	FormFills          *prometheus.CounterVec
	FormFieldsWritten  *prometheus.CounterVec
	DocumentsProcessed *prometheus.CounterVec
}

// New registers every instrument with reg. Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		ExtractionAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visa_intake_extraction_attempts_total",
			Help: "Extraction backend calls by backend and outcome (accepted, rejected, failed, skipped)",
		}, []string{"backend", "outcome"}),
		ExtractionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "visa_intake_extraction_duration_seconds",
			Help:    "Duration of a full extraction routing by document type",
			Buckets: durationBuckets,
		}, []string{"document_type"}),
		ExtractionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "visa_intake_extraction_exhausted_total",
			Help: "Documents for which every extraction backend failed",
		}),
		ReviewDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visa_intake_review_decisions_total",
			Help: "Review routing decisions by action",
		}, []string{"action"}),
		ReviewConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "visa_intake_review_confidence",
			Help:    "Weighted overall confidence at review routing",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 95, 100},
		}),
		FieldsMatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visa_intake_fields_total",
			Help: "Extracted fields by match result (matched, unmatched)",
		}, []string{"result"}),
		FormFills: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visa_intake_form_fills_total",
			Help: "Form fill operations by outcome (success, partial, invalid)",
		}, []string{"outcome"}),
		FormFieldsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visa_intake_form_fields_total",
			Help: "Form field writes by result (populated, skipped)",
		}, []string{"result"}),
		DocumentsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visa_intake_documents_processed_total",
			Help: "Documents run through the full pipeline by outcome (ok, error)",
		}, []string{"outcome"}),
	}
}

// ObserveAttempt records one backend call
func (m *Metrics) ObserveAttempt(backend, outcome string) {
	if m == nil {
		return
	}
	m.ExtractionAttempts.WithLabelValues(backend, outcome).Inc()
}

// ObserveExtraction records the duration of a routing run. Call with time.Now() at the start.
func (m *Metrics) ObserveExtraction(docType string, start time.Time) {
	if m == nil {
		return
	}
	m.ExtractionDuration.WithLabelValues(docType).Observe(time.Since(start).Seconds())
}

// IncrementExhausted records a document no backend could handle
func (m *Metrics) IncrementExhausted() {
	if m == nil {
		return
	}
	m.ExtractionFailures.Inc()
}

// ObserveReview records a review decision and its confidence
func (m *Metrics) ObserveReview(action string, confidence int) {
	if m == nil {
		return
	}
	m.ReviewDecisions.WithLabelValues(action).Inc()
	m.ReviewConfidence.Observe(float64(confidence))
}

// ObserveMatches records matcher output sizes
func (m *Metrics) ObserveMatches(matched, unmatched int) {
	if m == nil {
		return
	}
	m.FieldsMatched.WithLabelValues("matched").Add(float64(matched))
	m.FieldsMatched.WithLabelValues("unmatched").Add(float64(unmatched))
}

// ObserveFill records a form fill outcome and per-field counts
func (m *Metrics) ObserveFill(outcome string, populated, skipped int) {
	if m == nil {
		return
	}
	m.FormFills.WithLabelValues(outcome).Inc()
	m.FormFieldsWritten.WithLabelValues("populated").Add(float64(populated))
	m.FormFieldsWritten.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveDocument records a pipeline run outcome
func (m *Metrics) ObserveDocument(outcome string) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.WithLabelValues(outcome).Inc()
}
