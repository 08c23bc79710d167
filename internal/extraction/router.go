package extraction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/a3tai/mcp-visa-intake/internal/metrics"
	"github.com/a3tai/mcp-visa-intake/internal/model"
)

// DefaultMediumAcceptConfidence is the structured-backend confidence a medium quality document must reach
const DefaultMediumAcceptConfidence = 70

// Router picks extraction backends by document type and assessed quality, trying
// them one at a time and falling back on failure. Backends are never raced.
type Router struct {
	structured   Backend
	idDocument   Backend
	vision       Backend
	assessor     QualityAssessor
	rasterizer   Rasterizer
	mediumAccept int
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// Option configures a Router
type Option func(*Router)

// WithStructured sets the structured-layout backend used for born-digital forms
func WithStructured(b Backend) Option { return func(r *Router) { r.structured = b } }

// WithIDDocument sets the identity-document backend used for passports
func WithIDDocument(b Backend) Option { return func(r *Router) { r.idDocument = b } }

// WithVision sets the vision-model backend used as the fallback of last resort
func WithVision(b Backend) Option { return func(r *Router) { r.vision = b } }

// WithAssessor overrides the quality assessor
func WithAssessor(a QualityAssessor) Option { return func(r *Router) { r.assessor = a } }

// WithRasterizer overrides how documents are turned into images for the vision backend
func WithRasterizer(z Rasterizer) Option { return func(r *Router) { r.rasterizer = z } }

// WithMediumAcceptConfidence sets the acceptance bar for medium quality documents
func WithMediumAcceptConfidence(c int) Option {
	return func(r *Router) { r.mediumAccept = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option { return func(r *Router) { r.logger = l } }

// WithMetrics enables instrumentation
func WithMetrics(m *metrics.Metrics) Option { return func(r *Router) { r.metrics = m } }

// NewRouter builds a router. Unset backends are treated as unavailable.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		assessor:     PDFQualityAssessor{},
		rasterizer:   PDFRasterizer{},
		mediumAccept: DefaultMediumAcceptConfidence,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// step is one backend call in a routing plan. accept decides whether its result
// ends routing; a rejected result is kept as a fallback.
type step struct {
	backend Backend
	method  Method
	images  bool
	accept  func(confidence int) bool
}

func always(int) bool { return true }

// Extract runs the routing plan for docType over data
func (r *Router) Extract(ctx context.Context, data []byte, contentType string, docType DocumentType) (*Result, error) {
	start := r.now()
	defer r.metrics.ObserveExtraction(string(docType), start)

	res := &Result{PageCount: 1}
	var plan []step

	switch docType {
	case DocPassport:
		plan = []step{
			{backend: r.idDocument, method: MethodIDDocument, accept: always},
			{backend: r.vision, method: MethodVisionModel, images: true, accept: always},
		}
	case DocVisaForm, DocSupportingDoc:
		a, err := r.assessor.Assess(ctx, data, contentType)
		if err != nil {
			r.logger.Warn("quality assessment failed, treating document as low quality", "error", err)
			a = Assessment{Quality: QualityLow}
		}
		res.Quality = a.Quality
		if a.PageCount > 0 {
			res.PageCount = a.PageCount
		}
		r.logger.Debug("document quality assessed",
			"document_type", docType, "quality", a.Quality,
			"key_value_pairs", a.KeyValuePairs, "scanned_pages", a.ScannedPages)

		switch {
		case a.Quality == QualityHigh && r.structured != nil:
			plan = []step{
				{backend: r.structured, method: MethodStructuredLayout, accept: always},
				{backend: r.vision, method: MethodVisionModel, images: true, accept: always},
			}
		case a.Quality == QualityMedium && r.structured != nil:
			bar := r.mediumAccept
			plan = []step{
				{backend: r.structured, method: MethodStructuredLayout, accept: func(c int) bool { return c >= bar }},
				{backend: r.vision, method: MethodVisionModel, images: true, accept: always},
			}
		default:
			plan = []step{{backend: r.vision, method: MethodVisionModel, images: true, accept: always}}
		}
	default:
		_, err := ParseDocumentType(string(docType))
		return nil, err
	}

	var fallback *Result
	var images []Image
	for _, s := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.backend == nil {
			continue
		}

		in := Input{DocumentType: docType, Data: data, ContentType: contentType}
		if s.images {
			if images == nil {
				imgs, err := r.rasterizer.Rasterize(ctx, data, contentType)
				if err != nil {
					r.logger.Warn("rasterization failed", "error", err)
					res.Attempts = append(res.Attempts, Attempt{Backend: s.backend.Name(), Method: s.method, Error: err.Error()})
					r.metrics.ObserveAttempt(s.backend.Name(), "failed")
					continue
				}
				images = imgs
			}
			in.Images = images
		}

		callStart := r.now()
		fields, err := s.backend.Extract(ctx, in)
		attempt := Attempt{Backend: s.backend.Name(), Method: s.method, Duration: r.now().Sub(callStart)}

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			attempt.Error = err.Error()
			if isUnavailable(err) {
				attempt.Skipped = true
				r.logger.Info("extraction backend unavailable, skipping", "backend", s.backend.Name())
				r.metrics.ObserveAttempt(s.backend.Name(), "skipped")
			} else {
				r.logger.Warn("extraction backend failed, falling back", "backend", s.backend.Name(), "error", err)
				r.metrics.ObserveAttempt(s.backend.Name(), "failed")
			}
			res.Attempts = append(res.Attempts, attempt)
			continue
		}

		fields = normalizeFields(fields)
		conf := OverallConfidence(fields)
		attempt.Confidence = conf
		candidate := &Result{Fields: fields, Method: s.method, OverallConfidence: conf}

		if s.accept(conf) {
			attempt.Accepted = true
			res.Attempts = append(res.Attempts, attempt)
			r.metrics.ObserveAttempt(s.backend.Name(), "accepted")
			return r.finish(res, candidate, start), nil
		}

		r.logger.Info("extraction result below acceptance bar, falling back",
			"backend", s.backend.Name(), "confidence", conf, "required", r.mediumAccept)
		r.metrics.ObserveAttempt(s.backend.Name(), "rejected")
		res.Attempts = append(res.Attempts, attempt)
		if fallback == nil || conf > fallback.OverallConfidence {
			fallback = candidate
		}
	}

	if fallback != nil {
		r.logger.Info("returning best earlier extraction result", "method", fallback.Method, "confidence", fallback.OverallConfidence)
		return r.finish(res, fallback, start), nil
	}

	r.metrics.IncrementExhausted()
	return nil, &ExhaustedError{DocumentType: docType, Attempts: res.Attempts}
}

// normalizeFields clamps confidences into 0..100 without touching the backend's slice
func normalizeFields(fields []model.ExtractedField) []model.ExtractedField {
	out := make([]model.ExtractedField, len(fields))
	for i, f := range fields {
		out[i] = f.Normalized()
	}
	return out
}

func (r *Router) finish(res, chosen *Result, start time.Time) *Result {
	res.Fields = chosen.Fields
	res.Method = chosen.Method
	res.OverallConfidence = chosen.OverallConfidence
	res.ProcessingTime = r.now().Sub(start)
	return res
}
