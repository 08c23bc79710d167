// Package pipeline runs a document through extraction, matching, validation,
// review routing and, optionally, form filling.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/a3tai/mcp-visa-intake/internal/extraction"
	"github.com/a3tai/mcp-visa-intake/internal/formfill"
	"github.com/a3tai/mcp-visa-intake/internal/matcher"
	"github.com/a3tai/mcp-visa-intake/internal/metrics"
	"github.com/a3tai/mcp-visa-intake/internal/model"
	"github.com/a3tai/mcp-visa-intake/internal/review"
	"github.com/a3tai/mcp-visa-intake/internal/rules"
	"github.com/a3tai/mcp-visa-intake/internal/semantic"
	"github.com/a3tai/mcp-visa-intake/internal/transform"
)

var tracer = otel.Tracer("github.com/a3tai/mcp-visa-intake/internal/pipeline")

// Extractor produces fields from document bytes; *extraction.Router implements it
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string, docType extraction.DocumentType) (*extraction.Result, error)
}

// FillRequest asks for the destination form to be populated after review.
// Fields maps canonical paths to form field ids or names.
type FillRequest struct {
	Template []byte                         `json:"-"`
	Fields   map[model.CanonicalPath]string `json:"fields"`
	Flatten  bool                           `json:"flatten"`
	// Force fills even when the decision is a full review
	Force bool `json:"force"`
}

// Request is one document to process
type Request struct {
	ID                 string                  `json:"id,omitempty"`
	Data               []byte                  `json:"-"`
	ContentType        string                  `json:"contentType,omitempty"`
	DocumentType       extraction.DocumentType `json:"documentType"`
	DestinationCountry string                  `json:"destinationCountry,omitempty"`
	TravelDate         string                  `json:"travelDate,omitempty"`
	DepartureDate      string                  `json:"departureDate,omitempty"`
	FamilyMembers      []rules.FamilyMember    `json:"familyMembers,omitempty"`
	Fill               *FillRequest            `json:"fill,omitempty"`
}

// Report is everything learned about one document
type Report struct {
	ID             string                         `json:"id,omitempty"`
	Extraction     *extraction.Result             `json:"extraction"`
	Matches        matcher.Report                 `json:"matches"`
	Profile        map[model.CanonicalPath]string `json:"profile"`
	Validation     rules.Result                   `json:"validation"`
	SemanticIssues []model.ValidationIssue        `json:"semanticIssues,omitempty"`
	Decision       model.ReviewDecision           `json:"decision"`
	Fill           *formfill.FillResult           `json:"fill,omitempty"`
	FillSkipped    string                         `json:"fillSkipped,omitempty"`
}

// Processor wires the pipeline stages together. It holds no per-document state
// and is safe for concurrent use.
type Processor struct {
	extractor      Extractor
	matcher        *matcher.Matcher
	rules          *rules.Engine
	semantic       semantic.Validator
	filler         *formfill.Filler
	policy         review.Policy
	defaultCountry string
	logger         *slog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
}

// Option configures a Processor
type Option func(*Processor)

// WithMatcher overrides the default matcher
func WithMatcher(m *matcher.Matcher) Option { return func(p *Processor) { p.matcher = m } }

// WithRules overrides the default rule set
func WithRules(e *rules.Engine) Option { return func(p *Processor) { p.rules = e } }

// WithSemantic enables the external semantic validator
func WithSemantic(v semantic.Validator) Option { return func(p *Processor) { p.semantic = v } }

// WithFiller enables form filling
func WithFiller(f *formfill.Filler) Option { return func(p *Processor) { p.filler = f } }

// WithPolicy overrides the review policy
func WithPolicy(policy review.Policy) Option { return func(p *Processor) { p.policy = policy } }

// WithDefaultCountry sets the destination used when a request names none
func WithDefaultCountry(code string) Option {
	return func(p *Processor) { p.defaultCountry = strings.ToUpper(strings.TrimSpace(code)) }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option { return func(p *Processor) { p.logger = l } }

// WithMetrics enables instrumentation
func WithMetrics(m *metrics.Metrics) Option { return func(p *Processor) { p.metrics = m } }

// WithClock overrides the current time used for date rules
func WithClock(now func() time.Time) Option { return func(p *Processor) { p.now = now } }

// New creates a processor around extractor
func New(extractor Extractor, opts ...Option) *Processor {
	p := &Processor{
		extractor: extractor,
		policy:    review.DefaultPolicy(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.matcher == nil {
		p.matcher = matcher.New(matcher.WithLogger(p.logger))
	}
	if p.rules == nil {
		p.rules = rules.NewEngine(rules.DefaultRules()...)
	}
	return p
}

// Process runs one document end to end. Only extraction exhaustion, a structurally
// invalid fill template and cancellation are returned as errors.
func (p *Processor) Process(ctx context.Context, req Request) (*Report, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Process",
		trace.WithAttributes(
			attribute.String("document.type", string(req.DocumentType)),
			attribute.String("request.id", req.ID),
		),
	)
	defer span.End()

	rep, err := p.process(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.ObserveDocument("error")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("review.action", string(rep.Decision.Action)),
		attribute.Int("review.confidence", rep.Decision.OverallConfidence),
	)
	p.metrics.ObserveDocument("ok")
	return rep, nil
}

func (p *Processor) process(ctx context.Context, req Request) (*Report, error) {
	destination := strings.ToUpper(strings.TrimSpace(req.DestinationCountry))
	if destination == "" {
		destination = p.defaultCountry
	}
	rep := &Report{ID: req.ID}

	extracted, err := p.extract(ctx, req)
	if err != nil {
		return nil, err
	}
	rep.Extraction = extracted

	rep.Matches = p.matcher.MatchAll(extracted.Fields)
	p.metrics.ObserveMatches(len(rep.Matches.Matched), len(rep.Matches.Unmatched))
	rep.Profile = BuildProfile(rep.Matches.Matched)

	app := rules.Application{
		Fields:             rep.Profile,
		FamilyMembers:      req.FamilyMembers,
		DestinationCountry: destination,
		TravelDate:         req.TravelDate,
		DepartureDate:      req.DepartureDate,
	}
	rep.Validation = p.rules.Evaluate(rules.AssembleFacts(app, p.now()))

	rep.SemanticIssues = p.checkSemantics(ctx, rep.Profile, destination)

	fields := make([]model.FieldMatchResult, 0, len(rep.Matches.Matched)+len(rep.Matches.Unmatched))
	fields = append(fields, rep.Matches.Matched...)
	fields = append(fields, rep.Matches.Unmatched...)
	rep.Decision = p.policy.Route(fields, rep.Validation.All(), rep.SemanticIssues)
	p.metrics.ObserveReview(string(rep.Decision.Action), rep.Decision.OverallConfidence)

	p.logger.Info("document processed",
		"id", req.ID,
		"document_type", req.DocumentType,
		"method", extracted.Method,
		"matched", len(rep.Matches.Matched),
		"unmatched", len(rep.Matches.Unmatched),
		"errors", len(rep.Validation.Errors),
		"action", rep.Decision.Action,
		"confidence", rep.Decision.OverallConfidence,
	)

	if req.Fill != nil {
		if err := p.fill(ctx, req.Fill, destination, rep); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func (p *Processor) extract(ctx context.Context, req Request) (*extraction.Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.extract")
	defer span.End()

	res, err := p.extractor.Extract(ctx, req.Data, req.ContentType, req.DocumentType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return nil, fmt.Errorf("extract %s: %w", req.DocumentType, err)
	}
	span.SetAttributes(
		attribute.String("extraction.method", string(res.Method)),
		attribute.Int("extraction.fields", len(res.Fields)),
	)
	return res, nil
}

func (p *Processor) checkSemantics(ctx context.Context, profile map[model.CanonicalPath]string, destination string) []model.ValidationIssue {
	if p.semantic == nil {
		return nil
	}
	ctx, span := tracer.Start(ctx, "pipeline.semantic")
	defer span.End()

	formData := make(map[string]string, len(profile))
	for path, v := range profile {
		formData[string(path)] = v
	}
	return semantic.Check(ctx, p.semantic, formData, destination, p.logger)
}

func (p *Processor) fill(ctx context.Context, fr *FillRequest, destination string, rep *Report) error {
	if p.filler == nil {
		rep.FillSkipped = "form filling is not configured"
		return nil
	}
	if rep.Decision.Action == model.ActionFullReview && !fr.Force {
		rep.FillSkipped = "application needs a full review before the form is filled"
		return nil
	}

	ctx, span := tracer.Start(ctx, "pipeline.fill")
	defer span.End()

	populations := Populations(rep.Profile, fr.Fields, p.matcher.Mappings())
	res, err := p.filler.Fill(ctx, fr.Template, populations, formfill.Options{
		Flatten:            fr.Flatten,
		DestinationCountry: destination,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fill failed")
		return fmt.Errorf("fill form: %w", err)
	}
	rep.Fill = res
	return nil
}

// BuildProfile keeps, for every canonical path, the value of its most confident match
func BuildProfile(matched []model.FieldMatchResult) map[model.CanonicalPath]string {
	profile := make(map[model.CanonicalPath]string, len(matched))
	best := make(map[model.CanonicalPath]int, len(matched))

	for _, m := range matched {
		if !m.Matched() {
			continue
		}
		conf := m.Field.Confidence
		if prev, ok := best[m.Path]; ok && prev >= conf {
			continue
		}
		v := m.Field.Value
		if m.Value != nil {
			v = m.Value.String()
		}
		profile[m.Path] = strings.TrimSpace(v)
		best[m.Path] = conf
	}
	return profile
}

// Populations turns profile values into form writes, carrying each path's transform
func Populations(profile map[model.CanonicalPath]string, fields map[model.CanonicalPath]string, mappings []matcher.FieldMapping) []formfill.Population {
	transforms := make(map[model.CanonicalPath]transform.Kind, len(mappings))
	for _, m := range mappings {
		transforms[m.Path] = m.Transform
	}

	out := make([]formfill.Population, 0, len(fields))
	for _, path := range model.AllCanonicalPaths() {
		fieldID, ok := fields[path]
		if !ok || fieldID == "" {
			continue
		}
		out = append(out, formfill.Population{
			FieldID:   fieldID,
			Value:     profile[path],
			Transform: transforms[path],
		})
	}
	return out
}

// IsFatal reports whether err should stop a caller from continuing with other documents' output
func IsFatal(err error) bool {
	return errors.Is(err, extraction.ErrExtractionExhausted) || errors.Is(err, formfill.ErrFormStructuralInvalid)
}
