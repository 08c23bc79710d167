package formfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/a3tai/mcp-visa-intake/internal/metrics"
	"github.com/a3tai/mcp-visa-intake/internal/transform"
)

// DefaultSuccessRatio is the share of requested fields that must be populated,
// exclusive, for a fill to count as a success
const DefaultSuccessRatio = 0.5

// handler writes one population into a field of the kinds it accepts
type handler struct {
	kinds []FieldKind
	write func(doc Document, f FieldDescriptor, value string) error
}

// handlers are probed in this order; the first one with a field matching the id wins
var handlers = []handler{
	{
		kinds: []FieldKind{KindText},
		write: func(doc Document, f FieldDescriptor, v string) error { return doc.SetText(f.ID, v) },
	},
	{
		kinds: []FieldKind{KindCheckbox},
		write: func(doc Document, f FieldDescriptor, v string) error {
			return doc.SetCheckbox(f.ID, transform.IsTruthy(v))
		},
	},
	{
		kinds: []FieldKind{KindDropdown, KindListBox},
		write: selectOption,
	},
	{
		kinds: []FieldKind{KindRadio},
		write: selectOption,
	},
}

// selectOption prefers an option equal to v ignoring case. Otherwise the raw
// value is handed to the engine, which may or may not accept it.
func selectOption(doc Document, f FieldDescriptor, v string) error {
	if opt, ok := matchOption(f.Options, v); ok {
		return doc.Select(f.ID, opt)
	}
	return doc.Select(f.ID, v)
}

func (h handler) accepts(f FieldDescriptor) bool {
	for _, k := range h.kinds {
		if f.Kind == k {
			return true
		}
	}
	return false
}

// Filler populates destination form templates
type Filler struct {
	engine       Engine
	successRatio float64
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// FillerOption configures a Filler
type FillerOption func(*Filler)

// WithSuccessRatio overrides DefaultSuccessRatio
func WithSuccessRatio(r float64) FillerOption {
	return func(f *Filler) {
		if r > 0 && r <= 1 {
			f.successRatio = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) FillerOption { return func(f *Filler) { f.logger = l } }

// WithMetrics enables instrumentation
func WithMetrics(m *metrics.Metrics) FillerOption { return func(f *Filler) { f.metrics = m } }

// NewFiller creates a filler over engine
func NewFiller(engine Engine, opts ...FillerOption) *Filler {
	f := &Filler{
		engine:       engine,
		successRatio: DefaultSuccessRatio,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Inspect lists a template's fields
func (f *Filler) Inspect(data []byte) (Info, error) {
	return f.engine.Inspect(data)
}

// Validate runs the pre-flight checks on a template
func (f *Filler) Validate(data []byte) ValidationReport {
	return Validate(f.engine, data)
}

// Fill writes populations into template. Structurally invalid templates are
// rejected with a *StructuralError before anything is written; per-field
// failures are collected in the result.
func (f *Filler) Fill(ctx context.Context, template []byte, populations []Population, opts Options) (*FillResult, error) {
	report := f.Validate(template)
	if !report.IsValid {
		f.metrics.ObserveFill("invalid", 0, 0)
		return nil, &StructuralError{Report: report}
	}
	for _, w := range report.Warnings {
		f.logger.Warn("form template warning", "warning", w)
	}

	doc, err := f.engine.Load(template)
	if err != nil {
		f.metrics.ObserveFill("invalid", 0, 0)
		if errors.Is(err, ErrFormStructuralInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrFormStructuralInvalid, err)
	}
	fields := doc.Fields()

	res := &FillResult{Errors: []FieldError{}}
	for _, p := range populations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value := f.transformValue(p, opts.DestinationCountry)
		if err := write(doc, fields, p.FieldID, value); err != nil {
			res.SkippedFields++
			res.Errors = append(res.Errors, FieldError{FieldID: p.FieldID, Reason: reason(err), Err: err})
			f.logger.Debug("form field not populated", "field", p.FieldID, "error", err)
			continue
		}
		res.PopulatedFields++
	}

	ratio := opts.SuccessRatio
	if ratio <= 0 || ratio > 1 {
		ratio = f.successRatio
	}
	res.Success = float64(res.PopulatedFields) > ratio*float64(len(populations))

	if !res.Success {
		f.logger.Info("form fill below success threshold",
			"populated", res.PopulatedFields, "requested", len(populations), "ratio", ratio)
		f.metrics.ObserveFill("partial", res.PopulatedFields, res.SkippedFields)
		return res, nil
	}

	if opts.Flatten {
		if err := doc.Flatten(); err != nil {
			return nil, fmt.Errorf("flatten form: %w", err)
		}
		res.Flattened = true
	}

	data, err := doc.Save()
	if err != nil {
		return nil, fmt.Errorf("save filled form: %w", err)
	}
	res.Data = data

	f.metrics.ObserveFill("success", res.PopulatedFields, res.SkippedFields)
	return res, nil
}

// transformValue applies the population's transform; a failed transform keeps the raw value
func (f *Filler) transformValue(p Population, destination string) string {
	if p.Transform == "" {
		return p.Value
	}
	out, err := transform.Apply(p.Transform, p.Value, transform.Options{
		TargetFormat: p.TargetFormat,
		Country:      destination,
	})
	if err != nil {
		f.logger.Debug("transform failed, writing raw value",
			"field", p.FieldID, "transform", p.Transform, "error", err)
		return p.Value
	}
	return out
}

func write(doc Document, fields []FieldDescriptor, id, value string) error {
	for _, h := range handlers {
		for _, fd := range fields {
			if !fd.Matches(id) || !h.accepts(fd) {
				continue
			}
			if fd.Locked {
				return ErrFieldLocked
			}
			return h.write(doc, fd, value)
		}
	}
	return ErrFieldNotFound
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrFieldNotFound):
		return ErrFieldNotFound.Error()
	case errors.Is(err, ErrFieldLocked):
		return ErrFieldLocked.Error()
	}
	return err.Error()
}
