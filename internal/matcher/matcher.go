// Package matcher maps free-text form labels onto the canonical applicant schema.
package matcher

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/a3tai/mcp-visa-intake/internal/model"
	"github.com/a3tai/mcp-visa-intake/internal/transform"
)

// DefaultSuggestThreshold is the relaxed confidence used when proposing candidates for manual mapping
const DefaultSuggestThreshold = 50

// Candidate is a scored mapping for a single label
type Candidate struct {
	Path         model.CanonicalPath `json:"path"`
	MatchedLabel string              `json:"matchedLabel"`
	Confidence   int                 `json:"confidence"`
	Threshold    int                 `json:"threshold"`
	Transform    transform.Kind      `json:"transform,omitempty"`
}

// Report splits a batch of fields into matched and unmatched results
type Report struct {
	Matched   []model.FieldMatchResult `json:"matched"`
	Unmatched []model.FieldMatchResult `json:"unmatched"`
}

// Matcher scores labels against a read-only mapping dictionary. Safe for concurrent use.
type Matcher struct {
	mappings         []FieldMapping
	scorer           Scorer
	suggestThreshold int
	logger           *slog.Logger
}

// Option configures a Matcher
type Option func(*Matcher)

// WithScorer swaps the similarity function
func WithScorer(s Scorer) Option {
	return func(m *Matcher) { m.scorer = s }
}

// WithMappings replaces the built-in dictionary. Entries with a non-canonical path are dropped.
func WithMappings(mappings []FieldMapping) Option {
	return func(m *Matcher) {
		m.mappings = m.mappings[:0]
		for _, fm := range mappings {
			if model.IsCanonical(fm.Path) {
				m.mappings = append(m.mappings, fm)
			}
		}
	}
}

// WithSuggestThreshold sets the confidence floor used by Suggest
func WithSuggestThreshold(t int) Option {
	return func(m *Matcher) { m.suggestThreshold = model.ClampConfidence(t) }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) { m.logger = l }
}

// New builds a Matcher over DefaultMappings unless overridden
func New(opts ...Option) *Matcher {
	m := &Matcher{
		mappings:         DefaultMappings(),
		scorer:           NewTokenScorer(),
		suggestThreshold: DefaultSuggestThreshold,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mappings returns a copy of the dictionary in use
func (m *Matcher) Mappings() []FieldMapping {
	return append([]FieldMapping(nil), m.mappings...)
}

// MatchLabel returns the best mapping for label. The second result is false when
// the best score falls below that mapping's threshold; the candidate is still
// returned for diagnostics but must not be applied.
func (m *Matcher) MatchLabel(label string) (Candidate, bool) {
	scored := m.scoreAll(label)
	if len(scored) == 0 {
		return Candidate{}, false
	}

	best := scored[0]
	for _, c := range scored[1:] {
		// strict comparison keeps table order on ties
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, best.Confidence >= best.Threshold
}

// MatchField maps one extracted field and coerces its value into the typed union
func (m *Matcher) MatchField(f model.ExtractedField) model.FieldMatchResult {
	f = f.Normalized()
	res := model.FieldMatchResult{Field: f}

	cand, ok := m.MatchLabel(f.Label)
	if !ok {
		m.logger.Debug("label unmatched", "label", f.Label, "best", cand.Path, "confidence", cand.Confidence)
		res.Value = coerce(f.Type, f.Value)
		return res
	}

	res.Path = cand.Path
	res.Confidence = cand.Confidence
	res.Transform = string(cand.Transform)
	res.NeedsTransform = cand.Transform != ""

	typ := f.Type
	if model.IsDatePath(cand.Path) && typ == model.FieldTypeText {
		typ = model.FieldTypeDate
	}
	res.Value = coerce(typ, f.Value)
	return res
}

// MatchAll maps every field. Unmatched fields are a normal outcome, not an error.
func (m *Matcher) MatchAll(fields []model.ExtractedField) Report {
	rep := Report{
		Matched:   make([]model.FieldMatchResult, 0, len(fields)),
		Unmatched: make([]model.FieldMatchResult, 0),
	}
	for _, f := range fields {
		r := m.MatchField(f)
		if r.Matched() {
			rep.Matched = append(rep.Matched, r)
		} else {
			rep.Unmatched = append(rep.Unmatched, r)
		}
	}
	return rep
}

// Suggest proposes up to limit candidates scoring at least the suggest threshold,
// best first. Suggestions are never applied automatically.
func (m *Matcher) Suggest(label string, limit int) []Candidate {
	scored := m.scoreAll(label)
	out := make([]Candidate, 0, len(scored))
	for _, c := range scored {
		if c.Confidence >= m.suggestThreshold {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// scoreAll returns one candidate per mapping, in table order, using the mapping's best label
func (m *Matcher) scoreAll(label string) []Candidate {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	out := make([]Candidate, 0, len(m.mappings))
	for _, fm := range m.mappings {
		var bestScore float64
		var bestLabel string
		for _, l := range fm.labels() {
			if s := m.scorer.Score(label, l); s > bestScore {
				bestScore, bestLabel = s, l
			}
		}
		out = append(out, Candidate{
			Path:         fm.Path,
			MatchedLabel: bestLabel,
			Confidence:   model.ClampConfidence(int(math.Round(bestScore * 100))),
			Threshold:    fm.MatchThreshold,
			Transform:    fm.Transform,
		})
	}
	return out
}

func coerce(t model.FieldType, raw string) model.FieldValue {
	v, err := transform.ParseFieldValue(t, raw)
	if err != nil {
		return model.TextValue(raw)
	}
	return v
}
