// Package rules evaluates declarative validation rules against an applicant's facts.
package rules

import (
	"sort"

	"github.com/a3tai/mcp-visa-intake/internal/model"
)

// Result groups fired issues by severity
type Result struct {
	Errors   []model.ValidationIssue `json:"errors"`
	Warnings []model.ValidationIssue `json:"warnings"`
	Infos    []model.ValidationIssue `json:"infos"`
}

// All returns every issue, errors first
func (r Result) All() []model.ValidationIssue {
	out := make([]model.ValidationIssue, 0, len(r.Errors)+len(r.Warnings)+len(r.Infos))
	out = append(out, r.Errors...)
	out = append(out, r.Warnings...)
	return append(out, r.Infos...)
}

// Override returns base with every rule of overrides added. A rule in overrides
// whose name is already in base takes that rule's place instead of running beside
// it; the replaced names are returned in base order.
func Override(base, overrides []Rule) (merged []Rule, replaced []string) {
	byName := make(map[string]Rule, len(overrides))
	for _, r := range overrides {
		byName[r.Name()] = r
	}

	merged = make([]Rule, 0, len(base)+len(overrides))
	for _, r := range base {
		if o, ok := byName[r.Name()]; ok {
			merged = append(merged, o)
			replaced = append(replaced, r.Name())
			delete(byName, r.Name())
			continue
		}
		merged = append(merged, r)
	}
	for _, r := range overrides {
		if _, pending := byName[r.Name()]; pending {
			merged = append(merged, r)
		}
	}
	return merged, replaced
}

// Engine holds an immutable, ordered rule set
type Engine struct {
	rules []Rule
}

// NewEngine orders rules by descending priority, then by name
func NewEngine(rules ...Rule) *Engine {
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority() != sorted[j].Priority() {
			return sorted[i].Priority() > sorted[j].Priority()
		}
		return sorted[i].Name() < sorted[j].Name()
	})
	return &Engine{rules: sorted}
}

// Rules returns the rule set in evaluation order
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs every rule against the same facts. No rule can stop another from
// running, and identical facts always produce identical results.
func (e *Engine) Evaluate(f Facts) Result {
	res := Result{
		Errors:   []model.ValidationIssue{},
		Warnings: []model.ValidationIssue{},
		Infos:    []model.ValidationIssue{},
	}
	for _, r := range e.rules {
		for _, issue := range r.Fire(f) {
			switch issue.Severity {
			case model.SeverityWarning:
				res.Warnings = append(res.Warnings, issue)
			case model.SeverityInfo:
				res.Infos = append(res.Infos, issue)
			default:
				issue.Severity = model.SeverityError
				res.Errors = append(res.Errors, issue)
			}
		}
	}
	return res
}
