// Package review turns field confidences and validation issues into a human review decision.
package review

import (
	"fmt"
	"math"

	"github.com/a3tai/mcp-visa-intake/internal/model"
)

// Policy holds the routing thresholds. All confidences are percentages.
type Policy struct {
	AutoApproveConfidence int     `json:"autoApproveConfidence"`
	SpotCheckConfidence   int     `json:"spotCheckConfidence"`
	HighlightBelow        int     `json:"highlightBelow"`
	CriticalWeight        int     `json:"criticalWeight"`
	BaseReviewMinutes     float64 `json:"baseReviewMinutes"`
	MinutesPerField       float64 `json:"minutesPerField"`
}

// DefaultPolicy is the standard routing table
func DefaultPolicy() Policy {
	return Policy{
		AutoApproveConfidence: 90,
		SpotCheckConfidence:   70,
		HighlightBelow:        85,
		CriticalWeight:        2,
		BaseReviewMinutes:     1,
		MinutesPerField:       0.5,
	}
}

// Route applies DefaultPolicy
func Route(fields []model.FieldMatchResult, ruleIssues, aiIssues []model.ValidationIssue) model.ReviewDecision {
	return DefaultPolicy().Route(fields, ruleIssues, aiIssues)
}

// Route decides auto approval, spot check or full review. The first matching row wins:
// no errors and confidence at AutoApproveConfidence approves; no errors and confidence at
// SpotCheckConfidence spot checks the weak or flagged fields; anything else is a full review.
func (p Policy) Route(fields []model.FieldMatchResult, ruleIssues, aiIssues []model.ValidationIssue) model.ReviewDecision {
	critical, warnings := mergeIssues(ruleIssues, aiIssues)
	conf := p.WeightedConfidence(fields)

	d := model.ReviewDecision{
		OverallConfidence: conf,
		CriticalIssues:    critical,
		Warnings:          warnings,
	}

	switch {
	case len(critical) == 0 && conf >= p.AutoApproveConfidence:
		d.Action = model.ActionAutoApprove
		d.Message = fmt.Sprintf("All checks passed with %d%% confidence", conf)
		return d

	case len(critical) == 0 && conf >= p.SpotCheckConfidence:
		d.Action = model.ActionSpotCheck
		flagged := issueFields(warnings)
		for _, f := range fields {
			key := f.Key()
			if fieldConfidence(f) < p.HighlightBelow || flagged[key] {
				d.HighlightFields = appendUnique(d.HighlightFields, key)
			}
		}
		d.Message = fmt.Sprintf("No errors found; %d field(s) need a quick check", len(d.HighlightFields))

	default:
		d.Action = model.ActionFullReview
		for _, f := range fields {
			d.HighlightFields = appendUnique(d.HighlightFields, f.Key())
		}
		if len(critical) > 0 {
			d.Message = fmt.Sprintf("%d error(s) found; full review required", len(critical))
		} else {
			d.Message = fmt.Sprintf("Low extraction confidence (%d%%); full review required", conf)
		}
	}

	d.ReviewRequired = true
	d.EstimatedReviewTime = p.EstimateReviewTime(len(d.HighlightFields))
	return d
}

// WeightedConfidence is the mean field confidence with critical paths weighted
// by CriticalWeight, rounded, or 0 without fields
func (p Policy) WeightedConfidence(fields []model.FieldMatchResult) int {
	weight := p.CriticalWeight
	if weight < 1 {
		weight = 1
	}

	var sum, total int
	for _, f := range fields {
		w := 1
		if f.Matched() && model.IsCritical(f.Path) {
			w = weight
		}
		sum += fieldConfidence(f) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(total)))
}

// fieldConfidence is the extraction confidence, capped by the label match score for matched fields
func fieldConfidence(f model.FieldMatchResult) int {
	c := model.ClampConfidence(f.Field.Confidence)
	if f.Matched() && f.Confidence < c {
		c = model.ClampConfidence(f.Confidence)
	}
	return c
}

// EstimateReviewTime grows with the number of highlighted fields
func (p Policy) EstimateReviewTime(highlighted int) string {
	minutes := int(math.Ceil(p.BaseReviewMinutes + p.MinutesPerField*float64(highlighted)))
	if minutes <= 1 {
		return "about 1 minute"
	}
	return fmt.Sprintf("about %d minutes", minutes)
}

// mergeIssues splits rule and semantic issues into errors and warnings. Infos go
// with warnings, unknown severities count as errors, and repeats are dropped.
func mergeIssues(ruleIssues, aiIssues []model.ValidationIssue) (errs, warnings []model.ValidationIssue) {
	errs = []model.ValidationIssue{}
	warnings = []model.ValidationIssue{}

	type key struct{ field, message string }
	seen := map[key]bool{}
	add := func(issue model.ValidationIssue) {
		k := key{issue.Field, issue.Message}
		if seen[k] {
			return
		}
		seen[k] = true
		switch issue.Severity {
		case model.SeverityWarning, model.SeverityInfo:
			warnings = append(warnings, issue)
		default:
			errs = append(errs, issue)
		}
	}

	for _, i := range ruleIssues {
		add(i)
	}
	for _, i := range aiIssues {
		add(i)
	}
	return errs, warnings
}

func issueFields(issues []model.ValidationIssue) map[string]bool {
	out := make(map[string]bool, len(issues))
	for _, i := range issues {
		out[i.Field] = true
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
