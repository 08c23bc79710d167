package rules

import (
	"fmt"
	"time"

	"github.com/a3tai/mcp-visa-intake/internal/country"
	"github.com/a3tai/mcp-visa-intake/internal/model"
)

// Rule inspects a fact set and reports zero or more issues
type Rule interface {
	Name() string
	Priority() int
	Fire(f Facts) []model.ValidationIssue
}

// Event is what a declarative rule reports when its conditions hold
type Event struct {
	Type        string         `json:"type" yaml:"type"`
	Field       string         `json:"field" yaml:"field"`
	Message     string         `json:"message" yaml:"message"`
	Severity    model.Severity `json:"severity" yaml:"severity"`
	Suggestion  string         `json:"suggestion,omitempty" yaml:"suggestion"`
	AutoFixable bool           `json:"autoFixable,omitempty" yaml:"autoFixable"`
}

func (e Event) issue() model.ValidationIssue {
	sev := e.Severity
	if sev == "" {
		sev = model.SeverityError
	}
	return model.ValidationIssue{
		Field:       e.Field,
		Message:     e.Message,
		Severity:    sev,
		Suggestion:  e.Suggestion,
		AutoFixable: e.AutoFixable,
	}
}

// DeclarativeRule fires its event when Conditions evaluate to true
type DeclarativeRule struct {
	RuleName     string
	RulePriority int
	Conditions   Condition
	Event        Event
}

func (r DeclarativeRule) Name() string  { return r.RuleName }
func (r DeclarativeRule) Priority() int { return r.RulePriority }

// Fire reports the event when the conditions hold. Undecidable conditions report nothing.
func (r DeclarativeRule) Fire(f Facts) []model.ValidationIssue {
	if r.Conditions == nil {
		return nil
	}
	ok, err := r.Conditions.Eval(f)
	if err != nil || !ok {
		return nil
	}
	return []model.ValidationIssue{r.Event.issue()}
}

// PassportValidityRule checks the passport expiry against the destination country's
// minimum validity measured from entry or departure.
type PassportValidityRule struct {
	RulePriority int
}

func (r PassportValidityRule) Name() string  { return "passport-validity-for-destination" }
func (r PassportValidityRule) Priority() int { return r.RulePriority }

func (r PassportValidityRule) Fire(f Facts) []model.ValidationIssue {
	expiry, ok := f.Time(string(model.PathPassportExpiryDate))
	if !ok {
		return nil
	}
	entry, ok := f.Time(FactTravelDate)
	if !ok {
		return nil
	}
	departure, _ := f.Time(FactDepartureDate)

	dest := f.String(FactDestinationCountry)
	if dest == "" {
		return nil
	}

	required := country.RequiredPassportExpiry(dest, entry, departure)
	if !expiry.Before(required) {
		return nil
	}

	rules := country.Lookup(dest)
	return []model.ValidationIssue{{
		Field: string(model.PathPassportExpiryDate),
		Message: fmt.Sprintf("Passport expires %s but %s requires validity until at least %s (%d months from %s)",
			expiry.Format(time.DateOnly), rules.Name, required.Format(time.DateOnly),
			rules.PassportValidity.Months, rules.PassportValidity.From),
		Severity:   model.SeverityError,
		Suggestion: "Renew the passport before applying",
	}}
}
