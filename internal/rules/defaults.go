package rules

import (
	"fmt"

	"github.com/a3tai/mcp-visa-intake/internal/model"
)

const (
	priorityRequired = 100
	priorityPassport = 90
	priorityDates    = 80
	priorityProfile  = 50
	priorityInfo     = 10
)

var acceptedGenders = []string{"M", "F", "X", "Male", "Female", "Other", "Unspecified"}

// DefaultRules returns the built-in rule set
func DefaultRules() []Rule {
	out := []Rule{
		DeclarativeRule{
			RuleName:     "applicant-name-required",
			RulePriority: priorityRequired,
			Conditions: AllOf{
				Leaf{Fact: string(model.PathGivenName), Operator: OpEqual, Operand: Value("")},
				Leaf{Fact: string(model.PathFullName), Operator: OpEqual, Operand: Value("")},
			},
			Event: Event{
				Type:     "required",
				Field:    string(model.PathGivenName),
				Message:  "Applicant name is required",
				Severity: model.SeverityError,
			},
		},
		DeclarativeRule{
			RuleName:     "passport-issue-before-expiry",
			RulePriority: priorityPassport,
			Conditions: Leaf{
				Fact:     string(model.PathPassportIssueDate),
				Operator: OpGreaterThanInclusive,
				Operand:  FactRef(string(model.PathPassportExpiryDate)),
			},
			Event: Event{
				Type:       "consistency",
				Field:      string(model.PathPassportIssueDate),
				Message:    "Passport issue date must be before its expiry date",
				Severity:   model.SeverityError,
				Suggestion: "Check whether the issue and expiry dates were swapped",
			},
		},
		DeclarativeRule{
			RuleName:     "passport-expired",
			RulePriority: priorityPassport,
			Conditions: Leaf{
				Fact:     string(model.PathPassportExpiryDate),
				Operator: OpLessThan,
				Operand:  FactRef(FactCurrentDate),
			},
			Event: Event{
				Type:       "expired",
				Field:      string(model.PathPassportExpiryDate),
				Message:    "Passport has expired",
				Severity:   model.SeverityError,
				Suggestion: "Renew the passport before applying",
			},
		},
		DeclarativeRule{
			RuleName:     "passport-validity-span",
			RulePriority: priorityPassport,
			Conditions:   mustExpr(`facts["passport.expiryDate"] - facts["passport.issueDate"] > duration("87840h")`),
			Event: Event{
				Type:     "consistency",
				Field:    string(model.PathPassportExpiryDate),
				Message:  "Passport validity exceeds 10 years; verify the issue and expiry dates",
				Severity: model.SeverityWarning,
			},
		},
		DeclarativeRule{
			RuleName:     "date-of-birth-in-future",
			RulePriority: priorityDates,
			Conditions: Leaf{
				Fact:     string(model.PathDateOfBirth),
				Operator: OpGreaterThan,
				Operand:  FactRef(FactCurrentDate),
			},
			Event: Event{
				Type:     "consistency",
				Field:    string(model.PathDateOfBirth),
				Message:  "Date of birth is in the future",
				Severity: model.SeverityError,
			},
		},
		DeclarativeRule{
			RuleName:     "applicant-age-implausible",
			RulePriority: priorityDates,
			Conditions:   Leaf{Fact: FactApplicantAge, Operator: OpGreaterThan, Operand: Value(120)},
			Event: Event{
				Type:       "consistency",
				Field:      string(model.PathDateOfBirth),
				Message:    "Applicant age is over 120 years",
				Severity:   model.SeverityError,
				Suggestion: "Check the year of birth for an OCR error",
			},
		},
		DeclarativeRule{
			RuleName:     "applicant-is-minor",
			RulePriority: priorityProfile,
			Conditions: AllOf{
				Leaf{Fact: FactApplicantAge, Operator: OpGreaterThanInclusive, Operand: Value(0)},
				Leaf{Fact: FactApplicantAge, Operator: OpLessThan, Operand: Value(18)},
			},
			Event: Event{
				Type:       "policy",
				Field:      string(model.PathDateOfBirth),
				Message:    "Applicant is under 18",
				Severity:   model.SeverityWarning,
				Suggestion: "Attach a guardian consent letter",
			},
		},
		DeclarativeRule{
			RuleName:     "departure-before-arrival",
			RulePriority: priorityDates,
			Conditions:   Leaf{Fact: FactDepartureDate, Operator: OpLessThan, Operand: FactRef(FactTravelDate)},
			Event: Event{
				Type:     "consistency",
				Field:    string(model.PathDepartureDate),
				Message:  "Departure date is before the arrival date",
				Severity: model.SeverityError,
			},
		},
		DeclarativeRule{
			RuleName:     "travel-date-in-past",
			RulePriority: priorityDates,
			Conditions:   Leaf{Fact: FactTravelDate, Operator: OpLessThan, Operand: FactRef(FactCurrentDate)},
			Event: Event{
				Type:     "consistency",
				Field:    string(model.PathArrivalDate),
				Message:  "Travel date is in the past",
				Severity: model.SeverityWarning,
			},
		},
		DeclarativeRule{
			RuleName:     "married-without-spouse",
			RulePriority: priorityProfile,
			Conditions: AllOf{
				Leaf{Fact: FactMaritalStatus, Operator: OpEqual, Operand: Value("married")},
				Leaf{Fact: FactHasSpouse, Operator: OpEqual, Operand: Value(false)},
			},
			Event: Event{
				Type:        "consistency",
				Field:       string(model.PathSpouseName),
				Message:     "Marital status is married but no spouse is listed",
				Severity:    model.SeverityWarning,
				Suggestion:  "Add the spouse's details",
				AutoFixable: false,
			},
		},
		DeclarativeRule{
			RuleName:     "gender-unrecognized",
			RulePriority: priorityProfile,
			Conditions: AllOf{
				Not{Cond: Leaf{Fact: string(model.PathGender), Operator: OpEqual, Operand: Value("")}},
				Leaf{Fact: string(model.PathGender), Operator: OpNotIn, Operand: Value(acceptedGenders)},
			},
			Event: Event{
				Type:        "format",
				Field:       string(model.PathGender),
				Message:     "Gender value is not recognized",
				Severity:    model.SeverityWarning,
				Suggestion:  "Use M, F or X",
				AutoFixable: true,
			},
		},
		DeclarativeRule{
			RuleName:     "email-missing",
			RulePriority: priorityInfo,
			Conditions:   Leaf{Fact: string(model.PathEmail), Operator: OpEqual, Operand: Value("")},
			Event: Event{
				Type:     "completeness",
				Field:    string(model.PathEmail),
				Message:  "No email address provided; status updates will not be sent",
				Severity: model.SeverityInfo,
			},
		},
		PassportValidityRule{RulePriority: priorityPassport},
	}

	for _, p := range []model.CanonicalPath{
		model.PathPassportNumber,
		model.PathPassportExpiryDate,
		model.PathDateOfBirth,
		model.PathNationality,
	} {
		out = append(out, requiredRule(p))
	}
	return out
}

func requiredRule(p model.CanonicalPath) DeclarativeRule {
	return DeclarativeRule{
		RuleName:     "required-" + string(p),
		RulePriority: priorityRequired,
		Conditions:   Leaf{Fact: string(p), Operator: OpEqual, Operand: Value("")},
		Event: Event{
			Type:     "required",
			Field:    string(p),
			Message:  fmt.Sprintf("%s is required", p),
			Severity: model.SeverityError,
		},
	}
}

func mustExpr(src string) *Expr {
	e, err := NewExpr(src)
	if err != nil {
		panic(err)
	}
	return e
}
