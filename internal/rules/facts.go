package rules

import (
	"strings"
	"time"

	"github.com/a3tai/mcp-visa-intake/internal/model"
	"github.com/a3tai/mcp-visa-intake/internal/transform"
)

// Derived fact names
const (
	FactCurrentDate        = "currentDate"
	FactApplicantAge       = "applicantAge"
	FactHasSpouse          = "hasSpouse"
	FactMaritalStatus      = "maritalStatus"
	FactDestinationCountry = "destinationCountry"
	FactTravelDate         = "travelDate"
	FactDepartureDate      = "departureDate"
)

const daysPerYear = 365.25

// Facts is an immutable name to value map. Values are string, float64, bool or time.Time.
type Facts struct {
	values map[string]any
}

// NewFacts copies values into a Facts set
func NewFacts(values map[string]any) Facts {
	m := make(map[string]any, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Facts{values: m}
}

// Get returns the fact and whether it was present
func (f Facts) Get(name string) (any, bool) {
	v, ok := f.values[name]
	return v, ok
}

// String returns the fact as a string, or "" when absent or not a string
func (f Facts) String(name string) string {
	s, _ := f.values[name].(string)
	return s
}

// Time returns the fact as a time, or the zero time when absent or unparsed
func (f Facts) Time(name string) (time.Time, bool) {
	t, ok := f.values[name].(time.Time)
	return t, ok
}

// Map returns a copy of the underlying values
func (f Facts) Map() map[string]any {
	m := make(map[string]any, len(f.values))
	for k, v := range f.values {
		m[k] = v
	}
	return m
}

// FamilyMember is a relative declared on the application
type FamilyMember struct {
	Relationship string `json:"relationship"`
	Name         string `json:"name,omitempty"`
}

// Application is the canonical profile submitted for rule evaluation
type Application struct {
	Fields             map[model.CanonicalPath]string `json:"fields"`
	FamilyMembers      []FamilyMember                 `json:"familyMembers,omitempty"`
	DestinationCountry string                         `json:"destinationCountry,omitempty"`
	TravelDate         string                         `json:"travelDate,omitempty"`
	DepartureDate      string                         `json:"departureDate,omitempty"`
}

// AssembleFacts flattens an application into facts. Every canonical path is present
// (missing ones as ""); date paths that parse become time.Time.
func AssembleFacts(app Application, now time.Time) Facts {
	today := model.NewDateValue(now).Time
	values := make(map[string]any, len(model.AllCanonicalPaths())+8)

	for _, p := range model.AllCanonicalPaths() {
		raw := strings.TrimSpace(app.Fields[p])
		values[string(p)] = raw
		if raw == "" || !model.IsDatePath(p) {
			continue
		}
		if t, err := transform.ParseDate(raw); err == nil {
			values[string(p)] = t
		}
	}

	values[FactCurrentDate] = today

	if dob, ok := values[string(model.PathDateOfBirth)].(time.Time); ok {
		values[FactApplicantAge] = today.Sub(dob).Hours() / 24 / daysPerYear
	}

	hasSpouse := strings.TrimSpace(app.Fields[model.PathSpouseName]) != ""
	for _, m := range app.FamilyMembers {
		switch strings.ToLower(strings.TrimSpace(m.Relationship)) {
		case "spouse", "wife", "husband":
			hasSpouse = true
		}
	}
	values[FactHasSpouse] = hasSpouse
	values[FactMaritalStatus] = strings.TrimSpace(app.Fields[model.PathMaritalStatus])

	dest := strings.ToUpper(strings.TrimSpace(app.DestinationCountry))
	if dest == "" {
		dest = strings.ToUpper(strings.TrimSpace(app.Fields[model.PathDestinationCountry]))
	}
	values[FactDestinationCountry] = dest

	values[FactTravelDate] = dateFact(app.TravelDate, app.Fields[model.PathArrivalDate])
	values[FactDepartureDate] = dateFact(app.DepartureDate, app.Fields[model.PathDepartureDate])

	return Facts{values: values}
}

// dateFact parses the first non-empty candidate; unparseable input stays a string
func dateFact(candidates ...string) any {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if t, err := transform.ParseDate(c); err == nil {
			return t
		}
		return c
	}
	return ""
}
