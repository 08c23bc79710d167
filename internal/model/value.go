package model

import (
	"strconv"
	"time"
)

// ValueKind discriminates the FieldValue variants
type ValueKind string

const (
	KindText     ValueKind = "text"
	KindDate     ValueKind = "date"
	KindNumber   ValueKind = "number"
	KindCheckbox ValueKind = "checkbox"
)

// FieldValue is a typed extracted value. Implementations are TextValue, DateValue,
// NumberValue and CheckboxValue.
type FieldValue interface {
	Kind() ValueKind
	String() string
}

// TextValue holds free text
type TextValue string

func (v TextValue) Kind() ValueKind { return KindText }
func (v TextValue) String() string  { return string(v) }

// DateValue holds a calendar date at UTC midnight
type DateValue struct {
	Time time.Time
}

// NewDateValue truncates t to its calendar day in UTC
func NewDateValue(t time.Time) DateValue {
	y, m, d := t.Date()
	return DateValue{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (v DateValue) Kind() ValueKind { return KindDate }

// String renders the ISO form YYYY-MM-DD
func (v DateValue) String() string { return v.Time.Format(time.DateOnly) }

// NumberValue holds a numeric value
type NumberValue float64

func (v NumberValue) Kind() ValueKind { return KindNumber }
func (v NumberValue) String() string {
	return strconv.FormatFloat(float64(v), 'f', -1, 64)
}

// CheckboxValue holds a ticked/unticked state
type CheckboxValue bool

func (v CheckboxValue) Kind() ValueKind { return KindCheckbox }
func (v CheckboxValue) String() string {
	if v {
		return "true"
	}
	return "false"
}
