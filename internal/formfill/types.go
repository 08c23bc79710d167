// Package formfill inspects, validates and populates fillable PDF forms.
package formfill

import (
	"errors"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-visa-intake/internal/transform"
)

// FieldKind is the widget type of an AcroForm field
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindCheckbox  FieldKind = "checkbox"
	KindDropdown  FieldKind = "dropdown"
	KindListBox   FieldKind = "listbox"
	KindRadio     FieldKind = "radio"
	KindButton    FieldKind = "button"
	KindSignature FieldKind = "signature"
	KindUnknown   FieldKind = "unknown"
)

// Fillable reports whether values can be written to fields of this kind
func (k FieldKind) Fillable() bool {
	switch k {
	case KindText, KindCheckbox, KindDropdown, KindListBox, KindRadio:
		return true
	}
	return false
}

// FieldDescriptor describes one terminal form field
type FieldDescriptor struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Options  []string  `json:"options,omitempty"`
	Pages    []int     `json:"pages,omitempty"`
	Locked   bool      `json:"locked,omitempty"`
	Editable bool      `json:"editable,omitempty"`
}

// Matches reports whether id addresses this field by object id or fully qualified name
func (d FieldDescriptor) Matches(id string) bool {
	return id != "" && (d.ID == id || d.Name == id)
}

// Info is what an engine learns about a template without loading it for writing
type Info struct {
	PageCount int               `json:"pageCount"`
	Encrypted bool              `json:"encrypted"`
	Fields    []FieldDescriptor `json:"fields"`
}

// FillableCount is the number of fields values can be written to
func (i Info) FillableCount() int {
	n := 0
	for _, f := range i.Fields {
		if f.Kind.Fillable() {
			n++
		}
	}
	return n
}

// Engine reads PDF templates. Implementations must be safe for concurrent use;
// the Documents they return are not.
type Engine interface {
	Inspect(data []byte) (Info, error)
	Load(data []byte) (Document, error)
}

// Document is one in-memory template being filled
type Document interface {
	Fields() []FieldDescriptor
	SetText(id, value string) error
	SetCheckbox(id string, checked bool) error
	// Select picks an option on a dropdown, list box or radio group. Engines
	// may reject values that are not one of the field's options.
	Select(id, value string) error
	// Flatten makes every field read-only. Call it after the last write.
	Flatten() error
	Save() ([]byte, error)
}

// Population is one value to write into the destination form
type Population struct {
	FieldID      string         `json:"fieldId"`
	Value        string         `json:"value"`
	Transform    transform.Kind `json:"transform,omitempty"`
	TargetFormat string         `json:"targetFormat,omitempty"`
}

// Options control a fill. A zero SuccessRatio uses the filler's default.
type Options struct {
	Flatten            bool    `json:"flatten"`
	DestinationCountry string  `json:"destinationCountry,omitempty"`
	SuccessRatio       float64 `json:"successRatio,omitempty"`
}

var (
	// ErrFormStructuralInvalid rejects a template before any write
	ErrFormStructuralInvalid = errors.New("form template is structurally invalid")
	// ErrFieldNotFound means no field accepted the population's id
	ErrFieldNotFound = errors.New("field not found")
	// ErrFieldLocked means the field is read-only
	ErrFieldLocked = errors.New("field is read-only")
	// ErrOptionRejected means the engine refused a choice value
	ErrOptionRejected = errors.New("option rejected")
)

// FieldError records a population that could not be written. It does not abort the fill.
type FieldError struct {
	FieldID string `json:"fieldId"`
	Reason  string `json:"reason"`
	Err     error  `json:"-"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.FieldID, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }

// StructuralError carries the pre-flight report that rejected a template
type StructuralError struct {
	Report ValidationReport
}

func (e *StructuralError) Error() string {
	if len(e.Report.Errors) == 0 {
		return ErrFormStructuralInvalid.Error()
	}
	return fmt.Sprintf("%s: %s", ErrFormStructuralInvalid, strings.Join(e.Report.Errors, "; "))
}

// Is makes errors.Is(err, ErrFormStructuralInvalid) hold
func (e *StructuralError) Is(target error) bool {
	return target == ErrFormStructuralInvalid
}

// FillResult is the outcome of a fill. Data is nil unless Success.
type FillResult struct {
	Success         bool         `json:"success"`
	Data            []byte       `json:"-"`
	PopulatedFields int          `json:"populatedFields"`
	SkippedFields   int          `json:"skippedFields"`
	Errors          []FieldError `json:"errors"`
	Flattened       bool         `json:"flattened"`
}
