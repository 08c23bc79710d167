package transform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/a3tai/mcp-visa-intake/internal/country"
	"github.com/a3tai/mcp-visa-intake/internal/model"
)

// Kind names a value transform
type Kind string

const (
	KindDate        Kind = "date"
	KindPhone       Kind = "phone"
	KindName        Kind = "name"
	KindAddress     Kind = "address"
	KindUppercase   Kind = "uppercase"
	KindLowercase   Kind = "lowercase"
	KindTrim        Kind = "trim"
	KindCountryName Kind = "country_name"
)

var (
	// ErrUnknownTransform is returned by Apply for an unrecognized kind
	ErrUnknownTransform = errors.New("unknown transform")
	// ErrInvalidPhone is returned by Apply when a phone number cannot be normalized
	ErrInvalidPhone = errors.New("invalid phone number")
)

// Kinds lists every supported transform
func Kinds() []Kind {
	return []Kind{KindDate, KindPhone, KindName, KindAddress, KindUppercase, KindLowercase, KindTrim, KindCountryName}
}

// Options parameterize Apply. TargetFormat overrides the destination country's
// preference for date and name transforms.
type Options struct {
	TargetFormat string
	Country      string
}

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// Apply runs the transform kind over value. On error the returned string is the
// input unchanged so callers can fall back to it.
func Apply(kind Kind, value string, opts Options) (string, error) {
	rules := country.Lookup(opts.Country)

	switch kind {
	case KindDate:
		format := country.DateFormat(opts.TargetFormat)
		if format == "" {
			format = rules.DateFormat
			if opts.Country == "" {
				format = country.DateISO
			}
		}
		out, err := ConvertDate(value, format)
		if err != nil {
			return value, err
		}
		return out, nil

	case KindPhone:
		res := NormalizePhone(value, opts.Country)
		if !res.IsValid {
			return value, fmt.Errorf("%w: %q", ErrInvalidPhone, value)
		}
		return res.E164, nil

	case KindName:
		format := country.NameFormat(opts.TargetFormat)
		if format == "" {
			format = rules.NameFormatPreference
		}
		var parts NameParts
		if strings.Contains(value, "|") {
			fields := strings.SplitN(value, "|", 3)
			for len(fields) < 3 {
				fields = append(fields, "")
			}
			parts = NameParts{Given: strings.TrimSpace(fields[0]), Middle: strings.TrimSpace(fields[1]), Family: strings.TrimSpace(fields[2])}
		} else {
			parts = SplitName(value, country.NameGivenFamily)
		}
		return FormatName(parts, format), nil

	case KindAddress:
		if !strings.Contains(value, "|") {
			return strings.TrimSpace(value), nil
		}
		format := country.AddressFormat(opts.TargetFormat)
		if format == "" {
			format = rules.AddressFormat
		}
		return FormatAddressLine(ParseAddressComponents(value), format), nil

	case KindUppercase:
		return upper.String(value), nil
	case KindLowercase:
		return lower.String(value), nil
	case KindTrim:
		return strings.Join(strings.Fields(value), " "), nil

	case KindCountryName:
		code := strings.TrimSpace(value)
		if len(code) == 2 {
			if c, ok := country.ByAlpha2(code); ok {
				code = c
			}
		}
		if country.Known(code) {
			return country.Lookup(code).Name, nil
		}
		return value, nil
	}

	return value, fmt.Errorf("%w: %s", ErrUnknownTransform, kind)
}

var truthy = map[string]bool{
	"yes": true, "true": true, "1": true, "checked": true, "x": true, "✓": true,
}

// IsTruthy reports whether a checkbox value means ticked
func IsTruthy(v string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(v))]
}

// ParseFieldValue coerces a raw extracted string into the typed value union
// according to t. Text and signature values never fail.
func ParseFieldValue(t model.FieldType, raw string) (model.FieldValue, error) {
	switch t {
	case model.FieldTypeDate:
		d, err := ParseDate(raw)
		if err != nil {
			return model.TextValue(raw), err
		}
		return model.NewDateValue(d), nil
	case model.FieldTypeNumber:
		n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
		if err != nil {
			return model.TextValue(raw), fmt.Errorf("invalid number %q: %w", raw, err)
		}
		return model.NumberValue(n), nil
	case model.FieldTypeCheckbox:
		return model.CheckboxValue(IsTruthy(raw)), nil
	default:
		return model.TextValue(raw), nil
	}
}
