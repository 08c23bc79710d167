package transform

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/a3tai/mcp-visa-intake/internal/country"
)

// ErrInvalidDate is returned when a string cannot be read as a calendar date
var ErrInvalidDate = errors.New("invalid date")

// twoDigitYearPivot splits two-digit years: below it maps to 20xx, otherwise 19xx
const twoDigitYearPivot = 50

var (
	numericDateRe = regexp.MustCompile(`^(\d{1,4})[/\-.](\d{1,2})[/\-.](\d{1,4})$`)
	// 25 Dec 2025, 25-Dec-2025, 25 December 2025
	dayMonthNameRe = regexp.MustCompile(`^(\d{1,2})[\s\-./]+([A-Za-z]+)\.?[\s\-./,]+(\d{2,4})$`)
	// December 25, 2025 / Dec 25 2025
	monthNameDayRe = regexp.MustCompile(`^([A-Za-z]+)\.?[\s\-./]+(\d{1,2})(?:st|nd|rd|th)?[\s,\-./]+(\d{2,4})$`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var dateLayouts = map[country.DateFormat]string{
	country.DateDMYSlash: "02/01/2006",
	country.DateMDYSlash: "01/02/2006",
	country.DateISO:      "2006-01-02",
	country.DateDMYDash:  "02-01-2006",
	country.DateYMDSlash: "2006/01/02",
}

// ParseDate reads s as a calendar date at UTC midnight.
//
// Numeric dates with a four-digit first group are year-first. Otherwise a first
// group above 12 means day-first, a second group above 12 means month-first, and
// a genuine tie (both groups <= 12) is read day-first.
func ParseDate(s string) (time.Time, error) {
	return parseDate(s, "")
}

// ParseDateWithHint is ParseDate, except a genuinely ambiguous numeric date is
// resolved by the order hint implies. Unambiguous dates ignore the hint.
func ParseDateWithHint(s string, hint country.DateFormat) (time.Time, error) {
	return parseDate(s, hint)
}

// ParseToISODate normalizes s into YYYY-MM-DD
func ParseToISODate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(time.DateOnly), nil
}

// ParseToISODateWithHint normalizes s into YYYY-MM-DD using hint for ties
func ParseToISODateWithHint(s string, hint country.DateFormat) (string, error) {
	t, err := ParseDateWithHint(s, hint)
	if err != nil {
		return "", err
	}
	return t.Format(time.DateOnly), nil
}

// FormatDate renders an ISO date in one of the supported display patterns
func FormatDate(iso string, format country.DateFormat) (string, error) {
	layout, ok := dateLayouts[format]
	if !ok {
		return "", fmt.Errorf("unsupported date format %q", format)
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(iso))
	if err != nil {
		return "", fmt.Errorf("%w: %q is not ISO", ErrInvalidDate, iso)
	}
	return t.Format(layout), nil
}

// ConvertDate parses s in any accepted shape and renders it in format
func ConvertDate(s string, format country.DateFormat) (string, error) {
	iso, err := ParseToISODateWithHint(s, format)
	if err != nil {
		return "", err
	}
	return FormatDate(iso, format)
}

func parseDate(s string, hint country.DateFormat) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	// RFC 3339 timestamps keep only their date part
	if len(raw) > 10 && raw[10] == 'T' {
		raw = raw[:10]
	}

	if m := numericDateRe.FindStringSubmatch(raw); m != nil {
		return parseNumeric(raw, m[1], m[2], m[3], hint)
	}
	if m := dayMonthNameRe.FindStringSubmatch(raw); m != nil {
		return parseNamed(raw, m[1], m[2], m[3])
	}
	if m := monthNameDayRe.FindStringSubmatch(raw); m != nil {
		return parseNamed(raw, m[2], m[1], m[3])
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func parseNumeric(raw, g1, g2, g3 string, hint country.DateFormat) (time.Time, error) {
	a, _ := strconv.Atoi(g1)
	b, _ := strconv.Atoi(g2)
	c, _ := strconv.Atoi(g3)

	if len(g1) == 4 {
		if len(g3) > 2 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
		}
		return build(raw, a, b, c)
	}
	if len(g3) != 2 && len(g3) != 4 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}

	year := expandYear(c, len(g3))
	switch {
	case a > 12:
		return build(raw, year, b, a)
	case b > 12:
		return build(raw, year, a, b)
	case hint == country.DateMDYSlash:
		return build(raw, year, a, b)
	default:
		return build(raw, year, b, a)
	}
}

func parseNamed(raw, dayStr, monthStr, yearStr string) (time.Time, error) {
	month, ok := monthNames[strings.ToLower(monthStr)]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unknown month in %q", ErrInvalidDate, raw)
	}
	day, _ := strconv.Atoi(dayStr)
	year, _ := strconv.Atoi(yearStr)
	if len(yearStr) == 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return build(raw, expandYear(year, len(yearStr)), int(month), day)
}

func expandYear(y, digits int) int {
	if digits != 2 {
		return y
	}
	if y < twoDigitYearPivot {
		return 2000 + y
	}
	return 1900 + y
}

// build rejects overflowing components such as 31/02 instead of letting time.Date normalize them
func build(raw string, year, month, day int) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}
