package transform

import (
	"strings"

	"github.com/a3tai/mcp-visa-intake/internal/country"
)

// NameParts is a personal name split into its components
type NameParts struct {
	Given  string `json:"given"`
	Middle string `json:"middle,omitempty"`
	Family string `json:"family"`
}

// FormatName renders parts in the requested order. The middle name always follows the given name.
func FormatName(p NameParts, format country.NameFormat) string {
	given := joinNonEmpty(" ", p.Given, p.Middle)
	switch format {
	case country.NameFamilyGiven:
		return joinNonEmpty(" ", p.Family, given)
	case country.NameFull:
		if p.Family == "" {
			return given
		}
		if given == "" {
			return p.Family
		}
		return p.Family + ", " + given
	default:
		return joinNonEmpty(" ", given, p.Family)
	}
}

// SplitName reads a name written in format back into parts.
// A comma always marks "Family, Given Middle" regardless of format.
func SplitName(full string, format country.NameFormat) NameParts {
	full = strings.TrimSpace(full)
	if full == "" {
		return NameParts{}
	}

	if family, rest, ok := strings.Cut(full, ","); ok {
		g, m := splitGivenMiddle(strings.Fields(rest))
		return NameParts{Given: g, Middle: m, Family: strings.TrimSpace(family)}
	}

	words := strings.Fields(full)
	if len(words) == 1 {
		return NameParts{Given: words[0]}
	}

	if format == country.NameFamilyGiven {
		g, m := splitGivenMiddle(words[1:])
		return NameParts{Given: g, Middle: m, Family: words[0]}
	}
	g, m := splitGivenMiddle(words[:len(words)-1])
	return NameParts{Given: g, Middle: m, Family: words[len(words)-1]}
}

// ReorderName converts a name from one order to another
func ReorderName(full string, from, to country.NameFormat) string {
	return FormatName(SplitName(full, from), to)
}

func splitGivenMiddle(words []string) (string, string) {
	switch len(words) {
	case 0:
		return "", ""
	case 1:
		return words[0], ""
	default:
		return words[0], strings.Join(words[1:], " ")
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
