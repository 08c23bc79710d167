package transform

import (
	"strings"

	"github.com/a3tai/mcp-visa-intake/internal/country"
)

// Address holds postal address components
type Address struct {
	Street     string `json:"street,omitempty"`
	Building   string `json:"building,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// FormatAddress lays out the components in the order and punctuation of format.
// Empty lines are dropped.
func FormatAddress(a Address, format country.AddressFormat) []string {
	var lines []string
	switch format {
	case country.AddressUSA:
		lines = []string{
			joinNonEmpty(" ", a.Building, a.Street),
			joinNonEmpty(" ", joinNonEmpty(", ", a.City, a.State), a.PostalCode),
			a.Country,
		}
	case country.AddressUKEurope:
		lines = []string{
			joinNonEmpty(" ", a.Building, a.Street),
			joinNonEmpty(" ", a.PostalCode, a.City),
			a.State,
			a.Country,
		}
	case country.AddressGCCAsia:
		box := ""
		if a.PostalCode != "" {
			box = "P.O. Box " + a.PostalCode
		}
		lines = []string{
			joinNonEmpty(", ", a.Building, a.Street),
			joinNonEmpty(", ", a.City, a.State),
			box,
			a.Country,
		}
	case country.AddressEastAsia:
		lines = []string{
			a.Country,
			joinNonEmpty(" ", a.PostalCode, a.State, a.City),
			joinNonEmpty(" ", a.Street, a.Building),
		}
	default:
		lines = []string{
			joinNonEmpty(" ", a.Street, a.Building),
			a.City,
			joinNonEmpty(" ", a.State, a.PostalCode),
			a.Country,
		}
	}

	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// FormatAddressLine joins the formatted lines into a single comma separated line
func FormatAddressLine(a Address, format country.AddressFormat) string {
	return strings.Join(FormatAddress(a, format), ", ")
}

// ParseAddressComponents decodes "street|building|city|state|postal|country".
// Missing trailing components stay empty.
func ParseAddressComponents(encoded string) Address {
	parts := strings.Split(encoded, "|")
	get := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}
	return Address{
		Street:     get(0),
		Building:   get(1),
		City:       get(2),
		State:      get(3),
		PostalCode: get(4),
		Country:    get(5),
	}
}

// EncodeAddressComponents is the inverse of ParseAddressComponents
func EncodeAddressComponents(a Address) string {
	return strings.Join([]string{a.Street, a.Building, a.City, a.State, a.PostalCode, a.Country}, "|")
}
