package country

import (
	"sort"
	"strings"
	"time"
)

// Anchor selects which travel date passport validity is measured from
type Anchor string

const (
	FromEntry     Anchor = "entry"
	FromDeparture Anchor = "departure"
)

// PassportValidity is the minimum remaining passport validity a destination demands
type PassportValidity struct {
	Months int    `json:"months"`
	From   Anchor `json:"from"`
}

// DateFormat is one of the five supported display patterns for dates
type DateFormat string

const (
	DateDMYSlash DateFormat = "DD/MM/YYYY"
	DateMDYSlash DateFormat = "MM/DD/YYYY"
	DateISO      DateFormat = "YYYY-MM-DD"
	DateDMYDash  DateFormat = "DD-MM-YYYY"
	DateYMDSlash DateFormat = "YYYY/MM/DD"
)

// DateFormats lists every supported pattern
func DateFormats() []DateFormat {
	return []DateFormat{DateDMYSlash, DateMDYSlash, DateISO, DateDMYDash, DateYMDSlash}
}

// AddressFormat names a postal address layout
type AddressFormat string

const (
	AddressUSA      AddressFormat = "usa"
	AddressUKEurope AddressFormat = "uk-europe"
	AddressGCCAsia  AddressFormat = "gcc-asia"
	AddressEastAsia AddressFormat = "east-asia"
	AddressGeneric  AddressFormat = "generic"
)

// NameFormat is the order a destination expects personal names in
type NameFormat string

const (
	NameGivenFamily NameFormat = "given_family"
	NameFamilyGiven NameFormat = "family_given"
	NameFull        NameFormat = "full"
)

// Rules describes a destination country's formatting and entry policy
type Rules struct {
	Code                 string           `json:"code"`
	Alpha2               string           `json:"alpha2,omitempty"`
	Name                 string           `json:"name"`
	PassportValidity     PassportValidity `json:"passportValidity"`
	DateFormat           DateFormat       `json:"dateFormat"`
	AddressFormat        AddressFormat    `json:"addressFormat"`
	NameFormatPreference NameFormat       `json:"nameFormatPreference"`
	PhoneCountryCode     string           `json:"phoneCountryCode,omitempty"`
	Requirements         []string         `json:"requirements,omitempty"`
	Known                bool             `json:"known"`
}

// Default returns the policy applied to destinations missing from the table
func Default(code string) Rules {
	code = strings.ToUpper(strings.TrimSpace(code))
	return Rules{
		Code:                 code,
		Name:                 code,
		PassportValidity:     PassportValidity{Months: 6, From: FromEntry},
		DateFormat:           DateDMYSlash,
		AddressFormat:        AddressGCCAsia,
		NameFormatPreference: NameGivenFamily,
	}
}

// Lookup returns the rules for an ISO 3166-1 alpha-3 code, case-insensitively.
// Unknown codes resolve to Default.
func Lookup(code string) Rules {
	key := strings.ToUpper(strings.TrimSpace(code))
	if r, ok := table[key]; ok {
		r.Requirements = append([]string(nil), r.Requirements...)
		return r
	}
	return Default(key)
}

// Known reports whether code has an explicit table entry
func Known(code string) bool {
	_, ok := table[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Codes returns every tabled country code in sorted order
func Codes() []string {
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ByAlpha2 finds the alpha-3 code for a two-letter region code
func ByAlpha2(alpha2 string) (string, bool) {
	a := strings.ToUpper(strings.TrimSpace(alpha2))
	for code, r := range table {
		if r.Alpha2 == a {
			return code, true
		}
	}
	return "", false
}

// RequiredPassportExpiry is the earliest passport expiry date code accepts for the given trip.
// A zero departure falls back to entry.
func RequiredPassportExpiry(code string, entry, departure time.Time) time.Time {
	r := Lookup(code)
	anchor := entry
	if r.PassportValidity.From == FromDeparture && !departure.IsZero() {
		anchor = departure
	}
	return anchor.AddDate(0, r.PassportValidity.Months, 0)
}

// PassportValidFor reports whether expiry satisfies code's validity requirement
func PassportValidFor(code string, expiry, entry, departure time.Time) bool {
	return !expiry.Before(RequiredPassportExpiry(code, entry, departure))
}
