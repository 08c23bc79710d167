package transform

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/a3tai/mcp-visa-intake/internal/country"
)

// PhoneResult is a best-effort phone normalization. On failure IsValid is false
// and Original carries the input unchanged.
type PhoneResult struct {
	Original      string `json:"original"`
	E164          string `json:"e164,omitempty"`
	International string `json:"international,omitempty"`
	CountryCode   string `json:"countryCode,omitempty"`
	IsValid       bool   `json:"isValid"`
}

// NormalizePhone parses raw using defaultCountry (ISO alpha-3) as the region when
// the number carries no explicit country code.
func NormalizePhone(raw, defaultCountry string) PhoneResult {
	res := PhoneResult{Original: raw}

	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return res
	}
	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + strings.TrimPrefix(cleaned, "00")
	}

	region := country.Lookup(defaultCountry).Alpha2
	if region == "" {
		region = "ZZ"
	}

	num, err := phonenumbers.Parse(cleaned, region)
	if err != nil {
		return res
	}
	if !phonenumbers.IsValidNumber(num) {
		return res
	}

	res.E164 = phonenumbers.Format(num, phonenumbers.E164)
	res.International = phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
	res.CountryCode = "+" + strconv.Itoa(int(num.GetCountryCode()))
	res.IsValid = true
	return res
}
