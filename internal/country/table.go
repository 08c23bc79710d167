package country

var gccRequirements = []string{
	"Passport valid for at least 6 months from entry",
	"Recent passport-size photograph on white background",
	"Confirmed return or onward ticket",
}

var schengenRequirements = []string{
	"Passport valid for at least 3 months beyond departure",
	"Passport issued within the last 10 years",
	"Travel medical insurance of at least EUR 30,000",
}

func gcc(code, alpha2, name, phone string) Rules {
	return Rules{
		Code:                 code,
		Alpha2:               alpha2,
		Name:                 name,
		PassportValidity:     PassportValidity{Months: 6, From: FromEntry},
		DateFormat:           DateDMYSlash,
		AddressFormat:        AddressGCCAsia,
		NameFormatPreference: NameGivenFamily,
		PhoneCountryCode:     phone,
		Requirements:         gccRequirements,
		Known:                true,
	}
}

func schengen(code, alpha2, name, phone string) Rules {
	return Rules{
		Code:                 code,
		Alpha2:               alpha2,
		Name:                 name,
		PassportValidity:     PassportValidity{Months: 3, From: FromDeparture},
		DateFormat:           DateDMYSlash,
		AddressFormat:        AddressUKEurope,
		NameFormatPreference: NameGivenFamily,
		PhoneCountryCode:     phone,
		Requirements:         schengenRequirements,
		Known:                true,
	}
}

func sixFromEntry(code, alpha2, name, phone string, df DateFormat, af AddressFormat, nf NameFormat) Rules {
	return Rules{
		Code:                 code,
		Alpha2:               alpha2,
		Name:                 name,
		PassportValidity:     PassportValidity{Months: 6, From: FromEntry},
		DateFormat:           df,
		AddressFormat:        af,
		NameFormatPreference: nf,
		PhoneCountryCode:     phone,
		Known:                true,
	}
}

// table is read-only after init
var table = map[string]Rules{
	"ARE": gcc("ARE", "AE", "United Arab Emirates", "+971"),
	"SAU": gcc("SAU", "SA", "Saudi Arabia", "+966"),
	"QAT": gcc("QAT", "QA", "Qatar", "+974"),
	"OMN": gcc("OMN", "OM", "Oman", "+968"),
	"KWT": gcc("KWT", "KW", "Kuwait", "+965"),
	"BHR": gcc("BHR", "BH", "Bahrain", "+973"),

	"USA": {
		Code:                 "USA",
		Alpha2:               "US",
		Name:                 "United States",
		PassportValidity:     PassportValidity{Months: 6, From: FromDeparture},
		DateFormat:           DateMDYSlash,
		AddressFormat:        AddressUSA,
		NameFormatPreference: NameFamilyGiven,
		PhoneCountryCode:     "+1",
		Requirements: []string{
			"Passport valid for 6 months beyond the intended stay",
			"DS-160 confirmation page",
			"Interview appointment confirmation",
		},
		Known: true,
	},
	"GBR": {
		Code:                 "GBR",
		Alpha2:               "GB",
		Name:                 "United Kingdom",
		PassportValidity:     PassportValidity{Months: 0, From: FromDeparture},
		DateFormat:           DateDMYSlash,
		AddressFormat:        AddressUKEurope,
		NameFormatPreference: NameGivenFamily,
		PhoneCountryCode:     "+44",
		Requirements: []string{
			"Passport valid for the whole stay",
			"Evidence of funds for the visit",
		},
		Known: true,
	},
	"CAN": {
		Code:                 "CAN",
		Alpha2:               "CA",
		Name:                 "Canada",
		PassportValidity:     PassportValidity{Months: 0, From: FromDeparture},
		DateFormat:           DateISO,
		AddressFormat:        AddressUSA,
		NameFormatPreference: NameFamilyGiven,
		PhoneCountryCode:     "+1",
		Known:                true,
	},
	"AUS": {
		Code:                 "AUS",
		Alpha2:               "AU",
		Name:                 "Australia",
		PassportValidity:     PassportValidity{Months: 0, From: FromDeparture},
		DateFormat:           DateDMYSlash,
		AddressFormat:        AddressGeneric,
		NameFormatPreference: NameFamilyGiven,
		PhoneCountryCode:     "+61",
		Known:                true,
	},

	"DEU": schengen("DEU", "DE", "Germany", "+49"),
	"FRA": schengen("FRA", "FR", "France", "+33"),
	"ITA": schengen("ITA", "IT", "Italy", "+39"),
	"ESP": schengen("ESP", "ES", "Spain", "+34"),
	"NLD": schengen("NLD", "NL", "Netherlands", "+31"),

	"IND": sixFromEntry("IND", "IN", "India", "+91", DateDMYSlash, AddressGCCAsia, NameGivenFamily),
	"PAK": sixFromEntry("PAK", "PK", "Pakistan", "+92", DateDMYSlash, AddressGCCAsia, NameGivenFamily),
	"PHL": sixFromEntry("PHL", "PH", "Philippines", "+63", DateMDYSlash, AddressGCCAsia, NameFamilyGiven),
	"SGP": sixFromEntry("SGP", "SG", "Singapore", "+65", DateDMYSlash, AddressGCCAsia, NameGivenFamily),
	"TUR": sixFromEntry("TUR", "TR", "Turkey", "+90", DateDMYDash, AddressUKEurope, NameGivenFamily),
	"EGY": sixFromEntry("EGY", "EG", "Egypt", "+20", DateDMYSlash, AddressGCCAsia, NameGivenFamily),
	"JOR": sixFromEntry("JOR", "JO", "Jordan", "+962", DateDMYSlash, AddressGCCAsia, NameGivenFamily),
	"CHN": sixFromEntry("CHN", "CN", "China", "+86", DateISO, AddressEastAsia, NameFamilyGiven),
	"JPN": sixFromEntry("JPN", "JP", "Japan", "+81", DateYMDSlash, AddressEastAsia, NameFamilyGiven),
	"KOR": sixFromEntry("KOR", "KR", "South Korea", "+82", DateISO, AddressEastAsia, NameFamilyGiven),
}
