package matcher

import (
	"github.com/a3tai/mcp-visa-intake/internal/model"
	"github.com/a3tai/mcp-visa-intake/internal/transform"
)

// FieldMapping ties a canonical path to the labels forms commonly print for it.
// MatchThreshold is the minimum confidence (0-100) needed to accept a match.
type FieldMapping struct {
	Path            model.CanonicalPath `json:"path" yaml:"path"`
	Label           string              `json:"label" yaml:"label"`
	AlternateLabels []string            `json:"alternateLabels,omitempty" yaml:"alternateLabels"`
	MatchThreshold  int                 `json:"matchThreshold" yaml:"matchThreshold"`
	Transform       transform.Kind      `json:"transform,omitempty" yaml:"transform"`
}

// labels returns the primary label followed by its alternates
func (m FieldMapping) labels() []string {
	return append([]string{m.Label}, m.AlternateLabels...)
}

// DefaultMappings returns the built-in dictionary, one entry per canonical path, in schema order
func DefaultMappings() []FieldMapping {
	out := make([]FieldMapping, len(defaultMappings))
	for i, m := range defaultMappings {
		m.AlternateLabels = append([]string(nil), m.AlternateLabels...)
		out[i] = m
	}
	return out
}

var defaultMappings = []FieldMapping{
	{model.PathGivenName, "Given Name", []string{"First Name", "Forename", "Given Names", "First Names"}, 80, ""},
	{model.PathFamilyName, "Family Name", []string{"Surname", "Last Name", "Family Names"}, 80, ""},
	{model.PathMiddleName, "Middle Name", []string{"Middle Names", "Second Name"}, 85, ""},
	{model.PathFullName, "Full Name", []string{"Name", "Applicant Name", "Name of Applicant", "Full Name as in Passport"}, 85, transform.KindName},

	{model.PathDateOfBirth, "Date of Birth", []string{"DOB", "D.O.B.", "Birth Date", "Birthdate"}, 80, transform.KindDate},
	{model.PathPlaceOfBirth, "Place of Birth", []string{"Birth Place", "City of Birth", "Country of Birth"}, 80, ""},
	{model.PathGender, "Gender", []string{"Sex"}, 90, transform.KindUppercase},
	{model.PathNationality, "Nationality", []string{"Citizenship", "Present Nationality", "Current Nationality"}, 85, transform.KindCountryName},
	{model.PathMaritalStatus, "Marital Status", []string{"Civil Status", "Martial Status"}, 85, ""},

	{model.PathPassportNumber, "Passport Number", []string{"Passport No", "Passport #", "Document Number", "Travel Document Number"}, 85, transform.KindUppercase},
	{model.PathPassportIssueDate, "Passport Issue Date", []string{"Date of Issue", "Issue Date", "Issued On"}, 80, transform.KindDate},
	{model.PathPassportExpiryDate, "Passport Expiry Date", []string{"Date of Expiry", "Expiry Date", "Expiration Date", "Valid Until"}, 80, transform.KindDate},
	{model.PathPassportIssuingCountry, "Issuing Country", []string{"Country of Issue", "Issuing State", "Issuing Authority"}, 85, transform.KindCountryName},
	{model.PathPassportPlaceOfIssue, "Place of Issue", []string{"Issued At", "Issue Place"}, 85, ""},

	{model.PathEmail, "Email Address", []string{"Email", "E-mail", "E-mail Address"}, 85, transform.KindLowercase},
	{model.PathPhone, "Phone Number", []string{"Telephone", "Mobile Number", "Contact Number", "Phone", "Mobile", "Tel"}, 80, transform.KindPhone},

	{model.PathStreetName, "Street Name", []string{"Street", "Street Address", "Address Line 1", "Address"}, 75, ""},
	{model.PathBuildingNumber, "Building Number", []string{"House Number", "Building No", "Flat Number", "Apartment"}, 80, ""},
	{model.PathCity, "City", []string{"Town", "City of Residence"}, 85, ""},
	{model.PathState, "State", []string{"Province", "Region", "Emirate", "County"}, 85, ""},
	{model.PathPostalCode, "Postal Code", []string{"Zip Code", "Post Code", "ZIP", "PO Box"}, 80, ""},
	{model.PathAddressCountry, "Country of Residence", []string{"Country", "Residence Country"}, 85, transform.KindCountryName},

	{model.PathTravelPurpose, "Purpose of Visit", []string{"Purpose of Travel", "Travel Purpose", "Reason for Visit", "Visa Type"}, 80, ""},
	{model.PathArrivalDate, "Arrival Date", []string{"Date of Arrival", "Intended Arrival Date", "Entry Date", "Date of Entry", "Travel Date"}, 80, transform.KindDate},
	{model.PathDepartureDate, "Departure Date", []string{"Date of Departure", "Intended Departure Date", "Exit Date", "Return Date"}, 80, transform.KindDate},
	{model.PathDestinationCountry, "Destination Country", []string{"Country of Destination", "Country to Visit"}, 85, transform.KindCountryName},

	{model.PathOccupation, "Occupation", []string{"Profession", "Job Title", "Designation"}, 85, ""},
	{model.PathEmployerName, "Employer Name", []string{"Employer", "Company Name", "Name of Employer", "Company"}, 80, ""},

	{model.PathSpouseName, "Spouse Name", []string{"Name of Spouse", "Husband Name", "Wife Name"}, 80, ""},
	{model.PathFatherName, "Father's Name", []string{"Father Name", "Name of Father"}, 85, ""},
	{model.PathMotherName, "Mother's Name", []string{"Mother Name", "Name of Mother"}, 85, ""},
}
