package model

// CanonicalPath is a dotted identifier into the applicant profile schema.
// The set below is closed; nothing outside it is ever produced by the matcher.
type CanonicalPath string

// Names
const (
	PathGivenName  CanonicalPath = "names.given"
	PathFamilyName CanonicalPath = "names.family"
	PathMiddleName CanonicalPath = "names.middle"
	PathFullName   CanonicalPath = "names.full"
)

// Personal details
const (
	PathDateOfBirth   CanonicalPath = "personalDetails.dateOfBirth"
	PathPlaceOfBirth  CanonicalPath = "personalDetails.placeOfBirth"
	PathGender        CanonicalPath = "personalDetails.gender"
	PathNationality   CanonicalPath = "personalDetails.nationality"
	PathMaritalStatus CanonicalPath = "personalDetails.maritalStatus"
)

// Passport
const (
	PathPassportNumber         CanonicalPath = "passport.number"
	PathPassportIssueDate      CanonicalPath = "passport.issueDate"
	PathPassportExpiryDate     CanonicalPath = "passport.expiryDate"
	PathPassportIssuingCountry CanonicalPath = "passport.issuingCountry"
	PathPassportPlaceOfIssue   CanonicalPath = "passport.placeOfIssue"
)

// Contact and address
const (
	PathEmail          CanonicalPath = "contact.email"
	PathPhone          CanonicalPath = "contact.phone"
	PathStreetName     CanonicalPath = "currentAddress.streetName"
	PathBuildingNumber CanonicalPath = "currentAddress.buildingNumber"
	PathCity           CanonicalPath = "currentAddress.city"
	PathState          CanonicalPath = "currentAddress.state"
	PathPostalCode     CanonicalPath = "currentAddress.postalCode"
	PathAddressCountry CanonicalPath = "currentAddress.country"
)

// Travel, employment and family
const (
	PathTravelPurpose      CanonicalPath = "travel.purpose"
	PathArrivalDate        CanonicalPath = "travel.arrivalDate"
	PathDepartureDate      CanonicalPath = "travel.departureDate"
	PathDestinationCountry CanonicalPath = "travel.destinationCountry"
	PathOccupation         CanonicalPath = "employment.occupation"
	PathEmployerName       CanonicalPath = "employment.employerName"
	PathSpouseName         CanonicalPath = "family.spouseName"
	PathFatherName         CanonicalPath = "family.fatherName"
	PathMotherName         CanonicalPath = "family.motherName"
)

var canonicalPaths = []CanonicalPath{
	PathGivenName, PathFamilyName, PathMiddleName, PathFullName,
	PathDateOfBirth, PathPlaceOfBirth, PathGender, PathNationality, PathMaritalStatus,
	PathPassportNumber, PathPassportIssueDate, PathPassportExpiryDate, PathPassportIssuingCountry, PathPassportPlaceOfIssue,
	PathEmail, PathPhone,
	PathStreetName, PathBuildingNumber, PathCity, PathState, PathPostalCode, PathAddressCountry,
	PathTravelPurpose, PathArrivalDate, PathDepartureDate, PathDestinationCountry,
	PathOccupation, PathEmployerName,
	PathSpouseName, PathFatherName, PathMotherName,
}

var (
	canonicalSet = func() map[CanonicalPath]struct{} {
		m := make(map[CanonicalPath]struct{}, len(canonicalPaths))
		for _, p := range canonicalPaths {
			m[p] = struct{}{}
		}
		return m
	}()

	datePaths = map[CanonicalPath]bool{
		PathDateOfBirth:        true,
		PathPassportIssueDate:  true,
		PathPassportExpiryDate: true,
		PathArrivalDate:        true,
		PathDepartureDate:      true,
	}

	criticalPaths = map[CanonicalPath]bool{
		PathPassportNumber:     true,
		PathPassportExpiryDate: true,
		PathGivenName:          true,
		PathFamilyName:         true,
		PathFullName:           true,
		PathDateOfBirth:        true,
		PathNationality:        true,
	}
)

// AllCanonicalPaths returns every canonical path in schema order
func AllCanonicalPaths() []CanonicalPath {
	out := make([]CanonicalPath, len(canonicalPaths))
	copy(out, canonicalPaths)
	return out
}

// IsCanonical reports whether p belongs to the closed canonical set
func IsCanonical(p CanonicalPath) bool {
	_, ok := canonicalSet[p]
	return ok
}

// IsDatePath reports whether values at p are calendar dates
func IsDatePath(p CanonicalPath) bool {
	return datePaths[p]
}

// IsCritical reports whether p is weighted more heavily in overall confidence
func IsCritical(p CanonicalPath) bool {
	return criticalPaths[p]
}
