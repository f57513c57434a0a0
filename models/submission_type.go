package models

// Helper constants for submission types
const (
	SubmissionTypePatent                 = "patent"
	SubmissionTypeTrademark              = "trademark"
	SubmissionTypeCopyright              = "copyright"
	SubmissionTypeIndustrialDesign       = "industrial_design"
	SubmissionTypePlantVariety           = "plant_variety"
	SubmissionTypeGeographicalIndication = "geographical_indication"
)

// ValidSubmissionTypes returns a slice of valid submission types
func ValidSubmissionTypes() []string {
	return []string{
		SubmissionTypePatent,
		SubmissionTypeTrademark,
		SubmissionTypeCopyright,
		SubmissionTypeIndustrialDesign,
		SubmissionTypePlantVariety,
		SubmissionTypeGeographicalIndication,
	}
}

// IsSubmissionTypeValid checks if the given submission type is valid
func IsSubmissionTypeValid(submissionType string) bool {
	for _, validType := range ValidSubmissionTypes() {
		if submissionType == validType {
			return true
		}
	}
	return false
}

// SubmissionTypeCode returns the short code used in submission numbers and certificates.
func SubmissionTypeCode(submissionType string) string {
	switch submissionType {
	case SubmissionTypePatent:
		return "PT"
	case SubmissionTypeTrademark:
		return "TM"
	case SubmissionTypeCopyright:
		return "CR"
	case SubmissionTypeIndustrialDesign:
		return "ID"
	case SubmissionTypePlantVariety:
		return "PV"
	case SubmissionTypeGeographicalIndication:
		return "GI"
	}
	return "XX"
}
