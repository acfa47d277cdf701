package constants

// AbsentReason explains why a configured field carries no value.
type AbsentReason string

const (
	ReasonHeaderNotFound      AbsentReason = "header-not-found"
	ReasonExtractionEmpty     AbsentReason = "extraction-empty"
	ReasonFormatUnrecoverable AbsentReason = "format-unrecoverable"
)

// FieldStatus is the tag of a field value.
type FieldStatus string

const (
	FieldPresent FieldStatus = "present"
	FieldAbsent  FieldStatus = "absent"
)
