package model

import "time"

// AmountSeePDF is the sentinel upstream extractors emit when a fee amount
// is only available inside a linked PDF. Records carrying it skip numeric
// amount parsing.
const AmountSeePDF = "See PDF"

// ValidationError is a per-field validation error code.
type ValidationError string

const (
	ErrInvalidOrgNumber  ValidationError = "INVALID_ORG_NUMBER"
	ErrUnparseableAmount ValidationError = "UNPARSEABLE_AMOUNT"
	ErrAmountOutOfRange  ValidationError = "AMOUNT_OUT_OF_RANGE"
	ErrInvalidDate       ValidationError = "INVALID_DATE"
	ErrInvalidFeeName    ValidationError = "INVALID_FEE_NAME"
)

// MissingField builds the error code for a missing required field,
// e.g. "MISSING_FIELD:municipality".
func MissingField(name string) ValidationError {
	return ValidationError("MISSING_FIELD:" + name)
}

// FeeRecord is one scraped assertion about a municipal fee. Raw fields
// come from the extraction collaborator; Municipality and AmountNumeric
// are normalized by the validator, ValidationErrors / QualityScore /
// ClusterID are filled in by the cleaning pipeline.
type FeeRecord struct {
	Municipality string `json:"municipality"`
	OrgNumber    string `json:"org_number,omitempty"`
	FeeName      string `json:"fee_name"`
	Category     string `json:"category,omitempty"`
	Description  string `json:"description,omitempty"`

	AmountRaw     string   `json:"amount_raw"`
	AmountNumeric *float64 `json:"amount_numeric,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	BillingModel  string   `json:"billing_model,omitempty"` // "förskott" or "efterhand"

	SourceURL      string `json:"source_url"`
	SourceType     string `json:"source_type,omitempty"` // "PDF" or "HTML"
	ExtractionDate string `json:"extraction_date"`

	ExtractionMethod     string  `json:"extraction_method,omitempty"`
	ExtractionConfidence float64 `json:"extraction_confidence"`

	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
	QualityScore     float64           `json:"quality_score"`
	ClusterID        string            `json:"cluster_id,omitempty"`

	// ExtractedAt is the parsed ExtractionDate, set by the validator.
	// Zero when the date failed to parse.
	ExtractedAt time.Time `json:"-"`
}

// HasError reports whether the record carries the given error code.
func (r FeeRecord) HasError(code ValidationError) bool {
	for _, e := range r.ValidationErrors {
		if e == code {
			return true
		}
	}
	return false
}

// Valid reports whether the record passed validation cleanly.
func (r FeeRecord) Valid() bool {
	return len(r.ValidationErrors) == 0
}

// Amount returns the parsed amount and whether one is present.
func (r FeeRecord) Amount() (float64, bool) {
	if r.AmountNumeric == nil {
		return 0, false
	}
	return *r.AmountNumeric, true
}
