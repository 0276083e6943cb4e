// Package validate normalizes raw fee records and flags per-field
// validation errors. Records are never dropped here: items with errors
// pass through carrying their codes so downstream consumers can audit
// gaps in the source data.
package validate

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taxakollen/taxa-cli/internal/config"
	"github.com/taxakollen/taxa-cli/internal/model"
	"github.com/taxakollen/taxa-cli/internal/reference"
)

// forbiddenNameRe rejects placeholder content that extractors sometimes
// pick up from template pages.
var forbiddenNameRe = regexp.MustCompile(`(?i)lorem ipsum|test\s*fee|example|placeholder|dummy|sample`)

// punctOnlyRe matches fee names with no letters at all.
var punctOnlyRe = regexp.MustCompile(`^[\d\s\-_.,:;]+$`)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// dateLayouts are the date formats the extractor fleet produces.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
	"20060102",
}

// Validator normalizes fields and records validation errors. It is pure
// and idempotent: validating an already-validated record yields the same
// output.
type Validator struct {
	cfg    config.PipelineConfig
	tables *reference.Tables
}

// New creates a Validator.
func New(cfg config.PipelineConfig, tables *reference.Tables) *Validator {
	return &Validator{cfg: cfg, tables: tables}
}

// Validate returns the record with normalized fields and a (possibly
// empty) ordered list of validation error codes.
func (v *Validator) Validate(rec model.FeeRecord) model.FeeRecord {
	rec.ValidationErrors = nil

	rec.FeeName = multiSpaceRe.ReplaceAllString(strings.TrimSpace(rec.FeeName), " ")
	rec.Municipality = v.tables.CanonicalMunicipality(rec.Municipality)
	rec.SourceURL = strings.TrimSpace(rec.SourceURL)
	rec.Currency = normalizeCurrency(rec.Currency)
	rec.BillingModel = v.tables.NormalizeBilling(rec.BillingModel)

	// Required fields.
	for _, f := range []struct{ name, value string }{
		{"fee_name", rec.FeeName},
		{"municipality", rec.Municipality},
		{"source_url", rec.SourceURL},
	} {
		if f.value == "" {
			rec.ValidationErrors = append(rec.ValidationErrors, model.MissingField(f.name))
		}
	}

	if rec.FeeName != "" {
		rec.ValidationErrors = append(rec.ValidationErrors, v.checkFeeName(rec.FeeName)...)
	}

	if rec.OrgNumber != "" && !ValidOrgNumber(rec.OrgNumber) {
		rec.ValidationErrors = append(rec.ValidationErrors, model.ErrInvalidOrgNumber)
	}

	rec = v.parseAmount(rec)

	rec.ExtractedAt = time.Time{}
	if t, ok := parseDate(rec.ExtractionDate); ok {
		rec.ExtractedAt = t
	} else {
		rec.ValidationErrors = append(rec.ValidationErrors, model.ErrInvalidDate)
	}

	if len(rec.ValidationErrors) > 0 {
		zap.L().Debug("validate: record has errors",
			zap.String("municipality", rec.Municipality),
			zap.String("fee_name", rec.FeeName),
			zap.Int("errors", len(rec.ValidationErrors)),
		)
	}

	return rec
}

func (v *Validator) checkFeeName(name string) []model.ValidationError {
	if len([]rune(name)) < v.cfg.FeeNameMinLen || len([]rune(name)) > v.cfg.FeeNameMaxLen {
		return []model.ValidationError{model.ErrInvalidFeeName}
	}
	if forbiddenNameRe.MatchString(name) || punctOnlyRe.MatchString(name) {
		return []model.ValidationError{model.ErrInvalidFeeName}
	}
	return nil
}

// parseAmount fills AmountNumeric from AmountRaw. The "See PDF" sentinel
// skips parsing entirely: the amount is knowably absent, not malformed.
func (v *Validator) parseAmount(rec model.FeeRecord) model.FeeRecord {
	raw := strings.TrimSpace(rec.AmountRaw)
	if raw == "" || strings.EqualFold(raw, model.AmountSeePDF) {
		rec.AmountNumeric = nil
		return rec
	}

	amount, ok := ParseAmount(raw)
	if !ok {
		rec.AmountNumeric = nil
		rec.ValidationErrors = append(rec.ValidationErrors, model.ErrUnparseableAmount)
		return rec
	}

	rec.AmountNumeric = &amount
	if amount < v.cfg.AmountMin || amount > v.cfg.AmountMax {
		rec.ValidationErrors = append(rec.ValidationErrors, model.ErrAmountOutOfRange)
	}
	return rec
}

func normalizeCurrency(currency string) string {
	switch strings.ToLower(strings.TrimSpace(currency)) {
	case "kr", "kronor", "sek":
		return "SEK"
	case "":
		return ""
	default:
		return strings.ToUpper(strings.TrimSpace(currency))
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CriticalChecks is the number of required/critical validation checks,
// used by the quality scorer's validation sub-score.
const CriticalChecks = 5
