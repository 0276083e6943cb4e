package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxakollen/taxa-cli/internal/config"
	"github.com/taxakollen/taxa-cli/internal/model"
	"github.com/taxakollen/taxa-cli/internal/reference"
)

func testCfg() config.PipelineConfig {
	return config.PipelineConfig{
		AmountMin:     50,
		AmountMax:     100000,
		FeeNameMinLen: 3,
		FeeNameMaxLen: 500,
	}
}

func newTestValidator() *Validator {
	return New(testCfg(), reference.Default())
}

func baseRecord() model.FeeRecord {
	return model.FeeRecord{
		Municipality:   "Stockholm",
		FeeName:        "Bygglov nybyggnad enbostadshus",
		AmountRaw:      "24 500 kr",
		SourceURL:      "https://stockholm.se/taxor.pdf",
		ExtractionDate: "2026-05-12",
	}
}

func TestValidate_CleanRecord(t *testing.T) {
	v := newTestValidator()

	rec := v.Validate(baseRecord())
	assert.True(t, rec.Valid())

	amount, ok := rec.Amount()
	require.True(t, ok)
	assert.InDelta(t, 24500, amount, 0.001)
	assert.False(t, rec.ExtractedAt.IsZero())
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	v := newTestValidator()

	rec := v.Validate(model.FeeRecord{ExtractionDate: "2026-05-12"})
	assert.True(t, rec.HasError(model.MissingField("fee_name")))
	assert.True(t, rec.HasError(model.MissingField("municipality")))
	assert.True(t, rec.HasError(model.MissingField("source_url")))
}

func TestValidate_Idempotent(t *testing.T) {
	v := newTestValidator()

	rec := baseRecord()
	rec.Municipality = "  stockholms kommun "
	rec.FeeName = "Bygglov   nybyggnad"
	rec.AmountRaw = "not a number"

	once := v.Validate(rec)
	twice := v.Validate(once)
	assert.Equal(t, once, twice)
}

func TestValidate_MunicipalityNormalization(t *testing.T) {
	v := newTestValidator()

	for input, want := range map[string]string{
		"Stockholms kommun": "Stockholm",
		"GÄVLE":             "Gävle",
		"gbg":               "Göteborg",
		"upplands väsby":    "Upplands Väsby",
	} {
		rec := baseRecord()
		rec.Municipality = input
		assert.Equal(t, want, v.Validate(rec).Municipality, "input %q", input)
	}
}

func TestValidate_FeeName(t *testing.T) {
	v := newTestValidator()

	cases := []struct {
		name  string
		valid bool
	}{
		{"Bygglov nybyggnad", true},
		{"ab", false},           // too short
		{"123-456", false},      // no letters
		{"Test fee", false},     // placeholder
		{"Lorem ipsum", false},  // placeholder
		{"Timavgift", true},
	}
	for _, tc := range cases {
		rec := baseRecord()
		rec.FeeName = tc.name
		got := v.Validate(rec)
		assert.Equal(t, !tc.valid, got.HasError(model.ErrInvalidFeeName), "fee name %q", tc.name)
	}
}

func TestValidate_OrgNumber(t *testing.T) {
	v := newTestValidator()

	rec := baseRecord()
	rec.OrgNumber = "556036-0793"
	assert.True(t, v.Validate(rec).Valid())

	rec.OrgNumber = "556036-0794" // bad check digit
	assert.True(t, v.Validate(rec).HasError(model.ErrInvalidOrgNumber))

	rec.OrgNumber = "" // optional
	assert.True(t, v.Validate(rec).Valid())
}

func TestValidate_SeePDFSentinel(t *testing.T) {
	v := newTestValidator()

	rec := baseRecord()
	rec.AmountRaw = "See PDF"
	got := v.Validate(rec)

	assert.True(t, got.Valid())
	_, ok := got.Amount()
	assert.False(t, ok)
}

func TestValidate_UnparseableAmount(t *testing.T) {
	v := newTestValidator()

	rec := baseRecord()
	rec.AmountRaw = "kontakta kommunen"
	got := v.Validate(rec)

	assert.True(t, got.HasError(model.ErrUnparseableAmount))
	assert.Nil(t, got.AmountNumeric)
}

func TestValidate_AmountOutOfRange(t *testing.T) {
	v := newTestValidator()

	rec := baseRecord()
	rec.AmountRaw = "25 kr"
	got := v.Validate(rec)
	assert.True(t, got.HasError(model.ErrAmountOutOfRange))

	// parsed value is kept so merge can still compare amounts
	amount, ok := got.Amount()
	require.True(t, ok)
	assert.InDelta(t, 25, amount, 0.001)

	rec.AmountRaw = "150 000 kr"
	assert.True(t, v.Validate(rec).HasError(model.ErrAmountOutOfRange))
}

func TestValidate_InvalidDate(t *testing.T) {
	v := newTestValidator()

	rec := baseRecord()
	rec.ExtractionDate = "tolfte maj"
	got := v.Validate(rec)
	assert.True(t, got.HasError(model.ErrInvalidDate))
	assert.True(t, got.ExtractedAt.IsZero())
}

func TestValidate_DateLayouts(t *testing.T) {
	v := newTestValidator()

	for _, date := range []string{
		"2026-05-12T10:30:00Z",
		"2026-05-12 10:30:00",
		"2026-05-12",
		"12/05/2026",
		"12.05.2026",
		"20260512",
	} {
		rec := baseRecord()
		rec.ExtractionDate = date
		got := v.Validate(rec)
		assert.False(t, got.HasError(model.ErrInvalidDate), "date %q", date)
		assert.False(t, got.ExtractedAt.IsZero(), "date %q", date)
	}
}

func TestValidate_CurrencyAndBilling(t *testing.T) {
	v := newTestValidator()

	rec := baseRecord()
	rec.Currency = "kr"
	rec.BillingModel = "i efterskott"
	got := v.Validate(rec)

	assert.Equal(t, "SEK", got.Currency)
	assert.Equal(t, "efterhand", got.BillingModel)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1200", 1200, true},
		{"1 250:-", 1250, true},
		{"24 500 kr", 24500, true},
		{"1.250,50 kr", 1250.50, true},
		{"1250,50", 1250.50, true},
		{"Avgift: 895 kr/timme", 895, true},
		{"12.5", 12.5, true},
		{"", 0, false},
		{"kontakta kommunen", 0, false},
		{"Se taxa", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.raw)
		assert.Equal(t, tc.ok, ok, "raw %q", tc.raw)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 0.001, "raw %q", tc.raw)
		}
	}
}

func TestValidOrgNumber(t *testing.T) {
	assert.True(t, ValidOrgNumber("556036-0793"))
	assert.True(t, ValidOrgNumber("5560360793"))
	assert.True(t, ValidOrgNumber("165560360793")) // century prefix
	assert.False(t, ValidOrgNumber("556036-0792"))
	assert.False(t, ValidOrgNumber("55603-60793"))
	assert.False(t, ValidOrgNumber("abc"))
}
