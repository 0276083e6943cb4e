package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taxakollen/taxa-cli/internal/config"
	"github.com/taxakollen/taxa-cli/internal/model"
	"github.com/taxakollen/taxa-cli/internal/reference"
)

func defaultWeights() config.QualityWeights {
	return config.QualityWeights{
		Confidence:   0.30,
		Validation:   0.25,
		Method:       0.20,
		Completeness: 0.15,
		Source:       0.10,
	}
}

func TestScore_FullMarks(t *testing.T) {
	s := New(defaultWeights(), reference.Default())

	amount := 1250.0
	rec := model.FeeRecord{
		Municipality:         "Stockholm",
		FeeName:              "Bygglov",
		Category:             "bygglov",
		OrgNumber:            "556036-0793",
		AmountNumeric:        &amount,
		SourceURL:            "https://stockholmskommun.se/taxor.pdf",
		ExtractionMethod:     "bygglov_table",
		ExtractionConfidence: 1.0,
	}

	b := s.Score(rec)
	assert.Equal(t, 1.0, b.Confidence)
	assert.Equal(t, 1.0, b.Validation)
	assert.Equal(t, 0.95, b.Method)
	assert.Equal(t, 1.0, b.Completeness)
	assert.Equal(t, 1.0, b.Source) // .se kommun host + .pdf, capped
	// 0.30 + 0.25 + 0.20*0.95 + 0.15 + 0.10 = 0.99
	assert.InDelta(t, 0.99, b.Final, 0.001)
}

func TestScore_ValidationPenalty(t *testing.T) {
	s := New(defaultWeights(), reference.Default())

	rec := model.FeeRecord{
		ValidationErrors: []model.ValidationError{
			model.ErrUnparseableAmount,
			model.ErrInvalidDate,
		},
	}
	// 1 - 2/5 = 0.6
	assert.InDelta(t, 0.6, s.Score(rec).Validation, 0.001)

	rec.ValidationErrors = make([]model.ValidationError, 7)
	assert.Equal(t, 0.0, s.Score(rec).Validation) // floor at zero
}

func TestScore_Completeness(t *testing.T) {
	s := New(defaultWeights(), reference.Default())

	rec := model.FeeRecord{Category: "bygglov"}
	assert.InDelta(t, 1.0/3, s.Score(rec).Completeness, 0.001)

	amount := 100.0
	rec.AmountNumeric = &amount
	assert.InDelta(t, 2.0/3, s.Score(rec).Completeness, 0.001)
}

func TestScore_MethodFallback(t *testing.T) {
	s := New(defaultWeights(), reference.Default())

	assert.Equal(t, 0.4, s.Score(model.FeeRecord{ExtractionMethod: "mystery"}).Method)
	assert.Equal(t, 0.9, s.Score(model.FeeRecord{ExtractionMethod: "enhanced_pdf_table"}).Method)
}

func TestScore_ConfidenceClamped(t *testing.T) {
	s := New(defaultWeights(), reference.Default())

	assert.Equal(t, 1.0, s.Score(model.FeeRecord{ExtractionConfidence: 1.7}).Confidence)
	assert.Equal(t, 0.0, s.Score(model.FeeRecord{ExtractionConfidence: -0.2}).Confidence)
}

func TestScore_WeightsRenormalized(t *testing.T) {
	// weights summing to 2.0 must still produce a bounded score
	s := New(config.QualityWeights{
		Confidence:   0.6,
		Validation:   0.5,
		Method:       0.4,
		Completeness: 0.3,
		Source:       0.2,
	}, reference.Default())

	amount := 1250.0
	rec := model.FeeRecord{
		Category:             "bygglov",
		OrgNumber:            "556036-0793",
		AmountNumeric:        &amount,
		ExtractionConfidence: 1.0,
		ExtractionMethod:     "pdf",
		SourceURL:            "https://stockholm.se/taxa.pdf",
	}

	b := s.Score(rec)
	assert.LessOrEqual(t, b.Final, 1.0)
	assert.Greater(t, b.Final, 0.8)
}

func TestScore_BoundedForAllRecords(t *testing.T) {
	s := New(defaultWeights(), reference.Default())

	records := []model.FeeRecord{
		{},
		{ExtractionConfidence: 1.0, ExtractionMethod: "bygglov"},
		{ValidationErrors: make([]model.ValidationError, 10)},
	}
	for i, rec := range records {
		b := s.Score(rec)
		assert.GreaterOrEqual(t, b.Final, 0.0, "record %d", i)
		assert.LessOrEqual(t, b.Final, 1.0, "record %d", i)
	}
}
