// Package score computes the composite quality score for validated fee
// records.
package score

import (
	"go.uber.org/zap"

	"github.com/taxakollen/taxa-cli/internal/config"
	"github.com/taxakollen/taxa-cli/internal/model"
	"github.com/taxakollen/taxa-cli/internal/reference"
	"github.com/taxakollen/taxa-cli/internal/validate"
)

// Breakdown holds the individual sub-signal scores and the final
// weighted score.
type Breakdown struct {
	Confidence   float64 `json:"confidence"`
	Validation   float64 `json:"validation"`
	Method       float64 `json:"method"`
	Completeness float64 `json:"completeness"`
	Source       float64 `json:"source"`
	Final        float64 `json:"final"`
}

// Scorer combines sub-signals into one 0.0-1.0 score per record.
// Weights are normalized at construction so configurations that do not
// sum to 1.0 still produce bounded scores.
type Scorer struct {
	weights config.QualityWeights
	tables  *reference.Tables
}

// New creates a Scorer. Weights summing to zero have already been
// rejected by config validation.
func New(weights config.QualityWeights, tables *reference.Tables) *Scorer {
	if sum := weights.Sum(); sum > 0 && sum != 1.0 {
		zap.L().Warn("score: quality weights re-normalized", zap.Float64("sum", sum))
		weights.Confidence /= sum
		weights.Validation /= sum
		weights.Method /= sum
		weights.Completeness /= sum
		weights.Source /= sum
	}
	return &Scorer{weights: weights, tables: tables}
}

// Score computes the composite quality score for a validated record.
func (s *Scorer) Score(rec model.FeeRecord) Breakdown {
	b := Breakdown{
		Confidence:   clamp01(rec.ExtractionConfidence),
		Validation:   validationScore(rec),
		Method:       s.tables.MethodScore(rec.ExtractionMethod),
		Completeness: completeness(rec),
		Source:       s.tables.SourceScore(rec.SourceURL),
	}

	w := s.weights
	b.Final = clamp01(
		w.Confidence*b.Confidence +
			w.Validation*b.Validation +
			w.Method*b.Method +
			w.Completeness*b.Completeness +
			w.Source*b.Source,
	)
	return b
}

// validationScore maps error count to [0,1]: zero errors scores 1.0,
// one error per critical check (or more) scores 0.
func validationScore(rec model.FeeRecord) float64 {
	frac := float64(len(rec.ValidationErrors)) / float64(validate.CriticalChecks)
	if frac > 1 {
		frac = 1
	}
	return 1 - frac
}

// completeness is the fraction of optional fields present: category,
// numeric amount, organization number.
func completeness(rec model.FeeRecord) float64 {
	present := 0
	if rec.Category != "" {
		present++
	}
	if rec.AmountNumeric != nil {
		present++
	}
	if rec.OrgNumber != "" {
		present++
	}
	return float64(present) / 3
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
