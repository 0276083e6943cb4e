package dedupe

import (
	"time"

	"go.uber.org/zap"

	"github.com/taxakollen/taxa-cli/internal/model"
	"github.com/taxakollen/taxa-cli/internal/score"
	"github.com/taxakollen/taxa-cli/internal/validate"
)

// Resolver collapses a cluster and a newly matched record into a single
// best representative.
type Resolver struct {
	validator     *validate.Validator
	scorer        *score.Scorer
	enableMerging bool
}

// NewResolver creates a Resolver. With merging disabled the first-seen
// record stays representative and later matches are only recorded as
// members.
func NewResolver(validator *validate.Validator, scorer *score.Scorer, enableMerging bool) *Resolver {
	return &Resolver{validator: validator, scorer: scorer, enableMerging: enableMerging}
}

// Resolve adds a matching record to the cluster and updates the
// representative through the detector's index. It returns the current
// representative.
func (r *Resolver) Resolve(d *Detector, clusterID string, rec model.FeeRecord, strategy string) model.FeeRecord {
	c := d.Cluster(clusterID)
	rec.ClusterID = clusterID
	c.Members = append(c.Members, rec)
	c.MatchedBy = append(c.MatchedBy, strategy)

	if !r.enableMerging {
		c.UpdatedAt = time.Now().UTC()
		zap.L().Debug("dedupe: duplicate suppressed, merging disabled",
			zap.String("cluster_id", clusterID),
			zap.String("fee_name", rec.FeeName),
		)
		return c.Representative
	}

	merged := r.Merge(c.Representative, rec)
	d.UpdateRepresentative(clusterID, merged)

	zap.L().Debug("dedupe: cluster merged",
		zap.String("cluster_id", clusterID),
		zap.String("strategy", strategy),
		zap.Float64("quality_score", merged.QualityScore),
		zap.Int("members", c.Size()),
	)
	return merged
}

// Merge combines two records describing the same fee. For every field
// the winner's value is preferred, falling back to the loser's when the
// winner lacks it; the winner is the record with the higher quality
// score, ties broken by most recent extraction date. The merged field
// set is re-validated (so errors the winning values resolve are dropped)
// and re-scored.
func (r *Resolver) Merge(a, b model.FeeRecord) model.FeeRecord {
	win, lose := rank(a, b)

	merged := win
	if merged.Municipality == "" {
		merged.Municipality = lose.Municipality
	}
	if merged.OrgNumber == "" {
		merged.OrgNumber = lose.OrgNumber
	}
	if merged.FeeName == "" {
		merged.FeeName = lose.FeeName
	}
	if merged.Category == "" {
		merged.Category = lose.Category
	}
	if merged.Description == "" {
		merged.Description = lose.Description
	}
	if merged.Currency == "" {
		merged.Currency = lose.Currency
	}
	if merged.BillingModel == "" {
		merged.BillingModel = lose.BillingModel
	}
	if merged.SourceURL == "" {
		merged.SourceURL = lose.SourceURL
	}
	if merged.SourceType == "" {
		merged.SourceType = lose.SourceType
	}
	if merged.ExtractionMethod == "" {
		merged.ExtractionMethod = lose.ExtractionMethod
	}
	// Amount fields travel together: a parsed amount beats an unparsed
	// raw string regardless of which record carries it.
	if merged.AmountNumeric == nil && lose.AmountNumeric != nil {
		merged.AmountNumeric = lose.AmountNumeric
		merged.AmountRaw = lose.AmountRaw
	} else if merged.AmountRaw == "" {
		merged.AmountRaw = lose.AmountRaw
	}
	if merged.ExtractionDate == "" {
		merged.ExtractionDate = lose.ExtractionDate
		merged.ExtractedAt = lose.ExtractedAt
	}

	// Keep the most confident evidence.
	if lose.ExtractionConfidence > merged.ExtractionConfidence {
		merged.ExtractionConfidence = lose.ExtractionConfidence
	}

	// Re-validate the merged field set: the union of both records'
	// errors minus every error the winning values resolve.
	merged = r.validator.Validate(merged)
	merged.QualityScore = r.scorer.Score(merged).Final
	merged.ClusterID = win.ClusterID

	return merged
}

// rank orders two records by quality score, breaking ties by most
// recent extraction date, then stably by the first argument.
func rank(a, b model.FeeRecord) (win, lose model.FeeRecord) {
	if b.QualityScore > a.QualityScore {
		return b, a
	}
	if b.QualityScore == a.QualityScore && b.ExtractedAt.After(a.ExtractedAt) {
		return b, a
	}
	return a, b
}
