package dedupe

import (
	"math"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/taxakollen/taxa-cli/internal/config"
	"github.com/taxakollen/taxa-cli/internal/model"
	"github.com/taxakollen/taxa-cli/internal/reference"
)

// Strategy is a pure duplicate predicate comparing a new record against
// a cluster representative. Strategies are tried in the configured
// order; the first that fires wins.
type Strategy struct {
	Name  string
	Match func(rec, rep model.FeeRecord) bool
}

// Strategies builds the ordered strategy list for the configured names.
// Unknown names have already been rejected by config validation.
func Strategies(cfg config.PipelineConfig) []Strategy {
	out := make([]Strategy, 0, len(cfg.DetectionStrategies))
	for _, name := range cfg.DetectionStrategies {
		switch name {
		case config.StrategyExact:
			out = append(out, Strategy{Name: name, Match: exactMatch})
		case config.StrategyFuzzy:
			out = append(out, Strategy{Name: name, Match: fuzzyMatcher(cfg)})
		case config.StrategySemantic:
			out = append(out, Strategy{Name: name, Match: semanticMatcher(cfg)})
		}
	}
	return out
}

func exactMatch(rec, rep model.FeeRecord) bool {
	return CanonicalKey(rec) == CanonicalKey(rep)
}

// fuzzyMatcher matches records from the same municipality (or source
// domain) and category whose fee names are highly similar and whose
// amounts agree within a small relative tolerance.
func fuzzyMatcher(cfg config.PipelineConfig) func(rec, rep model.FeeRecord) bool {
	return func(rec, rep model.FeeRecord) bool {
		if !sameMunicipality(rec, rep) || !sameCategory(rec, rep) {
			return false
		}
		if NameSimilarity(rec.FeeName, rep.FeeName) < cfg.FuzzyNameThreshold {
			return false
		}
		return amountsAgree(rec, rep, cfg.FuzzyAmountTolerance, true)
	}
}

// semanticMatcher catches the same fee described with different wording:
// same municipality and category, amounts within a looser tolerance,
// fee names free to differ. Because fee names carry no weight here the
// municipality comparison is strict: no domain fallback, since shared
// hosts (kommunalförbund portals) serve several municipalities whose
// fees must stay apart.
func semanticMatcher(cfg config.PipelineConfig) func(rec, rep model.FeeRecord) bool {
	return func(rec, rep model.FeeRecord) bool {
		if rec.Municipality == "" || !strings.EqualFold(rec.Municipality, rep.Municipality) {
			return false
		}
		if !sameCategory(rec, rep) {
			return false
		}
		return amountsAgree(rec, rep, cfg.SemanticAmountTolerance, false)
	}
}

// NameSimilarity is a token-sorted Jaro-Winkler ratio in [0,1], so
// "Timtaxa för livsmedelskontroll" and "Timavgift livsmedelskontroll"
// compare high despite word-order and prefix differences.
func NameSimilarity(a, b string) float64 {
	sa, sb := tokenSort(a), tokenSort(b)
	if sa == "" || sb == "" {
		return 0
	}
	if sa == sb {
		return 1
	}
	return matchr.JaroWinkler(sa, sb, false)
}

func sameMunicipality(rec, rep model.FeeRecord) bool {
	if rec.Municipality != "" && strings.EqualFold(rec.Municipality, rep.Municipality) {
		return true
	}
	da, db := reference.Domain(rec.SourceURL), reference.Domain(rep.SourceURL)
	return da != "" && da == db
}

// sameCategory treats two uncategorized records as matching.
func sameCategory(rec, rep model.FeeRecord) bool {
	return strings.EqualFold(strings.TrimSpace(rec.Category), strings.TrimSpace(rep.Category))
}

// amountsAgree checks relative amount distance against tol. When
// allowAbsent is set, two records both lacking an amount agree; a single
// missing amount never agrees.
func amountsAgree(rec, rep model.FeeRecord, tol float64, allowAbsent bool) bool {
	a, okA := rec.Amount()
	b, okB := rep.Amount()
	if !okA && !okB {
		return allowAbsent
	}
	if !okA || !okB {
		return false
	}
	ref := math.Max(math.Abs(a), math.Abs(b))
	if ref == 0 {
		return true
	}
	return math.Abs(a-b)/ref <= tol
}
