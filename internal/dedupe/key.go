package dedupe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/taxakollen/taxa-cli/internal/model"
)

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeFeeName lowercases, strips punctuation and collapses
// whitespace so spelling noise does not defeat the exact key.
func NormalizeFeeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = nonWordRe.ReplaceAllString(name, "")
	return spaceRe.ReplaceAllString(name, " ")
}

// stopWords are Swedish filler words ignored when comparing fee names.
var stopWords = map[string]bool{
	"för": true, "av": true, "till": true, "från": true,
	"med": true, "utan": true, "per": true, "och": true,
	"kr": true, "kronor": true, "sek": true,
}

// feeSynonyms collapses interchangeable fee nouns before comparison.
var feeSynonyms = map[string]string{
	"taxa": "avgift", "kostnad": "avgift", "pris": "avgift", "belopp": "avgift",
}

// tokenSort returns the name's significant tokens sorted and rejoined,
// so word-order variations and filler words do not defeat string
// similarity.
func tokenSort(name string) string {
	var tokens []string
	for _, tok := range strings.Fields(NormalizeFeeName(name)) {
		if stopWords[tok] {
			continue
		}
		if canonical, ok := feeSynonyms[tok]; ok {
			tok = canonical
		}
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// CanonicalKey derives the deterministic exact-match key: municipality,
// normalized fee name, amount rounded to the nearest integer (or the raw
// string when unparsed), category and source URL.
func CanonicalKey(rec model.FeeRecord) string {
	amount := strings.ToLower(strings.TrimSpace(rec.AmountRaw))
	if a, ok := rec.Amount(); ok {
		amount = fmt.Sprintf("%.0f", a)
	}

	return strings.Join([]string{
		strings.ToLower(rec.Municipality),
		NormalizeFeeName(rec.FeeName),
		amount,
		strings.ToLower(rec.Category),
		strings.ToLower(rec.SourceURL),
	}, "|")
}
