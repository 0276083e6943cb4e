package validate

import (
	"regexp"
	"strconv"
	"strings"
)

// amountRe finds the first decimal number in Swedish fee text. Accepts
// space or dot as thousands separator and comma as decimal separator, so
// "1 250:-", "1.250,50 kr" and "1200" all match.
var amountRe = regexp.MustCompile(`\d{1,3}(?:[ .]\d{3})+(?:,\d+)?|\d+(?:[.,]\d+)?`)

var thousandsGroupsRe = regexp.MustCompile(`[ .]\d{3}(?:[ .]\d{3})*$`)

// ParseAmount extracts the first numeric amount from raw fee text.
// Returns false when the text contains no parseable number.
func ParseAmount(raw string) (float64, bool) {
	m := amountRe.FindString(raw)
	if m == "" {
		return 0, false
	}

	if i := strings.IndexByte(m, ','); i >= 0 {
		// Comma is the decimal separator; everything before it is the
		// integer part with optional thousands separators.
		intPart := strings.NewReplacer(" ", "", ".", "").Replace(m[:i])
		m = intPart + "." + m[i+1:]
	} else if strings.ContainsAny(m, " .") && thousandsGroupsRe.MatchString(m) {
		// "1 250" / "1.250" — thousands groups, no decimal part.
		m = strings.NewReplacer(" ", "", ".", "").Replace(m)
	}

	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
