package validate

import "regexp"

var orgNumberRe = regexp.MustCompile(`^\d{6}-?\d{4}$|^\d{12}$`)

// ValidOrgNumber checks a Swedish organization number: 10 digits with an
// optional hyphen after the sixth, and a valid Luhn check digit. A
// 12-digit form with century prefix is accepted and reduced to 10.
func ValidOrgNumber(orgNr string) bool {
	if !orgNumberRe.MatchString(orgNr) {
		return false
	}

	digits := make([]int, 0, 12)
	for _, r := range orgNr {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) == 12 {
		digits = digits[2:]
	}

	checksum := 0
	for i := 0; i < 9; i++ {
		n := digits[i]
		if i%2 == 0 {
			n *= 2
			if n > 9 {
				n = n/10 + n%10
			}
		}
		checksum += n
	}
	return (10-checksum%10)%10 == digits[9]
}
