// Package phone turns loosely formatted phone input into a dialable E.164-shaped string.
//
// The normalization is a heuristic for North American numbers: it does not know
// about country codes beyond NANP and will happily prefix anything else with '+'.
package phone

import (
	"regexp"
	"strings"
)

var e164Digits = regexp.MustCompile(`^[1-9]\d{1,14}$`)

// Normalize strips every non-digit and prefixes the result:
// 11 digits starting with 1 get "+", exactly 10 digits get "+1",
// anything else gets "+" as is.
func Normalize(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	switch {
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	case len(digits) == 10:
		return "+1" + digits
	default:
		return "+" + digits
	}
}

// IsE164 reports whether canonical, without its leading '+', has 2-15 digits
// and no leading zero.
func IsE164(canonical string) bool {
	return e164Digits.MatchString(strings.TrimPrefix(canonical, "+"))
}
