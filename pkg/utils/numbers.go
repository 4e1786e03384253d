package utils

import (
	"strconv"
	"strings"
)

var writtenNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"a": 1, "an": 1, "a couple": 2, "couple": 2, "a few": 3, "few": 3,
}

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14,
	"last": -1,
}

// NumberPattern matches any token ParseNumber understands.
const NumberPattern = `\d{1,2}(?:st|nd|rd|th)?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|eleventh|twelfth|thirteenth|fourteenth|last`

// ParseNumber reads digits, digit ordinals ("2nd"), number words and ordinal
// words. "last" returns -1 so callers can resolve it against their own length.
func ParseNumber(token string) (int, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return 0, false
	}
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if len(t) > len(suffix) && strings.HasSuffix(t, suffix) {
			if n, err := strconv.Atoi(strings.TrimSuffix(t, suffix)); err == nil {
				return n, true
			}
		}
	}
	if n, err := strconv.Atoi(t); err == nil {
		return n, true
	}
	if n, ok := writtenNumbers[t]; ok {
		return n, true
	}
	if n, ok := ordinals[t]; ok {
		return n, true
	}
	return 0, false
}
