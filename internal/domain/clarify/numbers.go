package clarify

import (
	"strconv"
	"strings"
	"unicode"
)

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scaleWords = map[string]int{
	"hundred":  100,
	"thousand": 1000,
}

// Currency and filler words discarded while scanning for a number.
var noiseWords = map[string]bool{
	"birr": true, "etb": true, "dollar": true, "dollars": true, "usd": true,
	"cents": true, "br": true, "a": true, "an": true, "and": true, "of": true,
	"about": true, "around": true, "like": true, "please": true,
}

// ParseAmount extracts an integer from free text that may contain digits,
// spelled-out English number words (compositional, "five hundred" -> 500) and
// currency noise. It returns false when nothing numeric is found.
func ParseAmount(text string) (int, bool) {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	total, current := 0, 0
	found := false

	for _, tok := range tokens {
		// Digits win immediately: "500 birr" -> 500.
		if n, err := strconv.Atoi(tok); err == nil {
			return n, true
		}

		if v, ok := numberWords[tok]; ok {
			current += v
			found = true
			continue
		}
		if scale, ok := scaleWords[tok]; ok {
			if !found {
				continue // "hundred" with no leading word is noise
			}
			if current == 0 {
				current = 1
			}
			if scale == 1000 {
				total += current * scale
				current = 0
			} else {
				current *= scale
			}
			continue
		}
		if noiseWords[tok] {
			continue
		}
		// An unrelated word between number words ends the phrase.
		if found {
			break
		}
	}

	if !found {
		return 0, false
	}
	return total + current, true
}
