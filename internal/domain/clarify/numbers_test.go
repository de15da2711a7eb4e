package clarify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		ok       bool
	}{
		{"bare digits", "50", 50, true},
		{"digits with currency", "500 birr", 500, true},
		{"digits with etb", "give 250 etb", 250, true},
		{"single word", "fifty", 50, true},
		{"compound tens and units", "twenty five", 25, true},
		{"hundreds", "five hundred", 500, true},
		{"hundreds with and", "one hundred and fifty", 150, true},
		{"thousands", "two thousand", 2000, true},
		{"thousands with hundreds", "two thousand five hundred", 2500, true},
		{"bare hundred is noise", "a hundred", 0, false},
		{"word with currency noise", "about fifty birr please", 50, true},
		{"digits win over words", "send 75 not seventy", 75, true},
		{"no number", "invalid", 0, false},
		{"empty", "", 0, false},
		{"punctuation only", "?!.", 0, false},
		{"unrelated sentence", "my dog ate it", 0, false},
		{"zero", "zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestParseAmountStopsAtUnrelatedWord(t *testing.T) {
	// An unrelated word ends the number phrase; the trailing "hundred" must
	// not scale what was already read.
	got, ok := ParseAmount("five goats hundred")
	assert.True(t, ok)
	assert.Equal(t, 5, got)
}
