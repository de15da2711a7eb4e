package clarify

import "strings"

// correctionSignals is the closed set of phrases that signal the user is
// correcting a value they already gave rather than answering the current
// question.
var correctionSignals = []string{
	"actually",
	"i meant",
	"i mean",
	"no wait",
	"wait no",
	"instead",
	"not that",
	"scratch that",
	"change that",
	"my mistake",
	"sorry i said",
}

// IsCorrection reports whether the message signals a correction. When true,
// the caller should re-enter entry handling for the most recently set field
// rather than advancing the flow.
func IsCorrection(message string) bool {
	msg := normalize(message)
	if msg == "" {
		return false
	}
	padded := " " + msg + " "
	for _, signal := range correctionSignals {
		if strings.Contains(padded, " "+signal+" ") {
			return true
		}
	}
	return false
}
