// Package interrupt decides whether an incoming message continues the
// current flow, interrupts it, or asks to resume a paused one. It is
// stateless; the caller decides whether to pause or resume based on the
// classification.
package interrupt

import (
	"strings"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
)

// Kind labels an interrupting message.
type Kind int

const (
	// NotInterrupt means the message is ordinary flow input.
	NotInterrupt Kind = iota
	// Navigation means the user wants to cancel, stop or step back.
	Navigation
	// Question means the user asked something unrelated mid-flow.
	Question
)

func (k Kind) String() string {
	switch k {
	case Navigation:
		return "navigation"
	case Question:
		return "question"
	default:
		return "none"
	}
}

// Closed phrase sets. Navigation is checked before questions: "stop" inside
// a question still cancels.
var navigationPhrases = []string{
	"cancel",
	"stop",
	"quit",
	"never mind",
	"nevermind",
	"forget it",
	"go back",
	"back",
	"start over",
	"main menu",
}

var questionLeadIns = []string{
	"what",
	"who",
	"where",
	"when",
	"why",
	"how",
	"which",
	"can you",
	"could you",
	"do you",
	"is there",
	"are there",
	"tell me",
}

var resumePhrases = []string{
	"continue",
	"resume",
	"go on",
	"keep going",
	"back to",
	"where was i",
	"where were we",
	"pick up",
}

// Classify labels a message against the current session state. Messages are
// never interrupts while the session is idle, regardless of content.
func Classify(message string, state session.FlowState) Kind {
	if state == session.StateIdle {
		return NotInterrupt
	}

	msg := normalize(message)
	if msg == "" {
		return NotInterrupt
	}

	for _, phrase := range navigationPhrases {
		if matchesPhrase(msg, phrase) {
			return Navigation
		}
	}
	for _, lead := range questionLeadIns {
		if strings.HasPrefix(msg, lead+" ") || msg == lead || strings.HasSuffix(msg, "?") && strings.Contains(msg, lead+" ") {
			return Question
		}
	}
	if strings.HasSuffix(msg, "?") {
		return Question
	}
	return NotInterrupt
}

// IsResumeRequest reports whether the message asks to pick up a paused flow.
// It is usable regardless of session state.
func IsResumeRequest(message string) bool {
	msg := normalize(message)
	if msg == "" {
		return false
	}
	for _, phrase := range resumePhrases {
		if matchesPhrase(msg, phrase) {
			return true
		}
	}
	return false
}

// matchesPhrase matches a closed-set phrase either as the whole message or
// as a leading phrase ("back to donating").
func matchesPhrase(msg, phrase string) bool {
	return msg == phrase || strings.HasPrefix(msg, phrase+" ")
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
