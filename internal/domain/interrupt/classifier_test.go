package interrupt

import (
	"testing"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		state    session.FlowState
		expected Kind
	}{
		{"plain answer passes through", "250 birr", session.StateInFlow, NotInterrupt},
		{"cancel is navigation", "cancel", session.StateInFlow, Navigation},
		{"never mind is navigation", "never mind", session.StateInFlow, Navigation},
		{"go back is navigation", "go back", session.StateInFlow, Navigation},
		{"start over is navigation", "start over", session.StateInFlow, Navigation},
		{"mixed case and padding", "  STOP  ", session.StateInFlow, Navigation},
		{"what lead-in is a question", "what is mpesa", session.StateInFlow, Question},
		{"how lead-in is a question", "how does this work", session.StateInFlow, Question},
		{"can you lead-in is a question", "can you list the causes", session.StateInFlow, Question},
		{"trailing question mark", "is this safe?", session.StateInFlow, Question},
		{"navigation wins over question shape", "stop asking me?", session.StateInFlow, Navigation},
		{"idle sessions never classify", "cancel", session.StateIdle, NotInterrupt},
		{"idle question is not an interrupt", "what is mpesa?", session.StateIdle, NotInterrupt},
		{"empty message", "   ", session.StateInFlow, NotInterrupt},
		{"phrase must be whole word", "cancellation policy please", session.StateInFlow, NotInterrupt},
		{"whatsapp is not a question word", "whatsapp me", session.StateInFlow, NotInterrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.message, tt.state))
		})
	}
}

func TestIsResumeRequest(t *testing.T) {
	tests := []struct {
		message  string
		expected bool
	}{
		{"continue", true},
		{"Resume", true},
		{"go on", true},
		{"keep going", true},
		{"back to the donation", true},
		{"where was i", true},
		{"pick up where we left off", true},
		{"cancel", false},
		{"250", false},
		{"continuealot", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsResumeRequest(tt.message))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "navigation", Navigation.String())
	assert.Equal(t, "question", Question.String())
	assert.Equal(t, "none", NotInterrupt.String())
}
