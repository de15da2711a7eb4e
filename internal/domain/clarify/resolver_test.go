package clarify

import (
	"testing"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCorrection(t *testing.T) {
	tests := []struct {
		message  string
		expected bool
	}{
		{"actually make it 500", true},
		{"no wait, mpesa", true},
		{"I meant the water one", true},
		{"scratch that", true},
		{"use telebirr instead", true},
		{"my mistake, 100", true},
		{"250", false},
		{"yes", false},
		{"the actual fund", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCorrection(tt.message))
		})
	}
}

func pendingOptions() *PendingClarification {
	return &PendingClarification{
		Field: "target",
		Options: []ScoredEntity{
			{Entity: Entity{ID: "tgt-002", Name: "Education for All Ethiopia", Category: "education"}, Score: 0.8},
			{Entity: Entity{ID: "tgt-003", Name: "Educate the Children Fund", Category: "education"}, Score: 0.75},
		},
	}
}

func TestResolveReplyByNumber(t *testing.T) {
	pending := pendingOptions()

	ent, ok := ResolveReply(pending, "2")
	require.True(t, ok)
	assert.Equal(t, "tgt-003", ent.ID)

	ent, ok = ResolveReply(pending, "the first one")
	require.True(t, ok)
	assert.Equal(t, "tgt-002", ent.ID)

	_, ok = ResolveReply(pending, "7")
	assert.False(t, ok, "out-of-range position fails")

	_, ok = ResolveReply(pending, "0")
	assert.False(t, ok)
}

func TestResolveReplyByText(t *testing.T) {
	pending := pendingOptions()

	ent, ok := ResolveReply(pending, "the children fund")
	require.True(t, ok)
	assert.Equal(t, "tgt-003", ent.ID)

	ent, ok = ResolveReply(pending, "education for all ethiopia")
	require.True(t, ok)
	assert.Equal(t, "tgt-002", ent.ID)

	_, ok = ResolveReply(pending, "something else entirely unrelated")
	assert.False(t, ok)
}

func TestResolveReplyEmptyPending(t *testing.T) {
	_, ok := ResolveReply(nil, "1")
	assert.False(t, ok)

	_, ok = ResolveReply(&PendingClarification{Field: "target"}, "1")
	assert.False(t, ok)
}

func TestPendingRoundTripThroughSession(t *testing.T) {
	sess := session.New("user-1")
	sess.EnterFlow("donating", "choose_target")

	_, ok := Pending(sess)
	assert.False(t, ok)

	require.NoError(t, SavePending(sess, "target", pendingOptions().Options))

	pending, ok := Pending(sess)
	require.True(t, ok)
	assert.Equal(t, "target", pending.Field)
	require.Len(t, pending.Options, 2)
	assert.Equal(t, "tgt-002", pending.Options[0].ID)

	ClearPending(sess)
	_, ok = Pending(sess)
	assert.False(t, ok)
}

func TestFormatOptions(t *testing.T) {
	out := FormatOptions(pendingOptions().Options)
	assert.Equal(t, "1. Education for All Ethiopia (education)\n2. Educate the Children Fund (education)", out)
}
