package flow

import (
	"context"
	"testing"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMachine(t *testing.T) (*Machine, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	return NewMachine(DefaultRegistry(), store, 30*time.Minute, zap.NewNop()), store
}

func TestStartPersistsSessionAtFirstStep(t *testing.T) {
	machine, store := newTestMachine(t)
	ctx := context.Background()

	sess, err := machine.Start(ctx, "user-1", KindDonating)
	require.NoError(t, err)
	assert.Equal(t, KindDonating, sess.FlowKind)
	assert.Equal(t, StepChooseTarget, sess.CurrentStep)

	stored, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, StepChooseTarget, stored.CurrentStep)
}

func TestStartUnknownFlowFails(t *testing.T) {
	machine, _ := newTestMachine(t)

	_, err := machine.Start(context.Background(), "user-1", "haggling")
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestAdvanceWalksDonationFlow(t *testing.T) {
	machine, _ := newTestMachine(t)
	sess, err := machine.StartSession("user-1", KindDonating)
	require.NoError(t, err)

	res, err := machine.Advance(sess, "Clean Water Initiative")
	require.NoError(t, err)
	assert.Equal(t, StepEnterAmount, res.Step)
	assert.False(t, res.Completed)

	res, err = machine.Advance(sess, "two hundred birr")
	require.NoError(t, err)
	assert.Equal(t, StepChooseMethod, res.Step)

	amount, _ := sess.Field(FieldAmount)
	assert.Equal(t, "200", amount, "amount is normalized to digits")

	res, err = machine.Advance(sess, "  Telebirr ")
	require.NoError(t, err)
	assert.Equal(t, StepConfirm, res.Step)
	assert.Contains(t, res.Prompt, "200 birr")
	assert.Contains(t, res.Prompt, "Clean Water Initiative")
	assert.Contains(t, res.Prompt, "telebirr")

	res, err = machine.Advance(sess, "yes")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, machine.IsComplete(sess))

	confirmed, _ := sess.Field(FieldConfirmed)
	assert.Equal(t, "yes", confirmed)
}

func TestAdvanceValidationFailureLeavesSessionUnchanged(t *testing.T) {
	machine, _ := newTestMachine(t)
	sess, err := machine.StartSession("user-1", KindDonating)
	require.NoError(t, err)
	require.NoError(t, advanceTo(machine, sess, "Water Fund"))

	before := sess.Clone()

	res, err := machine.Advance(sess, "a bucket of goats")
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, StepEnterAmount, vErr.Step)
	assert.Equal(t, FieldAmount, vErr.Field)

	assert.Equal(t, StepEnterAmount, res.Step, "step does not move")
	assert.NotEmpty(t, res.Prompt, "same question is asked again")
	assert.Equal(t, before.CurrentStep, sess.CurrentStep)
	assert.Equal(t, before.Data, sess.Data)
}

func advanceTo(m *Machine, sess *session.Session, inputs ...string) error {
	for _, input := range inputs {
		if _, err := m.Advance(sess, input); err != nil {
			return err
		}
	}
	return nil
}

func TestAdvanceIdleSessionFails(t *testing.T) {
	machine, _ := newTestMachine(t)
	sess := session.New("user-1")

	_, err := machine.Advance(sess, "anything")
	assert.ErrorIs(t, err, ErrNoActiveFlow)

	_, err = machine.CurrentStep(sess)
	assert.ErrorIs(t, err, ErrNoActiveFlow)
}

func TestAdvanceCompletedFlowIsNoOp(t *testing.T) {
	machine, _ := newTestMachine(t)
	sess, err := machine.StartSession("user-1", KindSearching)
	require.NoError(t, err)
	require.NoError(t, advanceTo(machine, sess, "schools in Addis", "education"))
	require.True(t, machine.IsComplete(sess))

	before := sess.Clone()
	res, err := machine.Advance(sess, "education again")
	assert.ErrorIs(t, err, ErrAlreadyComplete)
	assert.True(t, res.Completed)
	assert.Equal(t, before.Data, sess.Data, "finished flow is immutable")
}

func TestCancelKeepsHistory(t *testing.T) {
	machine, _ := newTestMachine(t)
	sess, err := machine.StartSession("user-1", KindDonating)
	require.NoError(t, err)
	require.NoError(t, advanceTo(machine, sess, "Water Fund", "100"))

	historyBefore := len(sess.History)
	machine.Cancel(sess)

	assert.False(t, sess.InFlow())
	assert.Empty(t, sess.Data)
	assert.Greater(t, len(sess.History), historyBefore, "cancellation is recorded")
}

func TestPromptRendersFromSessionData(t *testing.T) {
	machine, _ := newTestMachine(t)
	sess, err := machine.StartSession("user-1", KindDonating)
	require.NoError(t, err)

	prompt, err := machine.Prompt(sess)
	require.NoError(t, err)
	assert.Contains(t, prompt, "donate")

	require.NoError(t, advanceTo(machine, sess, "Mekedonia", "150", "chapa"))
	prompt, err = machine.Prompt(sess)
	require.NoError(t, err)
	assert.Contains(t, prompt, "150 birr to Mekedonia via chapa")
}

func TestRegistryRejectsBadFlows(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&Flow{Kind: "empty"})
	assert.ErrorIs(t, err, ErrEmptyFlow)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestValidateYesNoVariants(t *testing.T) {
	tests := []struct {
		input      string
		normalized string
	}{
		{"yes", "yes"},
		{"Yeah", "yes"},
		{"OK", "yes"},
		{"confirm", "yes"},
		{"no", "no"},
		{"Nope", "no"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.NoError(t, validateYesNo(tt.input))
			assert.Equal(t, tt.normalized, normalizeYesNo(tt.input))
		})
	}

	assert.Error(t, validateYesNo("maybe"))
}
