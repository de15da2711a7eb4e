package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/analytics"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/directory"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/flow"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingTracker captures events in memory for assertions.
type recordingTracker struct {
	events []analytics.TrackInput
}

func (r *recordingTracker) Track(ctx context.Context, input analytics.TrackInput) {
	r.events = append(r.events, input)
}

func (r *recordingTracker) UpdateDailyMetric(ctx context.Context, flowKind, metricType string) {}

func (r *recordingTracker) Funnel(ctx context.Context, flowKind string, windowDays int) (*analytics.FunnelReport, error) {
	return &analytics.FunnelReport{}, nil
}

func (r *recordingTracker) Summary(ctx context.Context, windowDays int) (*analytics.Summary, error) {
	return &analytics.Summary{}, nil
}

func (r *recordingTracker) DailyBreakdown(ctx context.Context, windowDays int) ([]analytics.DailyMetric, error) {
	return nil, nil
}

func (r *recordingTracker) Recent(ctx context.Context, limit int) ([]analytics.ConversationEvent, error) {
	return nil, nil
}

func (r *recordingTracker) typesSeen() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	engine  *Engine
	store   *session.MemoryStore
	tracker *recordingTracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := session.NewMemoryStore()
	registry := flow.DefaultRegistry()
	machine := flow.NewMachine(registry, store, 30*time.Minute, zap.NewNop())
	tracker := &recordingTracker{}

	eng := New(Config{
		Store:     store,
		Machine:   machine,
		Directory: directory.NewStatic(directory.SeedTargets()),
		Tracker:   tracker,
		TTL:       30 * time.Minute,
		Logger:    zap.NewNop(),
	})
	return &fixture{engine: eng, store: store, tracker: tracker}
}

func (f *fixture) turn(t *testing.T, message string) *TurnResult {
	t.Helper()
	result, err := f.engine.HandleTurn(context.Background(), "user-1", message, nil)
	require.NoError(t, err)
	return result
}

func (f *fixture) stored(t *testing.T) *session.Session {
	t.Helper()
	sess, err := f.store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	return sess
}

func TestIdleSmallTalkDoesNotCreateSession(t *testing.T) {
	f := newFixture(t)

	result := f.turn(t, "hello there")
	assert.Contains(t, result.Reply, "donate or search")
	assert.Nil(t, f.stored(t), "idle chatter leaves no session behind")
}

func TestDonationHappyPath(t *testing.T) {
	f := newFixture(t)

	result := f.turn(t, "I want to donate")
	assert.Contains(t, result.Reply, "Who would you like to donate to")
	require.NotNil(t, f.stored(t))

	result = f.turn(t, "Clean Water Initiative")
	assert.Contains(t, result.Reply, "How much")

	sess := f.stored(t)
	target, _ := sess.Field(flow.FieldTarget)
	assert.Equal(t, "Clean Water Initiative", target)
	targetID, _ := sess.Field(flow.FieldTargetID)
	assert.Equal(t, "tgt-004", targetID)

	result = f.turn(t, "two hundred birr")
	assert.Contains(t, result.Reply, "How would you like to pay")

	result = f.turn(t, "mpesa")
	assert.Contains(t, result.Reply, "200 birr to Clean Water Initiative via mpesa")

	result = f.turn(t, "yes")
	assert.Contains(t, result.Reply, "Thank you")
	assert.Contains(t, result.Reply, "200 birr")

	assert.Nil(t, f.stored(t), "completed session is destroyed")
	assert.Equal(t,
		[]string{
			analytics.EventStarted,
			analytics.EventStepCompleted,
			analytics.EventStepCompleted,
			analytics.EventStepCompleted,
			analytics.EventStepCompleted,
			analytics.EventCompleted,
		},
		f.tracker.typesSeen())

	// Completion payload archives the collected fields.
	last := f.tracker.events[len(f.tracker.events)-1]
	assert.Equal(t, "200", last.Payload[flow.FieldAmount])
}

func TestValidationFailureRepromptsWithoutAdvancing(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "I want to donate")
	f.turn(t, "Clean Water Initiative")

	result := f.turn(t, "a handful of goats")
	assert.Contains(t, result.Reply, "How much", "same question is asked again")

	sess := f.stored(t)
	assert.Equal(t, flow.StepEnterAmount, sess.CurrentStep, "validation failure does not advance")
	_, hasAmount := sess.Field(flow.FieldAmount)
	assert.False(t, hasAmount)

	result = f.turn(t, "150")
	assert.Contains(t, result.Reply, "How would you like to pay")
}

func TestQuestionInterruptPausesAndResumeRestores(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	f.turn(t, "Clean Water Initiative")
	f.turn(t, "250")

	// Mid-flow question pauses the flow with everything intact.
	result := f.turn(t, "what is mpesa?")
	assert.Contains(t, result.Reply, "continue")

	sess := f.stored(t)
	assert.False(t, sess.InFlow(), "flow is paused, not live")
	require.Equal(t, 1, sess.StackDepth())
	assert.Equal(t, flow.StepChooseMethod, sess.ContextStack[0].CurrentStep)
	assert.Equal(t, "250", sess.ContextStack[0].Data[flow.FieldAmount])

	// Resume restores the exact step and data.
	result = f.turn(t, "continue")
	assert.Contains(t, result.Reply, "Picking up where you left off")
	assert.Contains(t, result.Reply, "How would you like to pay")

	sess = f.stored(t)
	assert.True(t, sess.InFlow())
	assert.Equal(t, flow.StepChooseMethod, sess.CurrentStep)
	amount, _ := sess.Field(flow.FieldAmount)
	assert.Equal(t, "250", amount)
	assert.Equal(t, 0, sess.StackDepth())

	// And the paused flow still finishes normally.
	f.turn(t, "telebirr")
	result = f.turn(t, "yes")
	assert.Contains(t, result.Reply, "Thank you")
}

func TestNestedInterruptsResumeInLIFOOrder(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	f.turn(t, "Clean Water Initiative")
	f.turn(t, "what are the causes?") // pause donation at enter_amount

	f.turn(t, "search") // new flow on top of the paused one
	sess := f.stored(t)
	assert.Equal(t, flow.KindSearching, sess.FlowKind)
	require.Equal(t, 1, sess.StackDepth(), "paused donation survives the new flow")

	f.turn(t, "schools")
	result := f.turn(t, "education")
	assert.Contains(t, result.Reply, "what we have under education")

	// The search completed, but the paused donation keeps the session alive.
	sess = f.stored(t)
	require.NotNil(t, sess)
	require.Equal(t, 1, sess.StackDepth())

	result = f.turn(t, "continue")
	assert.Contains(t, result.Reply, "How much", "donation resumes where it paused")
	sess = f.stored(t)
	assert.Equal(t, flow.KindDonating, sess.FlowKind)
	assert.Equal(t, flow.StepEnterAmount, sess.CurrentStep)
}

func TestAmbiguousTargetClarifiesThenResolvesByNumber(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	result := f.turn(t, "education")
	assert.Contains(t, result.Reply, "Which one did you mean")
	assert.Contains(t, result.Reply, "1. Educate the Children Fund")
	assert.Contains(t, result.Reply, "2. Education for All Ethiopia")

	result = f.turn(t, "2")
	assert.Contains(t, result.Reply, "How much")

	sess := f.stored(t)
	target, _ := sess.Field(flow.FieldTarget)
	assert.Equal(t, "Education for All Ethiopia", target)
	targetID, _ := sess.Field(flow.FieldTargetID)
	assert.Equal(t, "tgt-002", targetID)

	assert.Contains(t, f.tracker.typesSeen(), analytics.EventClarificationRequested)
}

func TestGarbledClarificationReplyReprompts(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	f.turn(t, "education")

	result := f.turn(t, "the purple llama")
	assert.Contains(t, result.Reply, "Reply with a number")

	sess := f.stored(t)
	assert.Equal(t, flow.StepChooseTarget, sess.CurrentStep, "clarification stays open")

	result = f.turn(t, "1")
	assert.Contains(t, result.Reply, "How much")
}

func TestUnknownTargetSaysSo(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	result := f.turn(t, "xyzzyplugh")
	assert.Contains(t, result.Reply, "couldn't find")
	assert.Equal(t, flow.StepChooseTarget, f.stored(t).CurrentStep)
}

func TestCancelDestroysSession(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	f.turn(t, "Clean Water Initiative")

	result := f.turn(t, "cancel")
	assert.Contains(t, result.Reply, "cancelled")
	assert.Nil(t, f.stored(t))
	assert.Contains(t, f.tracker.typesSeen(), analytics.EventAbandoned)
}

func TestDecliningConfirmationAbandons(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	f.turn(t, "Clean Water Initiative")
	f.turn(t, "100")
	f.turn(t, "chapa")

	result := f.turn(t, "no")
	assert.Contains(t, result.Reply, "won't go ahead")
	assert.Nil(t, f.stored(t))

	seen := f.tracker.typesSeen()
	assert.Contains(t, seen, analytics.EventAbandoned)
	assert.NotContains(t, seen, analytics.EventCompleted)
}

func TestStepBackReentersPreviousStep(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	f.turn(t, "Clean Water Initiative")
	f.turn(t, "250")

	result := f.turn(t, "go back")
	assert.Contains(t, result.Reply, "How much", "previous step is re-asked")

	sess := f.stored(t)
	assert.Equal(t, flow.StepEnterAmount, sess.CurrentStep)
	_, hasAmount := sess.Field(flow.FieldAmount)
	assert.False(t, hasAmount, "stepping back clears the committed value")
}

func TestCorrectionReopensLastField(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "donate")
	f.turn(t, "Clean Water Initiative")
	f.turn(t, "250")

	result := f.turn(t, "actually I want to change the amount")
	assert.Contains(t, result.Reply, "No problem")
	assert.Contains(t, result.Reply, "How much")

	sess := f.stored(t)
	assert.Equal(t, flow.StepEnterAmount, sess.CurrentStep)

	result = f.turn(t, "500")
	assert.Contains(t, result.Reply, "How would you like to pay")
	amount, _ := f.stored(t).Field(flow.FieldAmount)
	assert.Equal(t, "500", amount)
}

func TestResumeWithNothingPaused(t *testing.T) {
	f := newFixture(t)

	result := f.turn(t, "continue")
	assert.Contains(t, result.Reply, "nothing to resume")
	assert.Nil(t, f.stored(t))
}

func TestEntitiesOverrideMessageText(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.HandleTurn(context.Background(), "user-1", "let's go", map[string]string{"intent": "donate"})
	require.NoError(t, err)
	assert.Contains(t, result.Reply, "Who would you like to donate to")

	result, err = f.engine.HandleTurn(context.Background(), "user-1", "send it to the water one please thanks",
		map[string]string{flow.FieldTarget: "Clean Water Initiative"})
	require.NoError(t, err)
	assert.Contains(t, result.Reply, "How much")
}

func TestStoreFailurePropagates(t *testing.T) {
	store := &failingStore{}
	machine := flow.NewMachine(flow.DefaultRegistry(), store, time.Minute, zap.NewNop())
	eng := New(Config{Store: store, Machine: machine, Logger: zap.NewNop()})

	_, err := eng.HandleTurn(context.Background(), "user-1", "donate", nil)
	assert.ErrorIs(t, err, session.ErrStoreUnavailable)
}

type failingStore struct{}

func (f *failingStore) Get(ctx context.Context, userID string) (*session.Session, error) {
	return nil, session.ErrStoreUnavailable
}

func (f *failingStore) Put(ctx context.Context, userID string, sess *session.Session, ttl time.Duration) error {
	return session.ErrStoreUnavailable
}

func (f *failingStore) Delete(ctx context.Context, userID string) (bool, error) {
	return false, session.ErrStoreUnavailable
}

func (f *failingStore) Touch(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	return false, session.ErrStoreUnavailable
}

func TestOpsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.engine.StartFlow(ctx, "user-1", flow.KindDonating)
	require.NoError(t, err)
	assert.Contains(t, result.Reply, "Who would you like to donate to")

	paused, err := f.engine.PauseFlow(ctx, "user-1", "operator hold")
	require.NoError(t, err)
	assert.True(t, paused)

	snapshot, err := f.engine.SessionSnapshot(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 1, snapshot.StackDepth())

	resumed, err := f.engine.ResumeFlow(ctx, "user-1")
	require.NoError(t, err)
	assert.Contains(t, resumed.Reply, "Who would you like to donate to")

	cancelled, err := f.engine.CancelFlow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, cancelled)

	_, err = f.engine.ResumeFlow(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNothingToResume)

	kinds := f.engine.Flows()
	assert.ElementsMatch(t, []string{flow.KindDonating, flow.KindSearching}, kinds)
}

func TestTouchSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	touched, err := f.engine.TouchSession(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, touched)

	f.turn(t, "donate")
	touched, err = f.engine.TouchSession(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, touched)
}

func TestRepliesNeverEmpty(t *testing.T) {
	f := newFixture(t)
	messages := []string{
		"hello", "donate", "education", "2", "what is chapa?", "continue",
		"250", "back", "100", "mpesa", "actually no wait", "yes",
	}
	for _, msg := range messages {
		result := f.turn(t, msg)
		assert.NotEmpty(t, strings.TrimSpace(result.Reply), "reply for %q", msg)
	}
}
