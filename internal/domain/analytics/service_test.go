package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockRepository records calls and replays canned aggregates.
type mockRepository struct {
	events       []ConversationEvent
	metricBumps  []string
	stepCounts   []StepCount
	typeCounts   []TypeCount
	startedCount int64
	metrics      []DailyMetric
	createErr    error
	queryErr     error
}

func (m *mockRepository) CreateEvent(ctx context.Context, event *ConversationEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.events = append(m.events, *event)
	return nil
}

func (m *mockRepository) IncrementDailyMetric(ctx context.Context, date time.Time, flowKind, metricType string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.metricBumps = append(m.metricBumps, flowKind+":"+metricType)
	return nil
}

func (m *mockRepository) CountEvents(ctx context.Context, flowKind, eventType string, since time.Time) (int64, error) {
	if m.queryErr != nil {
		return 0, m.queryErr
	}
	return m.startedCount, nil
}

func (m *mockRepository) StepCompletionCounts(ctx context.Context, flowKind string, since time.Time) ([]StepCount, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.stepCounts, nil
}

func (m *mockRepository) EventTypeCounts(ctx context.Context, since, until time.Time) ([]TypeCount, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.typeCounts, nil
}

func (m *mockRepository) MetricsSince(ctx context.Context, since time.Time) ([]DailyMetric, error) {
	return m.metrics, nil
}

func (m *mockRepository) RecentEvents(ctx context.Context, limit int) ([]ConversationEvent, error) {
	if limit > len(m.events) {
		limit = len(m.events)
	}
	return m.events[:limit], nil
}

func (m *mockRepository) UserEventsByType(ctx context.Context, userID, eventType string, limit int) ([]ConversationEvent, error) {
	var out []ConversationEvent
	for _, e := range m.events {
		if e.UserID == userID && e.EventType == eventType {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newTestService(repo Repository) Service {
	return NewService(repo, flow.DefaultRegistry(), zap.NewNop())
}

func TestTrackRecordsEventAndBumpsLifecycleMetrics(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(repo)
	ctx := context.Background()

	svc.Track(ctx, TrackInput{
		UserID:    "user-1",
		SessionID: "sess-1",
		EventType: EventStarted,
		FlowKind:  flow.KindDonating,
	})
	svc.Track(ctx, TrackInput{
		UserID:    "user-1",
		SessionID: "sess-1",
		EventType: EventStepCompleted,
		FlowKind:  flow.KindDonating,
		StepName:  flow.StepChooseTarget,
	})
	svc.Track(ctx, TrackInput{
		UserID:    "user-1",
		SessionID: "sess-1",
		EventType: EventCompleted,
		FlowKind:  flow.KindDonating,
		Payload:   map[string]interface{}{"amount": "250"},
	})

	require.Len(t, repo.events, 3)
	assert.Equal(t, []string{
		flow.KindDonating + ":" + MetricStarted,
		flow.KindDonating + ":" + MetricCompleted,
	}, repo.metricBumps, "only lifecycle events bump daily counters")
	assert.NotEmpty(t, repo.events[2].Payload, "completion payload is archived")
	assert.False(t, repo.events[0].Timestamp.IsZero())
}

func TestTrackSwallowsStoreFailures(t *testing.T) {
	repo := &mockRepository{createErr: errors.New("connection refused")}
	svc := newTestService(repo)

	// Must not panic; the conversation path never sees analytics errors.
	svc.Track(context.Background(), TrackInput{
		SessionID: "sess-1",
		EventType: EventStarted,
		FlowKind:  flow.KindDonating,
	})
	assert.Empty(t, repo.events)
	assert.Empty(t, repo.metricBumps, "failed event insert skips the metric bump")
}

func TestFunnelUsesDeclaredStepOrder(t *testing.T) {
	repo := &mockRepository{
		startedCount: 100,
		stepCounts: []StepCount{
			{StepName: flow.StepChooseMethod, Count: 40},
			{StepName: flow.StepChooseTarget, Count: 80},
			{StepName: flow.StepConfirm, Count: 30},
			{StepName: flow.StepEnterAmount, Count: 60},
		},
	}
	svc := newTestService(repo)

	report, err := svc.Funnel(context.Background(), flow.KindDonating, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(100), report.Started)

	steps := make([]string, 0, len(report.Steps))
	for _, s := range report.Steps {
		steps = append(steps, s.Step)
	}
	assert.Equal(t, []string{
		flow.StepChooseTarget,
		flow.StepEnterAmount,
		flow.StepChooseMethod,
		flow.StepConfirm,
	}, steps, "steps follow the flow definition, not the query order")

	assert.InDelta(t, 80.0, report.Steps[0].Percentage, 0.01)
	assert.InDelta(t, 60.0, report.Steps[1].Percentage, 0.01)
	assert.InDelta(t, 40.0, report.Steps[2].Percentage, 0.01)
	assert.InDelta(t, 30.0, report.Steps[3].Percentage, 0.01)
}

func TestFunnelFallsBackToMaxStepCount(t *testing.T) {
	repo := &mockRepository{
		startedCount: 0,
		stepCounts: []StepCount{
			{StepName: flow.StepChooseTarget, Count: 50},
			{StepName: flow.StepEnterAmount, Count: 25},
		},
	}
	svc := newTestService(repo)

	report, err := svc.Funnel(context.Background(), flow.KindDonating, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Started)
	assert.InDelta(t, 100.0, report.Steps[0].Percentage, 0.01, "max step count becomes the denominator")
	assert.InDelta(t, 50.0, report.Steps[1].Percentage, 0.01)
}

func TestFunnelCapsPercentageAtHundred(t *testing.T) {
	// More step completions than starts happens when a flow started before
	// the window finishes inside it.
	repo := &mockRepository{
		startedCount: 10,
		stepCounts: []StepCount{
			{StepName: flow.StepChooseTarget, Count: 25},
		},
	}
	svc := newTestService(repo)

	report, err := svc.Funnel(context.Background(), flow.KindDonating, 7)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, report.Steps[0].Percentage, 0.01)
}

func TestFunnelEmptyWindow(t *testing.T) {
	svc := newTestService(&mockRepository{})

	report, err := svc.Funnel(context.Background(), flow.KindDonating, 7)
	require.NoError(t, err)
	require.Len(t, report.Steps, 4)
	for _, step := range report.Steps {
		assert.Zero(t, step.Count)
		assert.Zero(t, step.Percentage)
	}
}

func TestFunnelUnknownFlow(t *testing.T) {
	svc := newTestService(&mockRepository{})

	_, err := svc.Funnel(context.Background(), "haggling", 7)
	assert.ErrorIs(t, err, flow.ErrUnknownFlow)
}

func TestSummaryMapsEventTypeCounts(t *testing.T) {
	repo := &mockRepository{
		typeCounts: []TypeCount{
			{EventType: EventStarted, Count: 12},
			{EventType: EventCompleted, Count: 7},
			{EventType: EventAbandoned, Count: 3},
			{EventType: EventClarificationRequested, Count: 5},
			{EventType: EventContextSwitched, Count: 2},
		},
	}
	svc := newTestService(repo)

	summary, err := svc.Summary(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.WindowDays)
	assert.Equal(t, int64(12), summary.Current.Started)
	assert.Equal(t, int64(7), summary.Current.Completed)
	assert.Equal(t, int64(3), summary.Current.Abandoned)
	assert.Equal(t, int64(5), summary.Current.Clarifications)
	assert.Equal(t, int64(2), summary.Current.ContextSwitch)
}

func TestFlowArchiveDecodesCompletedPayloads(t *testing.T) {
	repo := &mockRepository{}
	svc := newTestService(repo)
	ctx := context.Background()

	svc.Track(ctx, TrackInput{
		UserID:    "user-1",
		SessionID: "sess-1",
		EventType: EventCompleted,
		FlowKind:  flow.KindDonating,
		Payload:   map[string]interface{}{"method": "mpesa", "amount": "250"},
	})
	svc.Track(ctx, TrackInput{
		UserID:    "user-1",
		SessionID: "sess-2",
		EventType: EventStarted,
		FlowKind:  flow.KindDonating,
	})

	archive := NewFlowArchive(repo)
	flows, err := archive.RecentCompletedFlows(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, flows, 1, "only completed events with payloads are replayed")
	assert.Equal(t, flow.KindDonating, flows[0].FlowKind)
	assert.Equal(t, "mpesa", flows[0].Fields["method"])
	assert.Equal(t, "250", flows[0].Fields["amount"])
}
