package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/flow"
	"go.uber.org/zap"
)

// TrackInput describes one event to record.
type TrackInput struct {
	UserID    string
	SessionID string
	EventType string
	FlowKind  string
	StepName  string
	Payload   map[string]interface{}
}

// FunnelStep is one step's count and share within a funnel report.
type FunnelStep struct {
	Step       string  `json:"step"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FunnelReport holds per-step drop-off for one flow kind over a window.
type FunnelReport struct {
	FlowKind   string       `json:"flow_kind"`
	WindowDays int          `json:"window_days"`
	Started    int64        `json:"started"`
	Steps      []FunnelStep `json:"steps"`
}

// WindowTotals aggregates event counts for one time window.
type WindowTotals struct {
	Started        int64 `json:"started"`
	Completed      int64 `json:"completed"`
	Abandoned      int64 `json:"abandoned"`
	Clarifications int64 `json:"clarifications"`
	ContextSwitch  int64 `json:"context_switches"`
	Errors         int64 `json:"errors"`
}

// Summary compares the requested window against the equal-length window
// immediately before it.
type Summary struct {
	WindowDays int          `json:"window_days"`
	Current    WindowTotals `json:"current"`
	Previous   WindowTotals `json:"previous"`
}

// Service records conversation events and serves dashboard aggregations.
// Recording is best effort: failures are logged and swallowed so analytics
// can never fail the primary conversation path.
type Service interface {
	Track(ctx context.Context, input TrackInput)
	UpdateDailyMetric(ctx context.Context, flowKind, metricType string)
	Funnel(ctx context.Context, flowKind string, windowDays int) (*FunnelReport, error)
	Summary(ctx context.Context, windowDays int) (*Summary, error)
	DailyBreakdown(ctx context.Context, windowDays int) ([]DailyMetric, error)
	Recent(ctx context.Context, limit int) ([]ConversationEvent, error)
}

type service struct {
	repo     Repository
	registry *flow.Registry
	logger   *zap.Logger
}

// NewService creates an analytics service. The flow registry supplies the
// declared step order for funnel reports.
func NewService(repo Repository, registry *flow.Registry, logger *zap.Logger) Service {
	return &service{repo: repo, registry: registry, logger: logger}
}

// Track appends one immutable event and, for lifecycle events, bumps the
// daily counter. Errors never propagate.
func (s *service) Track(ctx context.Context, input TrackInput) {
	event := &ConversationEvent{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		EventType: input.EventType,
		FlowKind:  input.FlowKind,
		StepName:  input.StepName,
		Timestamp: time.Now().UTC(),
	}
	if len(input.Payload) > 0 {
		if data, err := json.Marshal(input.Payload); err == nil {
			event.Payload = data
		}
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		s.logger.Warn("analytics event dropped",
			zap.String("event_type", input.EventType),
			zap.String("session_id", input.SessionID),
			zap.Error(err))
		return
	}

	switch input.EventType {
	case EventStarted:
		s.UpdateDailyMetric(ctx, input.FlowKind, MetricStarted)
	case EventCompleted:
		s.UpdateDailyMetric(ctx, input.FlowKind, MetricCompleted)
	case EventAbandoned:
		s.UpdateDailyMetric(ctx, input.FlowKind, MetricAbandoned)
	}
}

// UpdateDailyMetric bumps one (today, flow_kind) counter. Failures are
// logged and swallowed.
func (s *service) UpdateDailyMetric(ctx context.Context, flowKind, metricType string) {
	if err := s.repo.IncrementDailyMetric(ctx, time.Now().UTC(), flowKind, metricType); err != nil {
		s.logger.Warn("daily metric update dropped",
			zap.String("flow_kind", flowKind),
			zap.String("metric", metricType),
			zap.Error(err))
	}
}

// Funnel groups step completions over the window and expresses each step as
// a percentage of the flow's starts. When no started events exist in the
// window, the maximum observed step count is used as the denominator to
// avoid division by zero; this can understate true drop-off.
func (s *service) Funnel(ctx context.Context, flowKind string, windowDays int) (*FunnelReport, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	f, err := s.registry.Get(flowKind)
	if err != nil {
		return nil, err
	}

	started, err := s.repo.CountEvents(ctx, flowKind, EventStarted, since)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.StepCompletionCounts(ctx, flowKind, since)
	if err != nil {
		return nil, err
	}
	byStep := make(map[string]int64, len(counts))
	var maxCount int64
	for _, c := range counts {
		byStep[c.StepName] = c.Count
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}

	denominator := started
	if denominator == 0 {
		denominator = maxCount
	}

	report := &FunnelReport{
		FlowKind:   flowKind,
		WindowDays: windowDays,
		Started:    started,
		Steps:      make([]FunnelStep, 0, len(f.Steps)),
	}
	for _, step := range f.Steps {
		count := byStep[step.Name]
		var pct float64
		if denominator > 0 {
			pct = float64(count) / float64(denominator) * 100
		}
		if pct > 100 {
			pct = 100
		}
		report.Steps = append(report.Steps, FunnelStep{
			Step:       step.Name,
			Count:      count,
			Percentage: pct,
		})
	}
	return report, nil
}

// Summary aggregates event totals for the window and for the equal-length
// window immediately preceding it.
func (s *service) Summary(ctx context.Context, windowDays int) (*Summary, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	now := time.Now().UTC()
	windowStart := now.AddDate(0, 0, -windowDays)
	previousStart := windowStart.AddDate(0, 0, -windowDays)

	current, err := s.windowTotals(ctx, windowStart, now)
	if err != nil {
		return nil, err
	}
	previous, err := s.windowTotals(ctx, previousStart, windowStart)
	if err != nil {
		return nil, err
	}

	return &Summary{
		WindowDays: windowDays,
		Current:    *current,
		Previous:   *previous,
	}, nil
}

func (s *service) windowTotals(ctx context.Context, since, until time.Time) (*WindowTotals, error) {
	counts, err := s.repo.EventTypeCounts(ctx, since, until)
	if err != nil {
		return nil, err
	}
	totals := &WindowTotals{}
	for _, c := range counts {
		switch c.EventType {
		case EventStarted:
			totals.Started = c.Count
		case EventCompleted:
			totals.Completed = c.Count
		case EventAbandoned:
			totals.Abandoned = c.Count
		case EventClarificationRequested:
			totals.Clarifications = c.Count
		case EventContextSwitched:
			totals.ContextSwitch = c.Count
		case EventError:
			totals.Errors = c.Count
		}
	}
	return totals, nil
}

// DailyBreakdown returns the per-day metric rows inside the window.
func (s *service) DailyBreakdown(ctx context.Context, windowDays int) ([]DailyMetric, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	return s.repo.MetricsSince(ctx, since)
}

// Recent returns the newest events, newest first.
func (s *service) Recent(ctx context.Context, limit int) ([]ConversationEvent, error) {
	return s.repo.RecentEvents(ctx, limit)
}
