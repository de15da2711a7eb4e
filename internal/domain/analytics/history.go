package analytics

import (
	"context"
	"encoding/json"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/preference"
)

// FlowArchive reads completed-flow events back out of the event table for the
// preference learner. Completed events carry the flow's collected fields in
// their payload; events without one are skipped.
type FlowArchive struct {
	repo Repository
}

// NewFlowArchive creates a FlowArchive over the analytics repository.
func NewFlowArchive(repo Repository) *FlowArchive {
	return &FlowArchive{repo: repo}
}

// RecentCompletedFlows implements preference.FlowHistorySource.
func (a *FlowArchive) RecentCompletedFlows(ctx context.Context, userID string, limit int) ([]preference.CompletedFlow, error) {
	events, err := a.repo.UserEventsByType(ctx, userID, EventCompleted, limit)
	if err != nil {
		return nil, err
	}

	flows := make([]preference.CompletedFlow, 0, len(events))
	for _, event := range events {
		if len(event.Payload) == 0 {
			continue
		}
		var fields map[string]string
		if err := json.Unmarshal(event.Payload, &fields); err != nil {
			continue
		}
		flows = append(flows, preference.CompletedFlow{
			FlowKind: event.FlowKind,
			Fields:   fields,
		})
	}
	return flows, nil
}
