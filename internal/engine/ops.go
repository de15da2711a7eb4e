package engine

import (
	"context"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/analytics"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
)

// Direct component operations for callers needing finer control than
// HandleTurn: explicit pause/resume commands, cancellation, snapshots.

// StartFlow creates and persists a fresh session in the given flow,
// returning the first prompt.
func (e *Engine) StartFlow(ctx context.Context, userID, kind string) (*TurnResult, error) {
	sess, err := e.machine.Start(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	e.track(ctx, sess, analytics.EventStarted, "")

	prompt, err := e.machine.Prompt(sess)
	if err != nil {
		return nil, err
	}
	return &TurnResult{Reply: prompt, Session: sess}, nil
}

// PauseFlow suspends the user's live flow. It returns false when there is no
// session or no active flow to pause.
func (e *Engine) PauseFlow(ctx context.Context, userID, reason string) (bool, error) {
	sess, err := e.store.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}

	e.track(ctx, sess, analytics.EventContextSwitched, sess.CurrentStep)
	if !sess.Pause(reason) {
		return false, nil
	}
	if err := e.store.Put(ctx, userID, sess, e.ttl); err != nil {
		return false, err
	}
	return true, nil
}

// ResumeFlow restores the most recently paused context. It returns
// ErrNothingToResume when the stack is empty or no session exists; a resume
// never creates a session.
func (e *Engine) ResumeFlow(ctx context.Context, userID string) (*TurnResult, error) {
	sess, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Resume() == nil {
		return nil, ErrNothingToResume
	}

	if err := e.store.Put(ctx, userID, sess, e.ttl); err != nil {
		return nil, err
	}

	prompt, promptErr := e.machine.Prompt(sess)
	if promptErr != nil {
		prompt = "Picking up where you left off."
	}
	return &TurnResult{Reply: prompt, Session: sess}, nil
}

// CancelFlow abandons the user's live flow, reporting whether one existed.
func (e *Engine) CancelFlow(ctx context.Context, userID string) (bool, error) {
	sess, err := e.store.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if sess == nil || !sess.InFlow() {
		return false, nil
	}

	e.track(ctx, sess, analytics.EventAbandoned, sess.CurrentStep)
	e.machine.Cancel(sess)

	if sess.HasPaused() {
		if err := e.store.Put(ctx, userID, sess, e.ttl); err != nil {
			return false, err
		}
		return true, nil
	}
	if _, err := e.store.Delete(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// SessionSnapshot returns the user's current session document, or nil when
// none exists.
func (e *Engine) SessionSnapshot(ctx context.Context, userID string) (*session.Session, error) {
	return e.store.Get(ctx, userID)
}

// Flows lists the flow kinds the engine can run.
func (e *Engine) Flows() []string {
	return e.machine.Registry().Kinds()
}

// TouchSession renews the session TTL without mutating the document.
func (e *Engine) TouchSession(ctx context.Context, userID string) (bool, error) {
	return e.store.Touch(ctx, userID, e.ttl)
}
