package dto

import (
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
)

// TurnRequest is one user message handed to the engine.
type TurnRequest struct {
	UserID   string            `json:"user_id" binding:"required" validate:"required,not_empty"`
	Message  string            `json:"message" binding:"required" validate:"required,not_empty"`
	Entities map[string]string `json:"entities,omitempty"`
}

// SessionSnapshot is the session document as returned to the transport
// layer.
type SessionSnapshot struct {
	SessionID   string            `json:"session_id"`
	State       string            `json:"state"`
	FlowKind    string            `json:"flow_kind,omitempty"`
	CurrentStep string            `json:"current_step,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	StackDepth  int               `json:"stack_depth"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TurnResponse is the engine's reply plus a snapshot of the session it left
// behind.
type TurnResponse struct {
	Reply   string           `json:"reply"`
	Session *SessionSnapshot `json:"session,omitempty"`
}

// PauseRequest suspends a user's live flow.
type PauseRequest struct {
	Reason string `json:"reason,omitempty"`
}

// NewSessionSnapshot maps the domain session onto its transport shape.
func NewSessionSnapshot(sess *session.Session) *SessionSnapshot {
	if sess == nil {
		return nil
	}
	return &SessionSnapshot{
		SessionID:   sess.SessionID,
		State:       string(sess.State),
		FlowKind:    sess.FlowKind,
		CurrentStep: sess.CurrentStep,
		Data:        sess.Data,
		StackDepth:  sess.StackDepth(),
		UpdatedAt:   sess.UpdatedAt,
	}
}
