package session

import (
	"time"

	"github.com/google/uuid"
)

// FlowState is the lifecycle state of a conversation session.
type FlowState string

const (
	// StateIdle means no flow is in progress.
	StateIdle FlowState = "idle"
	// StateInFlow means a flow identified by FlowKind is active.
	StateInFlow FlowState = "in_flow"
)

// HistoryEntry is a timestamped diagnostic note. History is append-only and
// bounded only by the session TTL.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// SavedContext is a full snapshot of the live flow state, pushed when a flow
// is paused and restored when it is resumed.
type SavedContext struct {
	State        FlowState         `json:"state"`
	FlowKind     string            `json:"flow_kind"`
	CurrentStep  string            `json:"current_step"`
	Data         map[string]string `json:"data"`
	PausedReason string            `json:"paused_reason"`
	PausedAt     time.Time         `json:"paused_at"`
}

// Session is one user's conversational state document. It is read at the
// start of a request, mutated in memory and written back once at the end.
//
// Invariant: CurrentStep is non-empty iff State != StateIdle.
type Session struct {
	SessionID    string            `json:"session_id"`
	UserID       string            `json:"user_id"`
	State        FlowState         `json:"state"`
	FlowKind     string            `json:"flow_kind,omitempty"`
	CurrentStep  string            `json:"current_step,omitempty"`
	Data         map[string]string `json:"data"`
	History      []HistoryEntry    `json:"history"`
	ContextStack []SavedContext    `json:"context_stack"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// New creates a fresh idle session for the user. The session id is opaque and
// regenerated every time a session is (re)created.
func New(userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		State:        StateIdle,
		Data:         map[string]string{},
		History:      []HistoryEntry{},
		ContextStack: []SavedContext{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// InFlow reports whether a flow is currently active.
func (s *Session) InFlow() bool {
	return s.State != StateIdle
}

// SetField writes one accumulated flow field. Fields are append/overwrite and
// never implicitly cleared except on flow end.
func (s *Session) SetField(key, value string) {
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	s.Data[key] = value
	s.UpdatedAt = time.Now().UTC()
}

// Field returns an accumulated flow field.
func (s *Session) Field(key string) (string, bool) {
	v, ok := s.Data[key]
	return v, ok
}

// ClearField removes one accumulated flow field.
func (s *Session) ClearField(key string) {
	delete(s.Data, key)
	s.UpdatedAt = time.Now().UTC()
}

// AddHistory appends a diagnostic note.
func (s *Session) AddHistory(note string) {
	s.History = append(s.History, HistoryEntry{Timestamp: time.Now().UTC(), Note: note})
	s.UpdatedAt = time.Now().UTC()
}

// EnterFlow moves the session into the given flow at its first step.
func (s *Session) EnterFlow(kind, firstStep string) {
	s.State = StateInFlow
	s.FlowKind = kind
	s.CurrentStep = firstStep
	s.UpdatedAt = time.Now().UTC()
}

// EndFlow returns the session to idle. Accumulated data is cleared, history
// and the context stack are kept.
func (s *Session) EndFlow() {
	s.State = StateIdle
	s.FlowKind = ""
	s.CurrentStep = ""
	s.Data = map[string]string{}
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	c := *s
	c.Data = cloneData(s.Data)
	c.History = make([]HistoryEntry, len(s.History))
	copy(c.History, s.History)
	c.ContextStack = make([]SavedContext, len(s.ContextStack))
	for i, frame := range s.ContextStack {
		frame.Data = cloneData(frame.Data)
		c.ContextStack[i] = frame
	}
	return &c
}

func cloneData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
