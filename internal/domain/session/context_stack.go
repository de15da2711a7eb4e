package session

import (
	"fmt"
	"time"
)

// Pause snapshots the live flow state onto the context stack and returns the
// session to idle, preserving the stack itself. It is a no-op returning false
// when no flow is active. The reason is free text kept for diagnostics.
func (s *Session) Pause(reason string) bool {
	if !s.InFlow() {
		return false
	}

	frame := SavedContext{
		State:        s.State,
		FlowKind:     s.FlowKind,
		CurrentStep:  s.CurrentStep,
		Data:         cloneData(s.Data),
		PausedReason: reason,
		PausedAt:     time.Now().UTC(),
	}
	s.ContextStack = append(s.ContextStack, frame)

	s.State = StateIdle
	s.FlowKind = ""
	s.CurrentStep = ""
	s.Data = map[string]string{}
	s.AddHistory(fmt.Sprintf("paused %s at %s: %s", frame.FlowKind, frame.CurrentStep, reason))
	return true
}

// Resume pops the most recent saved context (strict LIFO) and overwrites the
// live state with it. Popping an empty stack returns nil, never an error; the
// caller should phrase that as "nothing to resume". Resume never creates a
// new session.
func (s *Session) Resume() *SavedContext {
	n := len(s.ContextStack)
	if n == 0 {
		return nil
	}

	frame := s.ContextStack[n-1]
	s.ContextStack = s.ContextStack[:n-1]

	s.State = frame.State
	s.FlowKind = frame.FlowKind
	s.CurrentStep = frame.CurrentStep
	s.Data = cloneData(frame.Data)
	s.AddHistory(fmt.Sprintf("resumed %s at %s", frame.FlowKind, frame.CurrentStep))
	return &frame
}

// StackDepth returns the number of paused contexts.
func (s *Session) StackDepth() int {
	return len(s.ContextStack)
}

// HasPaused reports whether there is anything to resume, for callers deciding
// whether to offer a resume affordance.
func (s *Session) HasPaused() bool {
	return len(s.ContextStack) > 0
}
