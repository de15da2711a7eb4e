package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"go.uber.org/zap"
)

var (
	// ErrNoActiveFlow is returned when an operation requires an active flow
	// but the session is idle. It is reported to the caller, not silently
	// recovered.
	ErrNoActiveFlow = errors.New("no active flow")
	// ErrAlreadyComplete is returned when advancing a finished flow; the
	// session is left untouched.
	ErrAlreadyComplete = errors.New("flow already complete")
)

// ValidationError rejects step input. It is recoverable: the session is
// unchanged and the same step is re-prompted.
type ValidationError struct {
	Step   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Step, e.Reason)
}

// AdvanceResult reports the outcome of committing one step input.
type AdvanceResult struct {
	// Prompt is the next question, or the same step's question again when
	// validation failed.
	Prompt string
	// Completed is true when the committed step was the flow's last.
	Completed bool
	// Step is the step the session now sits on.
	Step string
}

// Machine sequences sessions through registered flows.
type Machine struct {
	registry *Registry
	store    session.Store
	ttl      time.Duration
	logger   *zap.Logger
}

// NewMachine creates a state machine over the given registry and store.
func NewMachine(registry *Registry, store session.Store, ttl time.Duration, logger *zap.Logger) *Machine {
	return &Machine{registry: registry, store: store, ttl: ttl, logger: logger}
}

// Registry exposes the flow definitions the machine runs.
func (m *Machine) Registry() *Registry {
	return m.registry
}

// Start creates a fresh session in the given flow at its first step and
// persists it. It fails only if the flow kind is unknown or the store is
// unavailable.
func (m *Machine) Start(ctx context.Context, userID, kind string) (*session.Session, error) {
	f, err := m.registry.Get(kind)
	if err != nil {
		return nil, err
	}

	sess := session.New(userID)
	sess.EnterFlow(kind, f.Steps[0].Name)
	sess.AddHistory("started " + kind)

	if err := m.store.Put(ctx, userID, sess, m.ttl); err != nil {
		return nil, err
	}

	m.logger.Info("flow started",
		zap.String("user_id", userID),
		zap.String("flow_kind", kind),
		zap.String("session_id", sess.SessionID))
	return sess, nil
}

// StartSession builds the fresh in-flow session without persisting it, for
// callers that batch the write with the rest of the turn.
func (m *Machine) StartSession(userID, kind string) (*session.Session, error) {
	f, err := m.registry.Get(kind)
	if err != nil {
		return nil, err
	}
	sess := session.New(userID)
	sess.EnterFlow(kind, f.Steps[0].Name)
	sess.AddHistory("started " + kind)
	return sess, nil
}

// CurrentStep returns the definition of the step the session sits on.
func (m *Machine) CurrentStep(sess *session.Session) (*Step, error) {
	if !sess.InFlow() {
		return nil, ErrNoActiveFlow
	}
	if m.IsComplete(sess) {
		return nil, ErrAlreadyComplete
	}
	f, err := m.registry.Get(sess.FlowKind)
	if err != nil {
		return nil, err
	}
	step, ok := f.Step(sess.CurrentStep)
	if !ok {
		return nil, fmt.Errorf("session %s points at unknown step %q in %s", sess.SessionID, sess.CurrentStep, sess.FlowKind)
	}
	return step, nil
}

// Prompt renders the current step's question.
func (m *Machine) Prompt(sess *session.Session) (string, error) {
	step, err := m.CurrentStep(sess)
	if err != nil {
		return "", err
	}
	return step.Render(sess), nil
}

// Advance validates input against the current step. On success it commits
// the field, records history and moves to the next step (or marks the flow
// complete). On validation failure it leaves the session unchanged and
// returns the same step's prompt together with the validation error.
//
// Advancing an idle session returns ErrNoActiveFlow; advancing a finished
// flow is a no-op returning ErrAlreadyComplete.
func (m *Machine) Advance(sess *session.Session, input string) (*AdvanceResult, error) {
	if !sess.InFlow() {
		return nil, ErrNoActiveFlow
	}
	if m.IsComplete(sess) {
		return &AdvanceResult{Completed: true, Step: StepComplete}, ErrAlreadyComplete
	}

	f, err := m.registry.Get(sess.FlowKind)
	if err != nil {
		return nil, err
	}
	idx := f.StepIndex(sess.CurrentStep)
	if idx < 0 {
		return nil, fmt.Errorf("session %s points at unknown step %q in %s", sess.SessionID, sess.CurrentStep, sess.FlowKind)
	}
	step := &f.Steps[idx]

	validate := step.Validate
	if validate == nil {
		validate = validateNonEmpty
	}
	if err := validate(input); err != nil {
		return &AdvanceResult{Prompt: step.Render(sess), Step: step.Name},
			&ValidationError{Step: step.Name, Field: step.Field, Reason: err.Error()}
	}

	value := input
	if step.Normalize != nil {
		value = step.Normalize(input)
	}
	sess.SetField(step.Field, value)
	sess.AddHistory(fmt.Sprintf("%s: committed %s", step.Name, step.Field))

	if idx == len(f.Steps)-1 {
		sess.CurrentStep = StepComplete
		sess.AddHistory("completed " + sess.FlowKind)
		return &AdvanceResult{Completed: true, Step: StepComplete}, nil
	}

	next := &f.Steps[idx+1]
	sess.CurrentStep = next.Name
	return &AdvanceResult{Prompt: next.Render(sess), Step: next.Name}, nil
}

// IsComplete reports whether the session's flow has run all its steps.
func (m *Machine) IsComplete(sess *session.Session) bool {
	return sess.InFlow() && sess.CurrentStep == StepComplete
}

// Cancel returns the session to idle and clears accumulated data, leaving
// history intact for audit.
func (m *Machine) Cancel(sess *session.Session) {
	if !sess.InFlow() {
		return
	}
	kind := sess.FlowKind
	sess.EndFlow()
	sess.AddHistory("cancelled " + kind)
}
