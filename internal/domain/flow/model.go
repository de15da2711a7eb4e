package flow

import (
	"errors"
	"fmt"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
)

var (
	ErrUnknownFlow = errors.New("unknown flow kind")
	ErrEmptyFlow   = errors.New("flow has no steps")
)

// StepComplete is the sentinel step a session lands on after its last real
// step commits.
const StepComplete = "complete"

// Step is a single named stage within a flow. It declares the session field
// it fills, a prompt, and a validator for committed input.
//
// Prompt is the static question text; RenderFunc, when set, takes precedence
// and produces the question from live session state (e.g. interpolating
// previously collected fields).
type Step struct {
	Name       string
	Field      string
	Prompt     string
	RenderFunc func(*session.Session) string

	// Validate rejects input that cannot be committed to Field. A nil
	// validator accepts anything non-empty.
	Validate func(input string) error

	// Normalize, when set, maps accepted input to the canonical value
	// stored in session data (e.g. "five hundred" -> "500").
	Normalize func(input string) string
}

// Render produces the question text for this step.
func (st *Step) Render(sess *session.Session) string {
	if st.RenderFunc != nil {
		return st.RenderFunc(sess)
	}
	return st.Prompt
}

// Flow is a named, ordered list of steps.
type Flow struct {
	Kind  string
	Steps []Step
}

// StepIndex returns the position of the named step, or -1.
func (f *Flow) StepIndex(name string) int {
	for i := range f.Steps {
		if f.Steps[i].Name == name {
			return i
		}
	}
	return -1
}

// Step returns the named step definition.
func (f *Flow) Step(name string) (*Step, bool) {
	if i := f.StepIndex(name); i >= 0 {
		return &f.Steps[i], true
	}
	return nil, false
}

// Registry holds the flow definitions known to the engine. It is populated at
// startup and read-only afterwards.
type Registry struct {
	flows map[string]*Flow
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{flows: make(map[string]*Flow)}
}

// Register adds a flow definition. Registering an empty flow is a
// programming error.
func (r *Registry) Register(f *Flow) error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFlow, f.Kind)
	}
	r.flows[f.Kind] = f
	return nil
}

// Get returns the flow definition for a kind.
func (r *Registry) Get(kind string) (*Flow, error) {
	f, ok := r.flows[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, kind)
	}
	return f, nil
}

// Kinds lists the registered flow kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.flows))
	for k := range r.flows {
		kinds = append(kinds, k)
	}
	return kinds
}
