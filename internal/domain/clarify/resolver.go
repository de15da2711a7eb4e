package clarify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
)

// PendingClarificationField is the session data key holding a serialized
// pending clarification, so a follow-up reply can be resolved without
// re-running the fuzzy match.
const PendingClarificationField = "pending_clarification"

// SearchFilters narrows an entity directory lookup.
type SearchFilters struct {
	Query    string
	Category string
	Limit    int
}

// Directory is the external entity-lookup collaborator. Implementations are
// owned by the domain layer; the engine only reads from it.
type Directory interface {
	Search(ctx context.Context, filters SearchFilters) ([]Entity, error)
}

// PendingClarification records the numbered options last presented to the
// user and the session field the eventual choice will fill.
type PendingClarification struct {
	Field   string         `json:"field"`
	Options []ScoredEntity `json:"options"`
}

// SavePending persists an ambiguous match's options into the session so the
// next reply can be resolved positionally.
func SavePending(sess *session.Session, field string, options []ScoredEntity) error {
	data, err := json.Marshal(PendingClarification{Field: field, Options: options})
	if err != nil {
		return fmt.Errorf("marshal pending clarification: %w", err)
	}
	sess.SetField(PendingClarificationField, string(data))
	return nil
}

// Pending returns the session's pending clarification, if any.
func Pending(sess *session.Session) (*PendingClarification, bool) {
	raw, ok := sess.Field(PendingClarificationField)
	if !ok || raw == "" {
		return nil, false
	}
	var p PendingClarification
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	return &p, true
}

// ClearPending removes the pending clarification from the session.
func ClearPending(sess *session.Session) {
	sess.ClearField(PendingClarificationField)
}

// ResolveReply maps a follow-up reply onto one of the previously presented
// options. A numeric reply ("2", "two") selects by 1-based position; anything
// else is matched textually against the option names.
func ResolveReply(pending *PendingClarification, reply string) (*Entity, bool) {
	if pending == nil || len(pending.Options) == 0 {
		return nil, false
	}

	if n, ok := ParseAmount(reply); ok {
		if n >= 1 && n <= len(pending.Options) {
			return &pending.Options[n-1].Entity, true
		}
		return nil, false
	}

	query := normalize(reply)
	bestIdx, bestScore := -1, 0.0
	for i, opt := range pending.Options {
		score := Ratio(query, normalize(opt.Name))
		if strings.Contains(normalize(opt.Name), query) && query != "" {
			// A contained word ("unicef" in "unicef ethiopia") beats raw
			// edit distance.
			score = 1.0
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 || bestScore < 0.6 {
		return nil, false
	}
	return &pending.Options[bestIdx].Entity, true
}

// FormatOptions renders numbered options for presentation, in the order they
// must later be resolved against.
func FormatOptions(options []ScoredEntity) string {
	var b strings.Builder
	for i, opt := range options {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, opt.Name)
		if opt.Category != "" {
			fmt.Fprintf(&b, " (%s)", opt.Category)
		}
	}
	return b.String()
}
