package clarify

import (
	"sort"
	"strings"
)

// MatchOutcome classifies a fuzzy lookup result.
type MatchOutcome int

const (
	// NoMatch means no candidate cleared the ambiguity threshold.
	NoMatch MatchOutcome = iota
	// Exact means one candidate cleared the high-confidence threshold.
	Exact
	// Ambiguous means one or more candidates cleared the lower threshold
	// but none the high one; the caller must present Options to the user.
	Ambiguous
)

// Entity is one row of the external entity directory.
type Entity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// ScoredEntity pairs a candidate with its similarity score.
type ScoredEntity struct {
	Entity
	Score float64 `json:"score"`
}

// MatchResult is the outcome of one fuzzy lookup. Best is set for Exact;
// Options (descending score, capped) for Ambiguous.
type MatchResult struct {
	Outcome MatchOutcome
	Best    ScoredEntity
	Options []ScoredEntity
}

// Matcher scores free text against a candidate directory using a normalized
// edit-distance ratio. Matching is deterministic: identical input always
// yields the same classification and ordering.
type Matcher struct {
	ExactThreshold     float64
	AmbiguousThreshold float64
	MaxOptions         int
}

// NewMatcher returns a matcher with the standard thresholds.
func NewMatcher() *Matcher {
	return &Matcher{
		ExactThreshold:     0.9,
		AmbiguousThreshold: 0.6,
		MaxOptions:         3,
	}
}

// Match scores text against each candidate's name and category, taking the
// best of the two per candidate.
func (m *Matcher) Match(text string, candidates []Entity) MatchResult {
	query := normalize(text)
	if query == "" || len(candidates) == 0 {
		return MatchResult{Outcome: NoMatch}
	}

	scored := make([]ScoredEntity, 0, len(candidates))
	for _, c := range candidates {
		score := Ratio(query, normalize(c.Name))
		if c.Category != "" {
			if cs := Ratio(query, normalize(c.Category)); cs > score {
				score = cs
			}
		}
		scored = append(scored, ScoredEntity{Entity: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Name < scored[j].Name
	})

	// Exact requires a unique winner: a runner-up also clearing the exact
	// threshold means the query did not single anything out.
	if scored[0].Score >= m.ExactThreshold &&
		(len(scored) == 1 || scored[1].Score < m.ExactThreshold) {
		return MatchResult{Outcome: Exact, Best: scored[0]}
	}

	var options []ScoredEntity
	for _, s := range scored {
		if s.Score < m.AmbiguousThreshold {
			break
		}
		options = append(options, s)
		if len(options) == m.MaxOptions {
			break
		}
	}

	if len(options) == 0 {
		return MatchResult{Outcome: NoMatch}
	}
	return MatchResult{Outcome: Ambiguous, Options: options}
}

// Ratio is the normalized Levenshtein similarity of two strings, 0.0-1.0.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes the edit distance with a two-row matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
