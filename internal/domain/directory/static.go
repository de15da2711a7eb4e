// Package directory provides the entity-lookup collaborator the
// clarification resolver searches against. The canonical directory is owned
// by the domain service; this static implementation seeds a fixed target
// list for single-node deployments and tests.
package directory

import (
	"context"
	"strings"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/clarify"
)

// Static is an in-memory clarify.Directory over a fixed entity list.
type Static struct {
	entities []clarify.Entity
}

// NewStatic creates a directory over the given entities.
func NewStatic(entities []clarify.Entity) *Static {
	return &Static{entities: entities}
}

// SeedTargets is the default donation-target directory used when no external
// directory service is configured.
func SeedTargets() []clarify.Entity {
	return []clarify.Entity{
		{ID: "tgt-001", Name: "Mekedonia Home for the Elderly", Category: "health"},
		{ID: "tgt-002", Name: "Education for All Ethiopia", Category: "education"},
		{ID: "tgt-003", Name: "Educate the Children Fund", Category: "education"},
		{ID: "tgt-004", Name: "Clean Water Initiative", Category: "water"},
		{ID: "tgt-005", Name: "Red Cross Emergency Relief", Category: "emergency relief"},
		{ID: "tgt-006", Name: "Hamlin Fistula Hospital", Category: "health"},
	}
}

// Search filters the entity list by category and a loose substring query.
// An empty filter returns everything up to the limit.
func (s *Static) Search(ctx context.Context, filters clarify.SearchFilters) ([]clarify.Entity, error) {
	query := strings.ToLower(strings.TrimSpace(filters.Query))
	category := strings.ToLower(strings.TrimSpace(filters.Category))

	var out []clarify.Entity
	for _, ent := range s.entities {
		if category != "" && !strings.EqualFold(ent.Category, category) {
			continue
		}
		if query != "" && !matchesQuery(ent, query) {
			// Fuzzy scoring happens in the resolver; the directory only
			// pre-filters on obvious mismatches when the query is long.
			if len(strings.Fields(query)) > 3 {
				continue
			}
		}
		out = append(out, ent)
		if filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
	}
	return out, nil
}

func matchesQuery(ent clarify.Entity, query string) bool {
	name := strings.ToLower(ent.Name)
	cat := strings.ToLower(ent.Category)
	for _, word := range strings.Fields(query) {
		if strings.Contains(name, word) || strings.Contains(cat, word) {
			return true
		}
	}
	return false
}
