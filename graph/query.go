package graph

import (
	"fmt"
	"sort"
	"strings"
)

const (
	maxListedEntities = 15
	maxListedAmounts  = 10
	maxRelExamples    = 3
	maxRelatedDetails = 5
)

// Engine answers structural questions over a loaded graph.
type Engine struct {
	graph *Graph
}

// NewEngine wraps an in-memory graph for querying.
func NewEngine(g *Graph) *Engine {
	return &Engine{graph: g}
}

// Stats exposes the underlying graph statistics.
func (e *Engine) Stats() Stats {
	return e.graph.Stats
}

// Answer dispatches a graph query to the matching handler. The trigger
// checks run in order; the entity-detail lookup is the fallback. The
// second return is false when no handler matches, so the caller can
// route the query to retrieval instead.
func (e *Engine) Answer(query string) (string, bool) {
	lower := strings.ToLower(query)

	switch {
	case containsAny(lower, "how many", "statistics", "overview"):
		return e.overview(), true
	case containsAny(lower, "funding amounts", "how much funding"):
		return e.listAmounts(), true
	case containsAny(lower, "list of investors", "which investors", "investors"):
		return e.listEntities(TypeInvestor, "investors"), true
	case containsAny(lower, "list of sectors", "which sectors", "sectors"):
		return e.listEntities(TypeSector, "sectors"), true
	case containsAny(lower, "list of policies", "which policies", "policies", "schemes"):
		return e.listEntities(TypePolicy, "policies"), true
	case containsAny(lower, "list of organizations", "which organizations", "organizations"):
		return e.listEntities(TypeOrganization, "organizations"), true
	case containsAny(lower, "relationship", "related to", "connected to"):
		return e.relationshipExamples(), true
	}

	if detail := e.entityDetail(lower); detail != "" {
		return detail, true
	}
	return "", false
}

// listAmounts reports the first funding amounts recorded in the graph.
func (e *Engine) listAmounts() string {
	ents := e.graph.Entities[TypeAmount]
	if len(ents) == 0 {
		return "No funding amounts found in the knowledge graph."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d funding amounts in the knowledge graph:\n", len(ents))
	shown := ents
	if len(shown) > maxListedAmounts {
		shown = shown[:maxListedAmounts]
	}
	for _, ent := range shown {
		fmt.Fprintf(&b, "- %s (source: %s, page %d)\n", ent.Label(), ent.Source, ent.Page)
	}
	if rest := len(ents) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %d more.", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) overview() string {
	s := e.graph.Stats
	var b strings.Builder
	b.WriteString("Knowledge graph overview:\n")
	fmt.Fprintf(&b, "- %d entities across %d types\n", s.TotalEntities, s.EntityTypes)
	fmt.Fprintf(&b, "- %d policies, %d organizations, %d sectors, %d funding amounts, %d investors\n",
		s.PolicyCount, s.OrganizationCount, s.SectorCount, s.AmountCount, s.InvestorCount)
	fmt.Fprintf(&b, "- %d relationships", s.TotalRelationships)
	return b.String()
}

func (e *Engine) listEntities(entityType, plural string) string {
	ents := e.graph.Entities[entityType]
	if len(ents) == 0 {
		return fmt.Sprintf("No %s found in the knowledge graph.", plural)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s in the knowledge graph:\n", len(ents), plural)
	shown := ents
	if len(shown) > maxListedEntities {
		shown = shown[:maxListedEntities]
	}
	for _, ent := range shown {
		fmt.Fprintf(&b, "- %s\n", ent.Label())
	}
	if rest := len(ents) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %d more.", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) relationshipExamples() string {
	if len(e.graph.Relationships) == 0 {
		return "No relationships found in the knowledge graph."
	}
	byType := make(map[string][]Relationship)
	for _, r := range e.graph.Relationships {
		byType[r.Type] = append(byType[r.Type], r)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relationships in the knowledge graph:\n", len(e.graph.Relationships))
	for _, t := range types {
		rels := byType[t]
		fmt.Fprintf(&b, "\n%s (%d):\n", t, len(rels))
		if len(rels) > maxRelExamples {
			rels = rels[:maxRelExamples]
		}
		for _, r := range rels {
			fmt.Fprintf(&b, "- %s\n", r.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// entityDetail finds the first graph entity whose name appears in the
// query and reports it with the relationships that mention it.
func (e *Engine) entityDetail(lowerQuery string) string {
	for _, entityType := range []string{TypePolicy, TypeOrganization, TypeSector, TypeInvestor} {
		for _, ent := range e.graph.Entities[entityType] {
			name := ent.Label()
			if name == "" || !strings.Contains(lowerQuery, strings.ToLower(name)) {
				continue
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%s is %s in the knowledge graph (source: %s, page %d).\n",
				name, typeNoun(entityType), ent.Source, ent.Page)
			related := e.relatedRelationships(name)
			if len(related) > 0 {
				b.WriteString("Related information:\n")
				for _, r := range related {
					fmt.Fprintf(&b, "- [%s] %s\n", r.Type, r.Text)
				}
			}
			return strings.TrimRight(b.String(), "\n")
		}
	}
	return ""
}

func (e *Engine) relatedRelationships(name string) []Relationship {
	lower := strings.ToLower(name)
	var out []Relationship
	for _, r := range e.graph.Relationships {
		if strings.Contains(strings.ToLower(r.Text), lower) {
			out = append(out, r)
			if len(out) == maxRelatedDetails {
				break
			}
		}
	}
	return out
}

func typeNoun(entityType string) string {
	switch entityType {
	case TypePolicy:
		return "a policy"
	case TypeOrganization:
		return "an organization"
	case TypeSector:
		return "a sector"
	case TypeInvestor:
		return "an investor"
	case TypeAmount:
		return "a funding amount"
	default:
		return "an entity"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
