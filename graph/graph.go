// Package graph builds and queries the knowledge graph extracted from the
// policy corpus. Extraction is rule-based: entities come from curated
// name lists plus amount patterns, relationships from regex patterns over
// chunk text. The graph persists as a single graph.json artifact and is
// queried entirely in memory.
package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Entity type keys as stored in graph.json.
const (
	TypePolicy       = "POLICY"
	TypeOrganization = "ORGANIZATION"
	TypeSector       = "SECTOR"
	TypeAmount       = "AMOUNT"
	TypeInvestor     = "INVESTOR"
)

// Relationship type constants.
const (
	RelProvidesFunding = "PROVIDES_FUNDING"
	RelManages         = "MANAGES"
	RelEligibleFor     = "ELIGIBLE_FOR"
	RelSupportsSectors = "SUPPORTS_SECTORS"
	RelInvestedIn      = "INVESTED_IN"
	RelHasLimit        = "HAS_LIMIT"
)

// Entity is a named thing found in the corpus. AMOUNT entities carry
// Value instead of Name.
type Entity struct {
	Name       string  `json:"name,omitempty"`
	Value      string  `json:"value,omitempty"`
	Normalized float64 `json:"normalized,omitempty"`
	ChunkID    string  `json:"chunk_id"`
	Source     string  `json:"source"`
	Page       int     `json:"page"`
}

// Label returns the display name for an entity of any type.
func (e Entity) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Value
}

// Relationship is an extracted connection with its evidence text.
type Relationship struct {
	Type       string `json:"type"`
	SourceType string `json:"source_type"`
	TargetType string `json:"target_type"`
	Text       string `json:"text"`
	ChunkID    string `json:"chunk_id"`
	Source     string `json:"source"`
	Page       int    `json:"page"`
}

// Stats summarizes graph contents.
type Stats struct {
	TotalEntities      int `json:"total_entities"`
	TotalRelationships int `json:"total_relationships"`
	EntityTypes        int `json:"entity_types"`
	PolicyCount        int `json:"policy_count"`
	OrganizationCount  int `json:"organization_count"`
	SectorCount        int `json:"sector_count"`
	AmountCount        int `json:"amount_count"`
	InvestorCount      int `json:"investor_count"`
}

// Graph is the full knowledge graph as persisted in graph.json.
type Graph struct {
	Entities      map[string][]Entity `json:"entities"`
	Relationships []Relationship      `json:"relationships"`
	Stats         Stats               `json:"stats"`
}

// Load reads a graph.json file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph: %w", err)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	if g.Entities == nil {
		g.Entities = make(map[string][]Entity)
	}
	return &g, nil
}

// Save writes the graph to path, creating parent directories as needed.
func (g *Graph) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating graph directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing graph: %w", err)
	}
	return nil
}

// recount refreshes Stats from the entity and relationship sets.
func (g *Graph) recount() {
	total := 0
	for _, ents := range g.Entities {
		total += len(ents)
	}
	g.Stats = Stats{
		TotalEntities:      total,
		TotalRelationships: len(g.Relationships),
		EntityTypes:        len(g.Entities),
		PolicyCount:        len(g.Entities[TypePolicy]),
		OrganizationCount:  len(g.Entities[TypeOrganization]),
		SectorCount:        len(g.Entities[TypeSector]),
		AmountCount:        len(g.Entities[TypeAmount]),
		InvestorCount:      len(g.Entities[TypeInvestor]),
	}
}
