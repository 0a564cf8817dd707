package graph

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/RajkumarR2006/gemarag/store"
)

// Curated entity vocabularies. Matching is case-insensitive substring
// search over chunk text, so longer aliases should precede shorter ones
// only when both must be reported separately.
var (
	knownPolicies = []string{
		"Startup India Seed Fund Scheme",
		"SISFS",
		"Fund of Funds",
		"DPIIT Recognition",
		"Section 80-IAC",
		"Angel Tax Exemption",
		"Startup India",
		"Atal Innovation Mission",
		"Make in India",
	}

	knownOrganizations = []string{
		"DPIIT",
		"Department for Promotion of Industry and Internal Trade",
		"SIDBI",
		"Small Industries Development Bank of India",
		"NITI Aayog",
		"Ministry of Commerce",
		"Government of India",
	}

	knownSectors = []string{
		"Technology",
		"Fintech",
		"Edtech",
		"Healthtech",
		"Agritech",
		"E-commerce",
		"SaaS",
		"Agriculture",
		"Manufacturing",
		"Healthcare",
		"Education",
		"Logistics",
		"CleanTech",
		"FoodTech",
		"MarineTech",
	}

	knownInvestors = []string{
		"Sequoia Capital",
		"Accel Partners",
		"Blume Ventures",
		"Matrix Partners",
		"Lightspeed",
		"Nexus Venture Partners",
		"Tiger Global",
		"SoftBank",
		"Kalaari Capital",
	}
)

// Amount patterns beyond what ingestion already canonicalized.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Rs\.?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*(Lakhs?|Crores?|lakh|crore)`),
	regexp.MustCompile(`\$\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*(million|billion|M|B)\b`),
	regexp.MustCompile(`(?i)INR\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*(Lakhs?|Crores?)?`),
}

// relPattern ties a text pattern to the relationship it evidences.
type relPattern struct {
	re         *regexp.Regexp
	relType    string
	sourceType string
	targetType string
}

var relPatterns = []relPattern{
	{
		re:         regexp.MustCompile(`(?i)(SISFS|Seed Fund|Startup India)[^.]*?(?:provides|offers)[^.]*?Rs\.?\s*\d+(?:,\d+)*\s*(?:Lakhs?|Crores?|lakh|crore)`),
		relType:    RelProvidesFunding,
		sourceType: TypePolicy,
		targetType: TypeAmount,
	},
	{
		re:         regexp.MustCompile(`(?i)(DPIIT|Department)[^.]*?(?:manages|administers)[^.]*?(Startup India|SISFS)`),
		relType:    RelManages,
		sourceType: TypeOrganization,
		targetType: TypePolicy,
	},
	{
		re:         regexp.MustCompile(`(?i)eligible[^.]*?for[^.]*?(SISFS|Seed Fund|Recognition)`),
		relType:    RelEligibleFor,
		sourceType: "STARTUP",
		targetType: TypePolicy,
	},
	{
		re:         regexp.MustCompile(`(?i)(sector-agnostic|all sectors|supports[^.]*?sectors)`),
		relType:    RelSupportsSectors,
		sourceType: TypePolicy,
		targetType: TypeSector,
	},
	{
		re:         regexp.MustCompile(`(?i)(\w+)\s+(?:invested|funded)\s+(?:in|into)\s+(\w+)`),
		relType:    RelInvestedIn,
		sourceType: TypeInvestor,
		targetType: "STARTUP",
	},
	{
		re:         regexp.MustCompile(`(?i)maximum[^.]*?(?:grant|investment)[^.]*?Rs\.?\s*\d+(?:,\d+)*\s*(?:Lakhs?|Crores?|lakh|crore)`),
		relType:    RelHasLimit,
		sourceType: TypePolicy,
		targetType: TypeAmount,
	},
}

const maxRelText = 150

// Build extracts a knowledge graph from the ingested chunks.
func Build(chunks []store.Chunk) *Graph {
	g := &Graph{Entities: make(map[string][]Entity)}

	for _, c := range chunks {
		lower := strings.ToLower(c.Text)
		extractNamed(g, TypePolicy, knownPolicies, lower, c)
		extractNamed(g, TypeOrganization, knownOrganizations, lower, c)
		extractNamed(g, TypeSector, knownSectors, lower, c)
		extractNamed(g, TypeInvestor, knownInvestors, lower, c)
		extractAmounts(g, c)
		extractRelationships(g, c)
	}

	dedupeEntities(g)
	dedupeRelationships(g)
	g.recount()

	slog.Info("knowledge graph built",
		"entities", g.Stats.TotalEntities,
		"relationships", g.Stats.TotalRelationships,
		"chunks", len(chunks))
	return g
}

func extractNamed(g *Graph, entityType string, known []string, lowerText string, c store.Chunk) {
	for _, name := range known {
		if strings.Contains(lowerText, strings.ToLower(name)) {
			g.Entities[entityType] = append(g.Entities[entityType], Entity{
				Name:    name,
				ChunkID: c.ChunkID,
				Source:  c.Source,
				Page:    c.Page,
			})
		}
	}
}

func extractAmounts(g *Graph, c store.Chunk) {
	// Canonicalized amounts from ingestion come first; they carry a
	// normalized numeric value.
	for _, ca := range c.Canonicals {
		g.Entities[TypeAmount] = append(g.Entities[TypeAmount], Entity{
			Value:      ca.Raw,
			Normalized: ca.Value,
			ChunkID:    c.ChunkID,
			Source:     c.Source,
			Page:       c.Page,
		})
	}
	for _, re := range amountPatterns {
		for _, m := range re.FindAllString(c.Text, -1) {
			g.Entities[TypeAmount] = append(g.Entities[TypeAmount], Entity{
				Value:   strings.TrimSpace(m),
				ChunkID: c.ChunkID,
				Source:  c.Source,
				Page:    c.Page,
			})
		}
	}
}

func extractRelationships(g *Graph, c store.Chunk) {
	for _, p := range relPatterns {
		for _, m := range p.re.FindAllString(c.Text, -1) {
			text := strings.TrimSpace(m)
			if len(text) > maxRelText {
				text = text[:maxRelText]
			}
			g.Relationships = append(g.Relationships, Relationship{
				Type:       p.relType,
				SourceType: p.sourceType,
				TargetType: p.targetType,
				Text:       text,
				ChunkID:    c.ChunkID,
				Source:     c.Source,
				Page:       c.Page,
			})
		}
	}
}

// dedupeEntities keeps the first occurrence of each entity per type,
// keyed by lowercased label.
func dedupeEntities(g *Graph) {
	for entityType, ents := range g.Entities {
		seen := make(map[string]bool, len(ents))
		out := ents[:0]
		for _, e := range ents {
			key := strings.ToLower(e.Label())
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, e)
		}
		g.Entities[entityType] = out
	}
}

// dedupeRelationships keeps one relationship per (type, text prefix).
func dedupeRelationships(g *Graph) {
	seen := make(map[string]bool, len(g.Relationships))
	out := g.Relationships[:0]
	for _, r := range g.Relationships {
		prefix := r.Text
		if len(prefix) > 50 {
			prefix = prefix[:50]
		}
		key := r.Type + "|" + strings.ToLower(prefix)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	g.Relationships = out
}
