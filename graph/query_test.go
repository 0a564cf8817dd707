package graph

import (
	"fmt"
	"strings"
	"testing"
)

func testGraph() *Graph {
	g := &Graph{
		Entities: map[string][]Entity{
			TypePolicy: {
				{Name: "SISFS", ChunkID: "c1", Source: "guidelines.pdf", Page: 3},
				{Name: "Startup India", ChunkID: "c2", Source: "guidelines.pdf", Page: 1},
			},
			TypeOrganization: {
				{Name: "DPIIT", ChunkID: "c2", Source: "guidelines.pdf", Page: 1},
			},
			TypeSector: {
				{Name: "Fintech", ChunkID: "c3", Source: "funding.csv", Page: 0},
			},
			TypeInvestor: {
				{Name: "Sequoia Capital", ChunkID: "c4", Source: "funding.csv", Page: 0},
			},
		},
		Relationships: []Relationship{
			{Type: RelProvidesFunding, Text: "SISFS provides grants of up to Rs. 20 Lakhs", ChunkID: "c1"},
			{Type: RelManages, Text: "DPIIT manages the Startup India initiative", ChunkID: "c2"},
		},
	}
	g.recount()
	return g
}

// mustAnswer fails the test if the engine has no handler for the query.
func mustAnswer(t *testing.T, e *Engine, query string) string {
	t.Helper()
	got, ok := e.Answer(query)
	if !ok {
		t.Fatalf("Answer(%q) returned no match", query)
	}
	return got
}

func TestAnswerOverview(t *testing.T) {
	e := NewEngine(testGraph())
	got := mustAnswer(t, e, "How many entities are in the graph?")

	if !strings.Contains(got, "5 entities") {
		t.Errorf("overview missing entity count: %q", got)
	}
	if !strings.Contains(got, "2 relationships") {
		t.Errorf("overview missing relationship count: %q", got)
	}
}

func TestAnswerListInvestors(t *testing.T) {
	e := NewEngine(testGraph())
	got := mustAnswer(t, e, "Which investors are in the knowledge graph?")

	if !strings.Contains(got, "Sequoia Capital") {
		t.Errorf("investor list missing Sequoia Capital: %q", got)
	}
}

func TestAnswerListCapped(t *testing.T) {
	g := &Graph{Entities: map[string][]Entity{TypeSector: {}}}
	for i := 0; i < 20; i++ {
		g.Entities[TypeSector] = append(g.Entities[TypeSector], Entity{Name: fmt.Sprintf("Sector%d", i)})
	}
	g.recount()

	got := mustAnswer(t, NewEngine(g), "list of sectors")
	if !strings.Contains(got, "... and 5 more.") {
		t.Errorf("capped list missing overflow suffix: %q", got)
	}
	if strings.Contains(got, "Sector15") {
		t.Errorf("list shows entries past the cap: %q", got)
	}
}

func TestAnswerFundingAmounts(t *testing.T) {
	g := &Graph{Entities: map[string][]Entity{TypeAmount: {}}}
	for i := 1; i <= 12; i++ {
		g.Entities[TypeAmount] = append(g.Entities[TypeAmount],
			Entity{Name: fmt.Sprintf("Rs. %d Lakhs", i*10), Source: "guidelines.pdf", Page: i})
	}
	g.recount()

	got := mustAnswer(t, NewEngine(g), "What funding amounts are mentioned?")
	if !strings.Contains(got, "Found 12 funding amounts") {
		t.Errorf("amounts answer missing total: %q", got)
	}
	if !strings.Contains(got, "Rs. 100 Lakhs") {
		t.Errorf("amounts answer missing tenth entry: %q", got)
	}
	if strings.Contains(got, "Rs. 110 Lakhs") {
		t.Errorf("amounts answer lists entries past the cap: %q", got)
	}
	if !strings.Contains(got, "... and 2 more.") {
		t.Errorf("amounts answer missing overflow suffix: %q", got)
	}

	if got := mustAnswer(t, NewEngine(testGraph()), "how much funding does the scheme provide"); !strings.Contains(got, "No funding amounts") {
		t.Errorf("graph without amounts: %q", got)
	}
}

func TestAnswerRelationships(t *testing.T) {
	e := NewEngine(testGraph())
	got := mustAnswer(t, e, "How are the entities related to each other?")

	if !strings.Contains(got, RelProvidesFunding) || !strings.Contains(got, RelManages) {
		t.Errorf("relationship answer missing types: %q", got)
	}
	if !strings.Contains(got, "SISFS provides grants") {
		t.Errorf("relationship answer missing example text: %q", got)
	}
}

func TestAnswerEntityDetail(t *testing.T) {
	e := NewEngine(testGraph())
	got := mustAnswer(t, e, "Tell me about DPIIT")

	if !strings.Contains(got, "DPIIT is an organization") {
		t.Errorf("entity detail missing type line: %q", got)
	}
	if !strings.Contains(got, "DPIIT manages the Startup India initiative") {
		t.Errorf("entity detail missing related relationship: %q", got)
	}
}

// Queries no handler recognizes report a miss so the caller can route
// them to retrieval instead.
func TestAnswerUnmatchedReportsMiss(t *testing.T) {
	e := NewEngine(testGraph())
	got, ok := e.Answer("Tell me about quantum computing grants")

	if ok {
		t.Errorf("unmatched query reported a hit: %q", got)
	}
	if got != "" {
		t.Errorf("unmatched query returned text %q, want empty", got)
	}
}

func TestAnswerEmptyGraph(t *testing.T) {
	g := &Graph{Entities: map[string][]Entity{}}
	g.recount()
	e := NewEngine(g)

	if got := mustAnswer(t, e, "list of investors"); !strings.Contains(got, "No investors") {
		t.Errorf("empty graph investor list: %q", got)
	}
	if got := mustAnswer(t, e, "what is related to what?"); !strings.Contains(got, "No relationships") {
		t.Errorf("empty graph relationships: %q", got)
	}
}
