// Package router classifies incoming queries into the handling intents
// understood by the answer engine. Classification is purely lexical: an
// ordered rule list is evaluated top to bottom and the first match wins,
// so adding a rule never changes the outcome of rules above it.
package router

import "strings"

// Intent identifies which subsystem should answer a query.
type Intent string

const (
	IntentSmallTalk  Intent = "SMALL_TALK"
	IntentCapability Intent = "CAPABILITY"
	IntentGraph      Intent = "GRAPH"
	IntentFAQ        Intent = "FAQ"
	IntentSemantic   Intent = "SEMANTIC"
)

// Classification is the router's verdict for a query.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	// Matched is the phrase that fired the rule; empty for the
	// SEMANTIC default.
	Matched string `json:"matched,omitempty"`
}

// rule pairs a predicate with the intent it selects. The predicate
// returns the matched phrase, or "" for no match.
type rule struct {
	intent Intent
	match  func(query string) string
}

// greetings covers conversational phrases: hellos, pleasantries, and
// meta-questions about the assistant itself.
var greetings = []string{
	"hi", "hello", "hey", "good morning", "good afternoon",
	"good evening", "how are you", "how r u", "how is it going",
	"whats up", "who are you", "what is your name", "are you human",
	"you are smart", "thank you", "thanks", "cool", "ok",
	"bye", "goodbye",
}

var capabilityPhrases = []string{
	"what can you do", "help me",
}

var graphPhrases = []string{
	"list of", "which investors", "which sectors", "how many",
	"relationship", "related to", "connected to",
}

var faqPhrases = []string{
	"maximum grant", "eligible", "eligibility", "interest rate",
	"tenure", "seed fund amount",
}

// rules is the ordered decision list. Order matters: small talk beats
// capability, capability beats graph, and so on down to the FAQ rule.
var rules = []rule{
	{IntentSmallTalk, matchSmallTalk},
	{IntentCapability, matchAny(capabilityPhrases)},
	{IntentGraph, matchAny(graphPhrases)},
	{IntentFAQ, matchAny(faqPhrases)},
}

// Classify routes a query to an intent. The default is SEMANTIC with a
// lower confidence, since nothing positively identified the query.
func Classify(query string) Classification {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, r := range rules {
		if phrase := r.match(q); phrase != "" {
			return Classification{Intent: r.intent, Confidence: 1.0, Matched: phrase}
		}
	}
	return Classification{Intent: IntentSemantic, Confidence: 0.85}
}

// smallTalkMaxLen bounds the contains-a-greeting rule: only queries
// shorter than this can be classified as small talk by substring.
const smallTalkMaxLen = 30

// matchSmallTalk fires on an exact greeting, or on a short query that
// contains a greeting as a whole word ("hey there!"). The whole-word
// check keeps greetings from firing inside ordinary words, like "hi"
// inside "something".
func matchSmallTalk(q string) string {
	q = strings.TrimRight(q, "!.?")

	for _, g := range greetings {
		if q == g {
			return g
		}
		if len(q) < smallTalkMaxLen && containsWord(q, g) {
			return g
		}
	}
	return ""
}

// containsWord reports whether phrase occurs in q delimited by
// non-alphanumeric runes (or the string edges).
func containsWord(q, phrase string) bool {
	for from := 0; ; {
		i := strings.Index(q[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		leftOK := start == 0 || !isWordRune(rune(q[start-1]))
		rightOK := end == len(q) || !isWordRune(rune(q[end]))
		if leftOK && rightOK {
			return true
		}
		from = start + 1
	}
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// matchAny returns a predicate that fires on any substring from phrases.
func matchAny(phrases []string) func(string) string {
	return func(q string) string {
		for _, p := range phrases {
			if strings.Contains(q, p) {
				return p
			}
		}
		return ""
	}
}
