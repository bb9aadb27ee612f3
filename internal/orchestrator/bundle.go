package orchestrator

import (
	"throp/internal/tools"
)

// Intent is what kind of answer the question wants.
type Intent string

const (
	IntentIdentity      Intent = "identity"
	IntentMarket        Intent = "market"
	IntentCurrentEvents Intent = "current-events"
	IntentExplainer     Intent = "explainer"
	IntentCasual        Intent = "casual"
)

// Domain is the topical area the question lives in.
type Domain string

const (
	DomainMarket     Domain = "market"
	DomainTechnology Domain = "technology"
	DomainGaming     Domain = "gaming"
	DomainCulture    Domain = "culture"
	DomainGeneral    Domain = "general"
)

const maxBundleFacts = 12

// EvidenceBundle accumulates what the tools found for one question. Query
// is the original input, never mutated after construction.
type EvidenceBundle struct {
	Query      string
	Intent     Intent
	Domain     Domain
	facts      []string
	sources    []string
	sourceSeen map[string]bool
	candidates []tools.Candidate
}

func NewEvidenceBundle(query string, intent Intent, domain Domain) *EvidenceBundle {
	return &EvidenceBundle{
		Query:      query,
		Intent:     intent,
		Domain:     domain,
		sourceSeen: make(map[string]bool),
	}
}

// AddFact appends a fact up to the bundle cap. Duplicate facts from
// different tools are kept: agreement is signal.
func (b *EvidenceBundle) AddFact(fact string) {
	if fact == "" || len(b.facts) >= maxBundleFacts {
		return
	}
	b.facts = append(b.facts, fact)
}

// AddSource appends a source URL, deduplicated.
func (b *EvidenceBundle) AddSource(source string) {
	if source == "" || b.sourceSeen[source] {
		return
	}
	b.sourceSeen[source] = true
	b.sources = append(b.sources, source)
}

// AddCandidates records ambiguous matches reported by a tool.
func (b *EvidenceBundle) AddCandidates(candidates []tools.Candidate) {
	b.candidates = append(b.candidates, candidates...)
}

// Merge folds one tool's result into the bundle.
func (b *EvidenceBundle) Merge(res tools.Result) {
	for _, f := range res.Facts {
		b.AddFact(f)
	}
	for _, s := range res.Sources {
		b.AddSource(s)
	}
	b.AddCandidates(res.Candidates)
}

func (b *EvidenceBundle) Facts() []string   { return b.facts }
func (b *EvidenceBundle) Sources() []string { return b.sources }

// NeedsDisambiguation reports whether a tool surfaced multiple equally
// likely matches that the user has to pick between.
func (b *EvidenceBundle) NeedsDisambiguation() bool { return len(b.candidates) > 1 }

func (b *EvidenceBundle) Candidates() []tools.Candidate { return b.candidates }

// Confidence scores the bundle by how much evidence backs it. More facts
// never lowers the score.
func (b *EvidenceBundle) Confidence() float64 {
	switch n := len(b.facts); {
	case n == 0:
		return 0.2
	case n <= 2:
		return 0.5
	default:
		return 0.85
	}
}
