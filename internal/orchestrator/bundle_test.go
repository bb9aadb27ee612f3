package orchestrator

import (
	"fmt"
	"testing"

	"throp/internal/tools"
)

func TestConfidenceTiers(t *testing.T) {
	b := NewEvidenceBundle("what is a rollup", IntentExplainer, DomainGeneral)
	if got := b.Confidence(); got != 0.2 {
		t.Errorf("empty bundle confidence = %v, want 0.2", got)
	}

	b.AddFact("one")
	if got := b.Confidence(); got != 0.5 {
		t.Errorf("one fact confidence = %v, want 0.5", got)
	}
	b.AddFact("two")
	if got := b.Confidence(); got != 0.5 {
		t.Errorf("two facts confidence = %v, want 0.5", got)
	}
	b.AddFact("three")
	if got := b.Confidence(); got != 0.85 {
		t.Errorf("three facts confidence = %v, want 0.85", got)
	}
}

func TestConfidenceNeverDecreasesAsFactsGrow(t *testing.T) {
	b := NewEvidenceBundle("what is a rollup", IntentExplainer, DomainGeneral)
	prev := b.Confidence()
	for i := 0; i < 20; i++ {
		b.AddFact(fmt.Sprintf("fact %d", i))
		if got := b.Confidence(); got < prev {
			t.Fatalf("confidence dropped from %v to %v at fact %d", prev, got, i+1)
		} else {
			prev = got
		}
	}
}

func TestBundleCapsFactsKeepsDuplicates(t *testing.T) {
	b := NewEvidenceBundle("what is a rollup", IntentExplainer, DomainGeneral)
	for i := 0; i < maxBundleFacts+5; i++ {
		b.AddFact("same fact from two tools")
	}
	if got := len(b.Facts()); got != maxBundleFacts {
		t.Errorf("facts = %d, want capped at %d", got, maxBundleFacts)
	}
}

func TestBundleDeduplicatesSources(t *testing.T) {
	b := NewEvidenceBundle("what is a rollup", IntentExplainer, DomainGeneral)
	b.AddSource("https://a.example")
	b.AddSource("https://a.example")
	b.AddSource("https://b.example")
	if got := len(b.Sources()); got != 2 {
		t.Errorf("sources = %v", b.Sources())
	}
}

func TestNeedsDisambiguation(t *testing.T) {
	b := NewEvidenceBundle("who is wint", IntentIdentity, DomainGeneral)
	if b.NeedsDisambiguation() {
		t.Error("empty bundle needs disambiguation")
	}
	b.AddCandidates([]tools.Candidate{{Name: "@one"}})
	if b.NeedsDisambiguation() {
		t.Error("single candidate is not ambiguous")
	}
	b.AddCandidates([]tools.Candidate{{Name: "@two"}})
	if !b.NeedsDisambiguation() {
		t.Error("two candidates should trigger disambiguation")
	}
}
