package persona

import (
	"context"
	"errors"
	"strings"
	"testing"

	"throp/internal/tools"
	"throp/pkg/llm"
	"throp/pkg/logging"
)

type stubProvider struct {
	resp llm.Response
	err  error
	last llm.Request
}

func (s *stubProvider) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	s.last = req
	return s.resp, s.err
}

func TestComposePreservesSourcesAndAppendsProviderCitations(t *testing.T) {
	provider := &stubProvider{resp: llm.Response{
		Content:   "eth is at 4200, fr",
		Citations: []string{"https://example.com/extra", "https://source.one"},
	}}
	gen := NewGenerator(provider, logging.NewTestLogger())

	reply := gen.Compose(context.Background(), Request{
		Question: "eth price?",
		Facts:    []string{"ethereum is trading at $4200"},
		Sources:  []string{"https://source.one", "https://source.two"},
	})

	if reply.Text != "eth is at 4200, fr" {
		t.Errorf("text = %q", reply.Text)
	}
	want := []string{"https://source.one", "https://source.two", "https://example.com/extra"}
	if len(reply.Citations) != len(want) {
		t.Fatalf("citations = %v, want %v", reply.Citations, want)
	}
	for i := range want {
		if reply.Citations[i] != want[i] {
			t.Errorf("citation %d = %q, want %q", i, reply.Citations[i], want[i])
		}
	}
}

func TestComposeSendsFactsToProvider(t *testing.T) {
	provider := &stubProvider{resp: llm.Response{Content: "ok"}}
	gen := NewGenerator(provider, logging.NewTestLogger())

	gen.Compose(context.Background(), Request{
		Question: "what happened",
		Facts:    []string{"fact one", "fact two"},
		History:  []string{"earlier msg"},
	})

	content := provider.last.Messages[0].Content
	for _, must := range []string{"fact one", "fact two", "earlier msg", "what happened"} {
		if !strings.Contains(content, must) {
			t.Errorf("provider message missing %q", must)
		}
	}
}

func TestComposeFallsBackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("model down")}
	gen := NewGenerator(provider, logging.NewTestLogger())

	reply := gen.Compose(context.Background(), Request{
		Question: "eth price?",
		Facts:    []string{"ethereum is trading at $4200"},
		Sources:  []string{"https://source.one"},
	})

	if !strings.Contains(reply.Text, "ethereum is trading at $4200") {
		t.Errorf("fallback dropped the facts: %q", reply.Text)
	}
	if len(reply.Citations) != 1 || reply.Citations[0] != "https://source.one" {
		t.Errorf("fallback citations = %v", reply.Citations)
	}
}

func TestComposeWithoutProvider(t *testing.T) {
	gen := NewGenerator(nil, logging.NewTestLogger())

	reply := gen.Compose(context.Background(), Request{Question: "anything?"})
	if reply.Text == "" {
		t.Fatal("nil provider produced empty reply")
	}

	withFacts := gen.Compose(context.Background(), Request{
		Question: "sol price?",
		Facts:    []string{"solana is trading at $190"},
	})
	if !strings.Contains(withFacts.Text, "solana is trading at $190") {
		t.Errorf("template reply dropped the facts: %q", withFacts.Text)
	}
}

func TestDisambiguateListsCandidates(t *testing.T) {
	gen := NewGenerator(nil, logging.NewTestLogger())
	text := gen.Disambiguate([]tools.Candidate{
		{Name: "@alice_dev", Description: "12000 followers, verified"},
		{Name: "@alice_art", Description: "900 followers"},
	})
	if !strings.Contains(text, "@alice_dev") || !strings.Contains(text, "@alice_art") {
		t.Errorf("candidates missing from reply: %q", text)
	}
	if !strings.Contains(text, "which one") {
		t.Errorf("reply does not ask the user to choose: %q", text)
	}
}
