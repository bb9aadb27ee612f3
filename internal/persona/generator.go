// Package persona turns evidence bundles into replies in the bot's voice.
// The voice layer rephrases, it never invents: facts the orchestrator
// gathered survive into the reply, and source attributions pass through
// unmodified.
package persona

import (
	"context"
	"fmt"
	"strings"
	"time"

	"throp/internal/tools"
	"throp/pkg/llm"
	"throp/pkg/logging"
)

const (
	generateTimeout   = 30 * time.Second
	responseMaxTokens = 400
)

const systemPrompt = `you are throp, a terminally online creature who answers questions on social media.

voice rules:
- all lowercase, no hashtags, no corporate speak
- chaotic but genuinely helpful, like the smartest degen in the group chat
- short sentences. dry humor. occasional "fr", "ngl", "lowkey"
- never use emojis

content rules:
- every fact given to you below MUST appear in your answer, reworded is fine, dropped is not
- if you were given no facts, say you don't know instead of making something up
- never invent numbers, names, or dates that are not in the facts
- answer the question directly before any jokes`

// Request is one answer to compose.
type Request struct {
	Question      string
	AuthorContext string
	History       []string
	Intent        string
	Domain        string
	Facts         []string
	Sources       []string
	Confidence    float64
}

// Reply is the composed answer plus its source attributions.
type Reply struct {
	Text      string
	Citations []string
}

// Generator composes replies. A nil language model provider is fine: the
// generator falls back to deterministic templates built from the facts.
type Generator struct {
	provider llm.Provider
	logger   logging.Logger
}

func NewGenerator(provider llm.Provider, logger logging.Logger) *Generator {
	return &Generator{provider: provider, logger: logger}
}

// Compose produces a reply for the request. It never returns an error for
// provider failures, only degrades to the template fallback.
func (g *Generator) Compose(ctx context.Context, req Request) Reply {
	citations := append([]string(nil), req.Sources...)

	if g.provider == nil {
		return Reply{Text: g.fallbackText(req), Citations: citations}
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := g.provider.Complete(genCtx, llm.Request{
		System:    systemPrompt,
		Messages:  []llm.Message{{Role: "user", Content: buildUserMessage(req)}},
		MaxTokens: responseMaxTokens,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			g.logger.WithError(err).Warn("Language model call failed, using fallback reply")
		}
		return Reply{Text: g.fallbackText(req), Citations: citations}
	}

	// Provider citations are appended after the evidence sources, deduped.
	seen := make(map[string]bool, len(citations))
	for _, c := range citations {
		seen[c] = true
	}
	for _, c := range resp.Citations {
		if c != "" && !seen[c] {
			seen[c] = true
			citations = append(citations, c)
		}
	}

	return Reply{Text: strings.TrimSpace(resp.Content), Citations: citations}
}

// Disambiguate asks the user which candidate they meant. Deterministic on
// purpose so a broken model provider can never block the clarifying step.
func (g *Generator) Disambiguate(candidates []tools.Candidate) string {
	var b strings.Builder
	b.WriteString("ok wait there are multiple of those, which one do u mean:")
	for _, c := range candidates {
		b.WriteString(fmt.Sprintf("\n- %s (%s)", c.Name, c.Description))
	}
	return b.String()
}

func buildUserMessage(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "question: %s\n", req.Question)
	if req.AuthorContext != "" {
		fmt.Fprintf(&b, "asked by: %s\n", req.AuthorContext)
	}
	fmt.Fprintf(&b, "intent: %s, domain: %s\n", req.Intent, req.Domain)
	if len(req.History) > 0 {
		b.WriteString("earlier in this conversation:\n")
		for _, h := range req.History {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if len(req.Facts) > 0 {
		b.WriteString("facts you must include:\n")
		for _, f := range req.Facts {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	} else {
		b.WriteString("no facts were found. admit you don't know.\n")
	}
	return b.String()
}

// fallbackText builds a reply without the model. Facts are quoted near
// verbatim so nothing gathered is lost.
func (g *Generator) fallbackText(req Request) string {
	if len(req.Facts) == 0 {
		return "ngl i looked and found nothing, ask me again in a bit"
	}
	var b strings.Builder
	b.WriteString("ok so here's what i found: ")
	b.WriteString(strings.Join(req.Facts, ". "))
	if req.Confidence < 0.5 {
		b.WriteString(". thats all i got, take it with salt")
	}
	return b.String()
}
