// Package orchestrator runs the answer pipeline: classify the question,
// fan out to the evidence tools, score the bundle, and hand it to the
// persona layer. GenerateResponse never fails; the worst case is a
// low-confidence reply with no citations.
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"throp/internal/cache"
	"throp/internal/persona"
	"throp/internal/platform"
	"throp/internal/tools"
	"throp/pkg/logging"
)

const maxConcurrentTools = 3

// Registry maps question intents to the tools that can gather evidence for
// them.
type Registry struct {
	byIntent map[Intent][]tools.Tool
	price    tools.Tool
}

// NewRegistry wires the available tools to intents. Any tool may be nil,
// in which case the intents it serves simply gather less evidence.
func NewRegistry(web, social, profile, price tools.Tool) *Registry {
	return &Registry{
		byIntent: map[Intent][]tools.Tool{
			IntentIdentity:      compact(profile, social),
			IntentMarket:        compact(price, web),
			IntentCurrentEvents: compact(web, social),
			IntentExplainer:     compact(web),
			IntentCasual:        nil,
		},
		price: price,
	}
}

// For returns the tools for an intent/domain pair. Market-domain questions
// get the price tool even when the intent alone would not select it.
func (r *Registry) For(intent Intent, domain Domain) []tools.Tool {
	selected := r.byIntent[intent]
	if domain == DomainMarket && intent != IntentCasual && r.price != nil && !containsTool(selected, r.price) {
		selected = append(append([]tools.Tool(nil), selected...), r.price)
	}
	return selected
}

func compact(ts ...tools.Tool) []tools.Tool {
	var out []tools.Tool
	for _, t := range ts {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

func containsTool(ts []tools.Tool, t tools.Tool) bool {
	for _, have := range ts {
		if have == t {
			return true
		}
	}
	return false
}

// Generator composes the final reply from gathered evidence.
type Generator interface {
	Compose(ctx context.Context, req persona.Request) persona.Reply
	Disambiguate(candidates []tools.Candidate) string
}

// Response is a finished answer ready to post.
type Response struct {
	Text         string
	Citations    []string
	Confidence   float64
	ShouldThread bool
	ThreadParts  []string
}

// Config configures an Orchestrator. Store is optional; when present the
// orchestrator records run stats and interaction transcripts in it.
type Config struct {
	Registry  *Registry
	Generator Generator
	Store     *cache.Store
	PostLimit int
	Logger    logging.Logger
}

type Orchestrator struct {
	registry  *Registry
	generator Generator
	store     *cache.Store
	postLimit int
	logger    logging.Logger
}

func New(cfg Config) *Orchestrator {
	if cfg.PostLimit <= 0 {
		cfg.PostLimit = platform.MaxPostLength
	}
	return &Orchestrator{
		registry:  cfg.Registry,
		generator: cfg.Generator,
		store:     cfg.Store,
		postLimit: cfg.PostLimit,
		logger:    cfg.Logger,
	}
}

// GenerateResponse answers a question end to end. It does not return an
// error: tool failures shrink the evidence bundle, generation failures fall
// back to templates, and a panic anywhere in the pipeline produces a stock
// low-confidence reply.
func (o *Orchestrator) GenerateResponse(ctx context.Context, question, authorContext string, history []string) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithField("panic", r).Error("Answer pipeline panicked")
			fallbacksTotal.Inc()
			resp = Response{
				Text:       "brain lagged out for a second there, try me again",
				Confidence: 0.2,
			}
		}
	}()

	start := time.Now()
	intent, domain := Classify(question)
	questionsTotal.WithLabelValues(string(intent), string(domain)).Inc()

	bundle := NewEvidenceBundle(question, intent, domain)
	o.gather(ctx, bundle)

	// Ambiguity always wins over generation: asking the user which entity
	// they meant beats confidently answering about the wrong one.
	if bundle.NeedsDisambiguation() {
		disambiguationsTotal.Inc()
		resp = Response{
			Text:       o.generator.Disambiguate(bundle.Candidates()),
			Confidence: 0.5,
		}
		o.record(ctx, question, resp, intent, domain, start)
		return resp
	}

	confidence := bundle.Confidence()
	answerConfidence.Observe(confidence)

	reply := o.generator.Compose(ctx, persona.Request{
		Question:      question,
		AuthorContext: authorContext,
		History:       history,
		Intent:        string(intent),
		Domain:        string(domain),
		Facts:         bundle.Facts(),
		Sources:       bundle.Sources(),
		Confidence:    confidence,
	})

	resp = Response{
		Text:       reply.Text,
		Citations:  reply.Citations,
		Confidence: confidence,
	}
	if len([]rune(resp.Text)) > o.postLimit {
		resp.ShouldThread = true
		resp.ThreadParts = persona.FormatForPlatform(resp.Text, o.postLimit)
	}

	o.record(ctx, question, resp, intent, domain, start)
	return resp
}

// gather fans out to the registered tools for the bundle's intent and
// domain and merges whatever each one finds. All tools get to settle; a
// slow or broken tool cannot sink the others.
func (o *Orchestrator) gather(ctx context.Context, bundle *EvidenceBundle) {
	toolset := o.registry.For(bundle.Intent, bundle.Domain)
	if len(toolset) == 0 {
		return
	}

	results := make([]tools.Result, len(toolset))
	sem := make(chan struct{}, maxConcurrentTools)
	var wg sync.WaitGroup

	for i, tool := range toolset {
		wg.Add(1)
		go func(idx int, t tools.Tool) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.WithFields(logging.Fields{"tool": t.Name(), "panic": r}).Error("Evidence tool panicked")
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = t.Search(ctx, bundle.Query)
		}(i, tool)
	}
	wg.Wait()

	for i, res := range results {
		if res.Empty() {
			o.logger.WithField("tool", toolset[i].Name()).Debug("Tool returned no evidence")
		}
		bundle.Merge(res)
	}
}

type transcript struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Intent     string  `json:"intent"`
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
	DurationMs int64   `json:"duration_ms"`
	AnsweredAt string  `json:"answered_at"`
}

// record persists run stats and a transcript of the interaction when a
// store is configured.
func (o *Orchestrator) record(ctx context.Context, question string, resp Response, intent Intent, domain Domain, start time.Time) {
	if o.store == nil {
		return
	}
	o.store.IncrementCounter(ctx, "questions_answered")
	entry, err := json.Marshal(transcript{
		Question:   question,
		Answer:     resp.Text,
		Intent:     string(intent),
		Domain:     string(domain),
		Confidence: resp.Confidence,
		DurationMs: time.Since(start).Milliseconds(),
		AnsweredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	o.store.AppendRecent(ctx, cache.Key("state", "interactions"), string(entry))
}
