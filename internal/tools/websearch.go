package tools

import (
	"context"
	"strings"
	"time"

	"throp/pkg/cache"
	"throp/pkg/logging"
	"throp/pkg/search"
)

const webSearchLimit = 5

// WebSearch fetches evidence from a generic web search provider.
type WebSearch struct {
	provider search.Provider
	cache    *cache.Cache
	timeout  time.Duration
	logger   logging.Logger
}

func NewWebSearch(provider search.Provider, logger logging.Logger) *WebSearch {
	return &WebSearch{
		provider: provider,
		cache:    cache.New(cache.Options{TTL: toolCacheTTL, MaxEntries: 512}),
		timeout:  defaultToolTimeout,
		logger:   logger,
	}
}

func (t *WebSearch) Name() string { return "web_search" }

func (t *WebSearch) Search(ctx context.Context, query string) Result {
	if t.provider == nil {
		return Result{}
	}
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return Result{}
	}

	if cached, ok := t.cache.Peek(key); ok {
		toolCacheHits.WithLabelValues(t.Name()).Inc()
		return cached.(Result)
	}

	val, ok, _ := t.cache.Get(ctx, key, func(ctx context.Context, _ string) (interface{}, bool, error) {
		searchCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		results, err := t.provider.Search(searchCtx, query, search.Options{Limit: webSearchLimit})
		if err != nil {
			t.logger.WithError(err).WithField("query", query).Warn("Web search failed")
			toolCallsTotal.WithLabelValues(t.Name(), "failure").Inc()
			return nil, false, nil
		}
		toolCallsTotal.WithLabelValues(t.Name(), "success").Inc()
		return mapWebResults(results), true, nil
	})
	if !ok {
		return Result{}
	}
	return val.(Result)
}

func mapWebResults(results []search.Result) Result {
	var out Result
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		snippet := collapseWhitespace(r.Snippet)
		if title == "" && snippet == "" {
			continue
		}
		fact := title
		if snippet != "" {
			if fact != "" {
				fact += ": "
			}
			fact += truncateRunes(snippet, 240)
		}
		out.Facts = append(out.Facts, fact)
		if r.URL != "" {
			out.Sources = append(out.Sources, r.URL)
		}
	}
	return out
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(input string, limit int) string {
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit-1]) + "…"
}
