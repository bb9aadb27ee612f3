package search

import "context"

// Provider is a pluggable web search backend. Results feed the web evidence
// tool, which quotes the snippet and cites the URL.
type Provider interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// Options bounds a single query.
type Options struct {
	// Limit caps the number of results. Zero lets the provider choose.
	Limit int
}

// Result is one search hit, trimmed to what the bot actually uses.
type Result struct {
	Title   string
	URL     string
	Snippet string
}
