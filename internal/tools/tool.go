// Package tools holds the evidence fetchers the orchestrator fans out to.
// Every tool is stateless, side-effect-free, enforces its own timeout, and
// never lets a failure escape its boundary: a broken tool returns an empty
// result so the pipeline proceeds with partial evidence.
package tools

import (
	"context"
	"time"
)

// Candidate is one possible match when a lookup is ambiguous.
type Candidate struct {
	Name        string
	Description string
}

// Result is a tool's contribution to an evidence bundle.
type Result struct {
	Facts      []string
	Sources    []string
	Candidates []Candidate
}

// Empty reports whether the tool produced nothing usable.
func (r Result) Empty() bool {
	return len(r.Facts) == 0 && len(r.Candidates) == 0
}

// Tool is an evidence fetcher. Search never returns an error: failures
// degrade to an empty Result.
type Tool interface {
	Name() string
	Search(ctx context.Context, query string) Result
}

const (
	defaultToolTimeout = 20 * time.Second
	toolCacheTTL       = time.Hour
)
