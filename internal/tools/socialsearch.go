package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"throp/internal/platform"
	"throp/pkg/cache"
	"throp/pkg/logging"
)

const socialSearchLimit = 10

// RecentSearcher is the slice of the platform client the social search tool
// needs.
type RecentSearcher interface {
	SearchRecent(ctx context.Context, query string, maxResults int) ([]platform.Mention, error)
}

// SocialSearch fetches evidence from recent public posts on the platform.
type SocialSearch struct {
	client  RecentSearcher
	cache   *cache.Cache
	timeout time.Duration
	logger  logging.Logger
}

func NewSocialSearch(client RecentSearcher, logger logging.Logger) *SocialSearch {
	return &SocialSearch{
		client:  client,
		cache:   cache.New(cache.Options{TTL: toolCacheTTL, MaxEntries: 512}),
		timeout: defaultToolTimeout,
		logger:  logger,
	}
}

func (t *SocialSearch) Name() string { return "social_search" }

func (t *SocialSearch) Search(ctx context.Context, query string) Result {
	if t.client == nil {
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

		posts, err := t.client.SearchRecent(searchCtx, query, socialSearchLimit)
		if err != nil {
			t.logger.WithError(err).WithField("query", query).Warn("Social search failed")
			toolCallsTotal.WithLabelValues(t.Name(), "failure").Inc()
			return nil, false, nil
		}
		toolCallsTotal.WithLabelValues(t.Name(), "success").Inc()
		return mapSocialResults(posts), true, nil
	})
	if !ok {
		return Result{}
	}
	return val.(Result)
}

func mapSocialResults(posts []platform.Mention) Result {
	var out Result
	for _, post := range posts {
		text := collapseWhitespace(post.Text)
		if text == "" {
			continue
		}
		handle := post.AuthorHandle
		if handle == "" {
			handle = post.AuthorID
		}
		out.Facts = append(out.Facts, fmt.Sprintf("@%s: %s", handle, truncateRunes(text, 200)))
		if post.AuthorHandle != "" {
			out.Sources = append(out.Sources, fmt.Sprintf("https://x.com/%s/status/%s", post.AuthorHandle, post.ID))
		}
	}
	return out
}
