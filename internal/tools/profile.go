package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"throp/internal/platform"
	"throp/pkg/cache"
	"throp/pkg/logging"
)

const profileSearchLimit = 5

// UserSearcher is the slice of the platform client the profile tool needs.
type UserSearcher interface {
	SearchUsers(ctx context.Context, query string, maxResults int) ([]platform.User, error)
}

// ProfileLookup resolves a person or account mentioned in a question. When
// several profiles share the same display name it reports them all as
// candidates instead of guessing.
type ProfileLookup struct {
	client  UserSearcher
	cache   *cache.Cache
	timeout time.Duration
	logger  logging.Logger
}

func NewProfileLookup(client UserSearcher, logger logging.Logger) *ProfileLookup {
	return &ProfileLookup{
		client:  client,
		cache:   cache.New(cache.Options{TTL: toolCacheTTL, MaxEntries: 256}),
		timeout: defaultToolTimeout,
		logger:  logger,
	}
}

func (t *ProfileLookup) Name() string { return "profile_lookup" }

func (t *ProfileLookup) Search(ctx context.Context, query string) Result {
	if t.client == nil {
		return Result{}
	}
	subject := extractSubject(query)
	if subject == "" {
		return Result{}
	}

	if cached, ok := t.cache.Peek(subject); ok {
		toolCacheHits.WithLabelValues(t.Name()).Inc()
		return cached.(Result)
	}

	val, ok, _ := t.cache.Get(ctx, subject, func(ctx context.Context, _ string) (interface{}, bool, error) {
		searchCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		users, err := t.client.SearchUsers(searchCtx, subject, profileSearchLimit)
		if err != nil {
			t.logger.WithError(err).WithField("subject", subject).Warn("Profile lookup failed")
			toolCallsTotal.WithLabelValues(t.Name(), "failure").Inc()
			return nil, false, nil
		}
		toolCallsTotal.WithLabelValues(t.Name(), "success").Inc()
		return mapProfileResults(subject, users), true, nil
	})
	if !ok {
		return Result{}
	}
	return val.(Result)
}

// extractSubject strips question boilerplate down to the name being asked
// about. "@handle" wins over anything else in the text.
func extractSubject(query string) string {
	for _, word := range strings.Fields(query) {
		if strings.HasPrefix(word, "@") && len(word) > 1 {
			return strings.TrimRight(strings.TrimPrefix(word, "@"), "?.,!")
		}
	}
	subject := strings.ToLower(strings.TrimSpace(query))
	for _, prefix := range []string{"who is ", "who's ", "whos ", "who are ", "tell me about ", "what do you know about "} {
		if strings.HasPrefix(subject, prefix) {
			subject = strings.TrimPrefix(subject, prefix)
			break
		}
	}
	return strings.TrimRight(strings.TrimSpace(subject), "?.,!")
}

func mapProfileResults(subject string, users []platform.User) Result {
	if len(users) == 0 {
		return Result{}
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Followers > users[j].Followers })

	// Several profiles under the same display name means the question is
	// genuinely ambiguous. Surface the candidates and let the caller ask.
	matches := sameNameMatches(subject, users)
	if len(matches) > 1 {
		out := Result{}
		for _, u := range matches {
			out.Candidates = append(out.Candidates, Candidate{
				Name:        "@" + u.Handle,
				Description: describeUser(u),
			})
		}
		return out
	}

	top := users[0]
	out := Result{
		Facts:   []string{fmt.Sprintf("@%s (%s): %s", top.Handle, top.Name, describeUser(top))},
		Sources: []string{"https://x.com/" + top.Handle},
	}
	if top.Bio != "" {
		out.Facts = append(out.Facts, fmt.Sprintf("@%s bio: %s", top.Handle, collapseWhitespace(top.Bio)))
	}
	return out
}

func sameNameMatches(subject string, users []platform.User) []platform.User {
	var matches []platform.User
	want := strings.ToLower(strings.TrimSpace(subject))
	for _, u := range users {
		if strings.ToLower(strings.TrimSpace(u.Name)) == want || strings.EqualFold(u.Handle, want) {
			matches = append(matches, u)
		}
	}
	return matches
}

func describeUser(u platform.User) string {
	parts := []string{fmt.Sprintf("%d followers", u.Followers)}
	if u.Verified {
		parts = append(parts, "verified")
	}
	if u.Bio != "" {
		parts = append(parts, truncateRunes(collapseWhitespace(u.Bio), 120))
	}
	return strings.Join(parts, ", ")
}
