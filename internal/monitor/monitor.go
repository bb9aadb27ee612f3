// Package monitor polls the platform for new mentions and replies to them.
// It owns the safety rails around posting: per-mention dedup, author and
// keyword filters, the hourly action quota, and the rate limit cooldown.
package monitor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"throp/internal/cache"
	"throp/internal/history"
	"throp/internal/orchestrator"
	"throp/internal/platform"
	"throp/pkg/logging"
)

const (
	defaultCheckInterval = 2 * time.Minute
	defaultFetchBatch    = 25
	processedTTL         = 48 * time.Hour
	maxProcessedInMemory = 2000
)

// PlatformClient is the slice of the platform gateway the monitor uses.
type PlatformClient interface {
	FetchMentions(ctx context.Context, sinceID string, maxResults int) ([]platform.Mention, error)
	Reply(ctx context.Context, text, parentID string) (platform.PostResult, error)
	PostThread(ctx context.Context, texts []string, parentID string) ([]platform.PostResult, error)
}

// Answerer produces a reply for a mention's text.
type Answerer interface {
	GenerateResponse(ctx context.Context, question, authorContext string, history []string) orchestrator.Response
}

// Config tunes what the monitor reacts to and how often.
type Config struct {
	// CheckInterval is the polling period.
	CheckInterval time.Duration

	// FetchBatch caps mentions fetched per poll.
	FetchBatch int

	// Accounts, when non-empty, restricts replies to mentions authored by
	// these handles.
	Accounts []string

	// Keywords, when non-empty, requires at least one keyword in the
	// mention text.
	Keywords []string

	// MinEngagement skips mentions with fewer combined likes, reposts, and
	// replies.
	MinEngagement int

	// MaxActionsPerHour caps outbound replies. Zero means unlimited.
	MaxActionsPerHour int

	// MaxAge skips mentions older than this. Zero disables the check.
	MaxAge time.Duration
}

type Monitor struct {
	cfg      Config
	client   PlatformClient
	answerer Answerer
	store    *cache.Store
	history  *history.Store
	logger   logging.Logger

	mu            sync.Mutex
	processed     map[string]bool
	processedIDs  []string
	lastSeenID    string
	cooldownUntil time.Time
	hourBucket    time.Time
	hourActions   int
	started       bool

	stop chan struct{}
	done chan struct{}
}

func New(cfg Config, client PlatformClient, answerer Answerer, store *cache.Store, hist *history.Store, logger logging.Logger) *Monitor {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.FetchBatch <= 0 {
		cfg.FetchBatch = defaultFetchBatch
	}
	return &Monitor{
		cfg:       cfg,
		client:    client,
		answerer:  answerer,
		store:     store,
		history:   hist,
		logger:    logger,
		processed: make(map[string]bool),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start warms state from the store and begins polling until Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	m.warmState(ctx)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.CheckInterval)
		defer ticker.Stop()

		m.runCycle(ctx)
		for {
			select {
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runCycle(ctx)
			}
		}
	}()
}

// Stop halts polling and waits for the in-flight cycle to finish. Safe to
// call on a monitor that was never started.
func (m *Monitor) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if !started {
		return
	}
	close(m.stop)
	<-m.done
}

// warmState restores the processed set and cursor so a restart does not
// double-reply to mentions handled by a previous run.
func (m *Monitor) warmState(ctx context.Context) {
	if m.store == nil {
		return
	}
	for _, id := range m.store.RecentByScore(ctx, cache.Key("state", "processed"), 0) {
		m.processed[id] = true
		m.processedIDs = append(m.processedIDs, id)
	}
	if lastSeen, ok := m.store.Get(ctx, cache.Key("state", "last_seen_id")); ok {
		m.lastSeenID = lastSeen
	}
	// Restore the current hour's action count so a restart does not refill
	// the quota mid-hour.
	bucket := time.Now().Truncate(time.Hour)
	if v, ok := m.store.Get(ctx, cache.Key("counters", hourKey(bucket))); ok {
		if n, err := strconv.Atoi(v); err == nil {
			m.hourBucket = bucket
			m.hourActions = n
		}
	}
	m.logger.WithFields(logging.Fields{
		"processed":    len(m.processed),
		"last_seen_id": m.lastSeenID,
	}).Info("Monitor state restored")
}

func (m *Monitor) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithField("panic", r).Error("Monitor cycle panicked")
		}
	}()
	m.tick(ctx)
}

func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	cooldown := m.cooldownUntil
	sinceID := m.lastSeenID
	m.mu.Unlock()

	if until := time.Until(cooldown); until > 0 {
		m.logger.WithField("resumes_in", until.Round(time.Second).String()).Debug("In rate limit cooldown, skipping poll")
		return
	}

	mentions, err := m.client.FetchMentions(ctx, sinceID, m.cfg.FetchBatch)
	if err != nil {
		m.handleFetchError(ctx, err)
		return
	}

	// Mentions arrive newest first. Reply in arrival order so threads of
	// questions get answered in sequence.
	for i := len(mentions) - 1; i >= 0; i-- {
		mention := mentions[i]

		if m.alreadyProcessed(ctx, mention.ID) {
			m.advanceCursor(ctx, mention.ID)
			continue
		}
		if m.shouldSkip(mention) {
			m.markProcessed(ctx, mention.ID)
			m.advanceCursor(ctx, mention.ID)
			continue
		}
		if !m.underQuota() {
			// Unprocessed mentions stay unprocessed and the cursor stays
			// behind them, so the next hour's budget picks them up.
			m.logger.WithField("max_per_hour", m.cfg.MaxActionsPerHour).Info("Hourly action quota reached, deferring remaining mentions")
			return
		}

		if !m.respond(ctx, mention) {
			return
		}
		m.markProcessed(ctx, mention.ID)
		m.advanceCursor(ctx, mention.ID)
	}
}

func (m *Monitor) handleFetchError(ctx context.Context, err error) {
	if m.store != nil {
		m.store.IncrementCounter(ctx, "errors")
	}
	var rateLimited *platform.RateLimitError
	var authErr *platform.AuthError
	switch {
	case errors.As(err, &rateLimited):
		m.enterCooldown(rateLimited.ResetAt)
	case errors.As(err, &authErr):
		m.logger.WithError(err).Error("Mention fetch rejected, check credentials")
	default:
		m.logger.WithError(err).Warn("Mention fetch failed, will retry next poll")
	}
}

// respond generates and posts the reply. Returns false when the cycle
// should stop, leaving the mention unprocessed for a later attempt.
func (m *Monitor) respond(ctx context.Context, mention platform.Mention) bool {
	author := mention.AuthorHandle
	if author != "" {
		author = "@" + author
	}
	resp := m.answerer.GenerateResponse(ctx, mention.Text, author, nil)

	var err error
	var posted platform.PostResult
	if resp.ShouldThread {
		var results []platform.PostResult
		results, err = m.client.PostThread(ctx, resp.ThreadParts, mention.ID)
		if len(results) > 0 {
			posted = results[0]
		}
	} else {
		posted, err = m.client.Reply(ctx, resp.Text, mention.ID)
	}

	if err != nil {
		if m.store != nil {
			m.store.IncrementCounter(ctx, "errors")
		}
		var rateLimited *platform.RateLimitError
		var notFoundErr *platform.NotFoundError
		switch {
		case errors.As(err, &rateLimited):
			m.enterCooldown(rateLimited.ResetAt)
			return false
		case errors.As(err, &notFoundErr):
			// The mention was deleted. Nothing to reply to anymore.
			m.logger.WithField("mention_id", mention.ID).Info("Mention no longer exists, skipping")
			m.markProcessed(ctx, mention.ID)
			m.advanceCursor(ctx, mention.ID)
			return true
		default:
			m.logger.WithError(err).WithField("mention_id", mention.ID).Warn("Reply failed, will retry next poll")
			return false
		}
	}

	m.mu.Lock()
	bucket := time.Now().Truncate(time.Hour)
	if !bucket.Equal(m.hourBucket) {
		m.hourBucket = bucket
		m.hourActions = 0
	}
	m.hourActions++
	actions := m.hourActions
	m.mu.Unlock()
	if m.store != nil {
		m.store.Set(ctx, cache.Key("counters", hourKey(bucket)), strconv.Itoa(actions), 2*time.Hour)
	}

	m.logger.WithFields(logging.Fields{
		"mention_id": mention.ID,
		"post_id":    posted.ID,
		"threaded":   resp.ShouldThread,
		"confidence": resp.Confidence,
	}).Info("Replied to mention")

	if m.store != nil {
		m.store.IncrementCounter(ctx, "replies_sent")
	}
	kind := "reply"
	if resp.ShouldThread {
		kind = "thread"
	}
	m.history.RecordPost(ctx, history.Post{
		ID:         posted.ID,
		Kind:       kind,
		Text:       resp.Text,
		ParentID:   mention.ID,
		Confidence: resp.Confidence,
		PostedAt:   time.Now().UTC(),
	})
	return true
}

func (m *Monitor) shouldSkip(mention platform.Mention) bool {
	if m.cfg.MaxAge > 0 && !mention.CreatedAt.IsZero() && time.Since(mention.CreatedAt) > m.cfg.MaxAge {
		return true
	}
	if len(m.cfg.Accounts) > 0 && !containsFold(m.cfg.Accounts, mention.AuthorHandle) {
		return true
	}
	if len(m.cfg.Keywords) > 0 && !containsAnyKeyword(mention.Text, m.cfg.Keywords) {
		return true
	}
	if m.cfg.MinEngagement > 0 && mention.Metrics.Engagement() < m.cfg.MinEngagement {
		return true
	}
	return false
}

// underQuota checks the hourly action budget, rolling the bucket over on
// the hour boundary.
func (m *Monitor) underQuota() bool {
	if m.cfg.MaxActionsPerHour <= 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := time.Now().Truncate(time.Hour)
	if !bucket.Equal(m.hourBucket) {
		m.hourBucket = bucket
		m.hourActions = 0
	}
	return m.hourActions < m.cfg.MaxActionsPerHour
}

func hourKey(bucket time.Time) string {
	return "actions_" + bucket.UTC().Format("2006010215")
}

func (m *Monitor) enterCooldown(resetAt time.Time) {
	m.mu.Lock()
	m.cooldownUntil = resetAt
	m.mu.Unlock()
	m.logger.WithField("reset_at", resetAt.Format(time.RFC3339)).Warn("Rate limited, pausing mention polling")
}

func (m *Monitor) alreadyProcessed(ctx context.Context, id string) bool {
	m.mu.Lock()
	seen := m.processed[id]
	m.mu.Unlock()
	if seen {
		return true
	}
	if m.store != nil {
		if _, ok := m.store.Get(ctx, cache.Key("mentions", id)); ok {
			return true
		}
	}
	return false
}

func (m *Monitor) markProcessed(ctx context.Context, id string) {
	m.mu.Lock()
	if !m.processed[id] {
		m.processed[id] = true
		m.processedIDs = append(m.processedIDs, id)
		if len(m.processedIDs) > maxProcessedInMemory {
			evicted := m.processedIDs[0]
			m.processedIDs = m.processedIDs[1:]
			delete(m.processed, evicted)
		}
	}
	m.mu.Unlock()

	if m.store != nil {
		m.store.Set(ctx, cache.Key("mentions", id), "1", processedTTL)
		m.store.AppendRecent(ctx, cache.Key("state", "processed"), id)
	}
}

func (m *Monitor) advanceCursor(ctx context.Context, id string) {
	m.mu.Lock()
	m.lastSeenID = id
	m.mu.Unlock()
	if m.store != nil {
		m.store.Set(ctx, cache.Key("state", "last_seen_id"), id, 0)
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(strings.TrimPrefix(h, "@"), needle) {
			return true
		}
	}
	return false
}

func containsAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
