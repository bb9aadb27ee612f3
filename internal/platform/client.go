// Package platform is the single gateway for every read and write against the
// social platform API. Throttling, retry, and rate limit tracking are applied
// here so no caller can bypass them.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/google/uuid"

	"throp/pkg/clients"
	"throp/pkg/logging"
)

const (
	defaultAPIURL         = "https://api.twitter.com"
	defaultInterPostDelay = 2 * time.Second
	defaultResetFallback  = 15 * time.Minute
)

// MaxPostLength is the platform's single-post character limit.
const MaxPostLength = 280

// Endpoint keys for the rate limit ledger.
const (
	endpointMentions   = "mentions"
	endpointTweet      = "tweet_lookup"
	endpointUser       = "user_lookup"
	endpointUserSearch = "user_search"
	endpointSearch     = "search"
	endpointPost       = "post"
	endpointTrends     = "trends"
)

// Config configures the platform client.
type Config struct {
	APIURL      string
	BearerToken string

	// BotUserID is the bot's own account id. Required for mention fetching
	// and for excluding the bot's own posts.
	BotUserID string

	// Tier selects the throttle interval (free, basic, pro, enterprise).
	Tier string

	// MinCallInterval overrides the tier-derived throttle when > 0.
	MinCallInterval time.Duration

	// InterPostDelay spaces the sequential posts of a thread.
	InterPostDelay time.Duration

	// DryRun makes every write log the intended action and return a
	// synthetic record without touching the network.
	DryRun bool

	HTTPClient *http.Client
	Logger     logging.Logger
}

type Client struct {
	apiURL      string
	bearerToken string
	botUserID   string
	dryRun      bool

	interPostDelay time.Duration

	http     *http.Client
	executor failsafe.Executor[*http.Response]
	throttle *Throttle
	ledger   *Ledger
	logger   logging.Logger
}

func NewClient(cfg Config) *Client {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	interval := cfg.MinCallInterval
	if interval <= 0 {
		interval = IntervalForTier(cfg.Tier)
	}
	interPost := cfg.InterPostDelay
	if interPost <= 0 {
		interPost = defaultInterPostDelay
	}
	return &Client{
		apiURL:         apiURL,
		bearerToken:    cfg.BearerToken,
		botUserID:      cfg.BotUserID,
		dryRun:         cfg.DryRun,
		interPostDelay: interPost,
		http:           httpClient,
		executor:       clients.NewHTTPExecutor(clients.DefaultHTTPExecutorConfig()),
		throttle:       NewThrottle(interval),
		ledger:         NewLedger(),
		logger:         cfg.Logger,
	}
}

// Ledger exposes the rate limit ledger for read-only inspection.
func (c *Client) Ledger() *Ledger {
	return c.ledger
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("platform returned status %d: %s", e.code, e.body)
}

// do runs one API call through the ledger check, the throttle, and the retry
// executor, and updates the ledger from response headers.
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body any) ([]byte, error) {
	if resetAt, blocked := c.ledger.Blocked(endpoint); blocked {
		rateLimitShortCircuits.Inc()
		return nil, &RateLimitError{Endpoint: endpoint, ResetAt: resetAt}
	}

	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", endpoint, err)
		}
	}

	fullURL := c.apiURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	resp, err := clients.ExecuteHTTP(ctx, c.executor, func() (*http.Response, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if clients.DefaultShouldRetry(resp, err) {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		return resp, err
	})
	if err != nil {
		apiCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, &TransientError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.ledger.UpdateFromHeaders(endpoint, resp.Header)

	respBody, readErr := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if readErr != nil {
			apiCallsTotal.WithLabelValues(endpoint, "error").Inc()
			return nil, &TransientError{Endpoint: endpoint, Err: readErr}
		}
		apiCallsTotal.WithLabelValues(endpoint, "success").Inc()
		return respBody, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		apiCallsTotal.WithLabelValues(endpoint, "auth_error").Inc()
		return nil, &AuthError{Reason: fmt.Sprintf("status %d on %s", resp.StatusCode, endpoint)}
	case resp.StatusCode == http.StatusTooManyRequests:
		resetAt := time.Now().Add(defaultResetFallback)
		if epoch, parseErr := strconv.ParseInt(resp.Header.Get(headerReset), 10, 64); parseErr == nil {
			resetAt = time.Unix(epoch, 0)
		}
		c.ledger.Exhaust(endpoint, resetAt)
		apiCallsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, &RateLimitError{Endpoint: endpoint, ResetAt: resetAt}
	case resp.StatusCode == http.StatusNotFound:
		apiCallsTotal.WithLabelValues(endpoint, "not_found").Inc()
		return nil, &NotFoundError{Resource: endpoint}
	default:
		apiCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, &TransientError{Endpoint: endpoint, Err: &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(respBody))}}
	}
}

// notFound names the missing resource on a 404 surfaced by do.
func notFound(err error, resource, id string) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return err
}

type tweetPayload struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	AuthorID       string `json:"author_id"`
	ConversationID string `json:"conversation_id"`
	CreatedAt      string `json:"created_at"`
	PublicMetrics  struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
}

type userPayload struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Verified      bool   `json:"verified"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
	} `json:"public_metrics"`
}

func (p tweetPayload) toMention(handles map[string]string) Mention {
	createdAt, _ := time.Parse(time.RFC3339, p.CreatedAt)
	return Mention{
		ID:             p.ID,
		Text:           p.Text,
		AuthorID:       p.AuthorID,
		AuthorHandle:   handles[p.AuthorID],
		ConversationID: p.ConversationID,
		CreatedAt:      createdAt,
		Metrics: EngagementMetrics{
			Likes:   p.PublicMetrics.LikeCount,
			Reposts: p.PublicMetrics.RetweetCount,
			Replies: p.PublicMetrics.ReplyCount,
		},
	}
}

type timelineResponse struct {
	Data     []tweetPayload `json:"data"`
	Includes struct {
		Users []userPayload `json:"users"`
	} `json:"includes"`
}

// FetchMentions returns mentions newer than sinceID, newest first, excluding
// items authored by the bot's own account. The bot account id is a hard
// precondition: without it the bot would reply to itself.
func (c *Client) FetchMentions(ctx context.Context, sinceID string, maxResults int) ([]Mention, error) {
	if c.botUserID == "" {
		return nil, &AuthError{Reason: "bot user id is not configured"}
	}
	if maxResults <= 0 {
		maxResults = 25
	}
	if maxResults > 100 {
		maxResults = 100
	}

	query := url.Values{}
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("tweet.fields", "author_id,conversation_id,created_at,public_metrics")
	query.Set("expansions", "author_id")
	if sinceID != "" {
		query.Set("since_id", sinceID)
	}

	body, err := c.do(ctx, endpointMentions, http.MethodGet, "/2/users/"+c.botUserID+"/mentions", query, nil)
	if err != nil {
		return nil, err
	}

	var decoded timelineResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode mentions: %w", err)
	}

	handles := make(map[string]string, len(decoded.Includes.Users))
	for _, u := range decoded.Includes.Users {
		handles[u.ID] = u.Username
	}

	mentions := make([]Mention, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		if item.AuthorID == c.botUserID {
			continue
		}
		mentions = append(mentions, item.toMention(handles))
	}
	return mentions, nil
}

// GetTweet looks up a single tweet by id.
func (c *Client) GetTweet(ctx context.Context, id string) (Tweet, error) {
	query := url.Values{}
	query.Set("tweet.fields", "author_id,conversation_id,created_at")

	body, err := c.do(ctx, endpointTweet, http.MethodGet, "/2/tweets/"+id, query, nil)
	if err != nil {
		return Tweet{}, notFound(err, "tweet", id)
	}

	var decoded struct {
		Data tweetPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Tweet{}, fmt.Errorf("decode tweet: %w", err)
	}
	if decoded.Data.ID == "" {
		return Tweet{}, &NotFoundError{Resource: "tweet", ID: id}
	}
	createdAt, _ := time.Parse(time.RFC3339, decoded.Data.CreatedAt)
	return Tweet{
		ID:             decoded.Data.ID,
		Text:           decoded.Data.Text,
		AuthorID:       decoded.Data.AuthorID,
		ConversationID: decoded.Data.ConversationID,
		CreatedAt:      createdAt,
	}, nil
}

// GetUser looks up a single user by id.
func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	query := url.Values{}
	query.Set("user.fields", "description,public_metrics,verified")

	body, err := c.do(ctx, endpointUser, http.MethodGet, "/2/users/"+id, query, nil)
	if err != nil {
		return User{}, notFound(err, "user", id)
	}

	var decoded struct {
		Data userPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}
	if decoded.Data.ID == "" {
		return User{}, &NotFoundError{Resource: "user", ID: id}
	}
	return mapUser(decoded.Data), nil
}

// SearchUsers finds accounts matching a name or handle fragment. Used by the
// profile evidence tool, which reports multiple close matches as
// disambiguation candidates.
func (c *Client) SearchUsers(ctx context.Context, q string, maxResults int) ([]User, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	query := url.Values{}
	query.Set("query", q)
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("user.fields", "description,public_metrics,verified")

	body, err := c.do(ctx, endpointUserSearch, http.MethodGet, "/2/users/search", query, nil)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Data []userPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode user search: %w", err)
	}
	users := make([]User, 0, len(decoded.Data))
	for _, u := range decoded.Data {
		users = append(users, mapUser(u))
	}
	return users, nil
}

func mapUser(p userPayload) User {
	return User{
		ID:        p.ID,
		Handle:    p.Username,
		Name:      p.Name,
		Bio:       p.Description,
		Followers: p.PublicMetrics.FollowersCount,
		Verified:  p.Verified,
	}
}

// SearchRecent searches recent public posts. Used by the social-search
// evidence tool.
func (c *Client) SearchRecent(ctx context.Context, q string, maxResults int) ([]Mention, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	if maxResults > 100 {
		maxResults = 100
	}
	query := url.Values{}
	query.Set("query", q)
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("tweet.fields", "author_id,conversation_id,created_at,public_metrics")
	query.Set("expansions", "author_id")

	body, err := c.do(ctx, endpointSearch, http.MethodGet, "/2/tweets/search/recent", query, nil)
	if err != nil {
		return nil, err
	}

	var decoded timelineResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	handles := make(map[string]string, len(decoded.Includes.Users))
	for _, u := range decoded.Includes.Users {
		handles[u.ID] = u.Username
	}
	results := make([]Mention, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		results = append(results, item.toMention(handles))
	}
	return results, nil
}

type postRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

func (c *Client) createPost(ctx context.Context, text, parentID, kind string) (PostResult, error) {
	if c.dryRun {
		result := PostResult{ID: "dryrun-" + uuid.NewString(), Text: text, DryRun: true}
		c.logger.WithFields(logging.Fields{
			"kind":      kind,
			"parent_id": parentID,
			"text":      text,
		}).Info("Dry run: skipping platform write")
		postsTotal.WithLabelValues(kind + "_dryrun").Inc()
		return result, nil
	}

	reqBody := postRequest{Text: text}
	if parentID != "" {
		reqBody.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: parentID}
	}

	body, err := c.do(ctx, endpointPost, http.MethodPost, "/2/tweets", nil, reqBody)
	if err != nil {
		return PostResult{}, notFound(err, "tweet", parentID)
	}

	var decoded struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return PostResult{}, fmt.Errorf("decode post response: %w", err)
	}
	postsTotal.WithLabelValues(kind).Inc()
	return PostResult{ID: decoded.Data.ID, Text: decoded.Data.Text}, nil
}

// Post publishes a standalone post.
func (c *Client) Post(ctx context.Context, text string) (PostResult, error) {
	return c.createPost(ctx, text, "", "post")
}

// Reply publishes a reply to parentID.
func (c *Client) Reply(ctx context.Context, text, parentID string) (PostResult, error) {
	return c.createPost(ctx, text, parentID, "reply")
}

// PostThread posts texts sequentially, chaining each new id as the parent of
// the next, with a fixed delay between posts to avoid spam heuristics. If a
// middle post fails the thread aborts and the already-posted results are
// returned alongside the error; posted items stay posted.
func (c *Client) PostThread(ctx context.Context, texts []string, parentID string) ([]PostResult, error) {
	if len(texts) == 0 {
		return []PostResult{}, nil
	}

	posted := make([]PostResult, 0, len(texts))
	parent := parentID
	for i, text := range texts {
		if i > 0 && !c.dryRun {
			timer := time.NewTimer(c.interPostDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return posted, ctx.Err()
			case <-timer.C:
			}
		}
		result, err := c.createPost(ctx, text, parent, "thread")
		if err != nil {
			return posted, fmt.Errorf("thread aborted at part %d/%d: %w", i+1, len(texts), err)
		}
		posted = append(posted, result)
		parent = result.ID
	}
	return posted, nil
}

// GetTrendingTopics returns trending topics for a region. Best effort: trends
// are a non-critical enhancement, so failures yield an empty list.
func (c *Client) GetTrendingTopics(ctx context.Context, region string) []Trend {
	if region == "" {
		region = "1" // worldwide
	}
	body, err := c.do(ctx, endpointTrends, http.MethodGet, "/2/trends/by/woeid/"+region, nil, nil)
	if err != nil {
		c.logger.WithError(err).Debug("Trend lookup failed")
		return []Trend{}
	}

	var decoded struct {
		Data []struct {
			TrendName  string `json:"trend_name"`
			TweetCount int    `json:"tweet_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.logger.WithError(err).Debug("Trend decode failed")
		return []Trend{}
	}
	trends := make([]Trend, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		trends = append(trends, Trend{Name: item.TrendName, Volume: item.TweetCount})
	}
	return trends
}
