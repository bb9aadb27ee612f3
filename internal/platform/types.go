package platform

import "time"

// Mention is one inbound item from the platform timeline.
type Mention struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorHandle   string
	ConversationID string
	CreatedAt      time.Time
	Metrics        EngagementMetrics
}

type EngagementMetrics struct {
	Likes   int
	Reposts int
	Replies int
}

// Engagement is the combined score used by the monitor's threshold filter.
func (m EngagementMetrics) Engagement() int {
	return m.Likes + m.Reposts + m.Replies
}

type Tweet struct {
	ID             string
	Text           string
	AuthorID       string
	ConversationID string
	CreatedAt      time.Time
}

type User struct {
	ID        string
	Handle    string
	Name      string
	Bio       string
	Followers int
	Verified  bool
}

type Trend struct {
	Name   string `json:"name"`
	Volume int    `json:"volume"`
}

// PostResult is the outcome of one successful (or dry-run) write.
type PostResult struct {
	ID     string
	Text   string
	DryRun bool
}
