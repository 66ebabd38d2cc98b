package ledger

import "time"

// #region status
// Status is the last known outcome of an interaction with a profile.
type Status string

const (
	StatusVisited   Status = "visited"
	StatusConnected Status = "connected"
	StatusFollowed  Status = "followed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusWithdrawn Status = "withdrawn"
)

// #endregion status

// #region interaction
// Interaction is one row of the interactions table, keyed by profile URL.
type Interaction struct {
	ProfileURL string    `json:"profile_url"`
	Name       string    `json:"name"`
	Headline   string    `json:"headline"`
	Source     string    `json:"source"` // "group", "search", "feed"
	Status     Status    `json:"status"`
	SessionID  string    `json:"session_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// #endregion interaction

// #region analytics
// Analytics is one creator-dashboard reading plus the session's engagement counts.
type Analytics struct {
	RecordedAt        time.Time `json:"recorded_at"`
	ProfileViews      int       `json:"profile_views"`
	PostImpressions   int       `json:"post_impressions"`
	SearchAppearances int       `json:"search_appearances"`
	Followers         int       `json:"followers"`
	FeedComments      int       `json:"feed_comments"`
	GroupComments     int       `json:"group_comments"`
	FeedLikes         int       `json:"feed_likes"`
	GroupLikes        int       `json:"group_likes"`
}

// #endregion analytics
