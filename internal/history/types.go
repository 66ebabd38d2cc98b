package history

import (
	"math"
	"time"
)

// DateLayout is the on-disk date format.
const DateLayout = "2006-01-02"

// #region columns
const (
	ColDate              = "date"
	ColTotalScore        = "total_score"
	ColScoreDelta        = "score_delta"
	ColRelationshipDelta = "relationship_delta"
)

// Component names.
const (
	Brand         = "brand"
	People        = "people"
	Insights      = "insights"
	Relationships = "relationships"
)

// Components lists the fixed component set in column order.
var Components = []string{Brand, People, Insights, Relationships}

// Rank names.
const (
	IndustryRank = "industry_rank"
	NetworkRank  = "network_rank"
)

// Ranks lists the known rank columns in column order.
var Ranks = []string{IndustryRank, NetworkRank}

// Counter names written by a session.
const (
	ConnectionLimit    = "connection_limit"
	FollowLimit        = "follow_limit"
	ProfilesToScan     = "profiles_to_scan"
	FeedPostsLimit     = "feed_posts_limit"
	GroupLikeProb      = "group_like_prob"
	GroupCommentProb   = "group_comment_prob"
	FeedLikeProb       = "feed_like_prob"
	FeedCommentProb    = "feed_comment_prob"
	SpeedFactor        = "speed_factor"
	WithdrawnCount     = "withdrawn_count"
	TotalRelationships = "total_relationships"
	TotalFollowers     = "total_followers"
	ConnectionsSent    = "connections_sent"
	FollowsDone        = "follows_done"
	ProfilesVisited    = "profiles_visited"
	FeedPostsProcessed = "feed_posts_processed"
	LikesGiven         = "likes_given"
	CommentsPosted     = "comments_posted"
)

// Counters lists the known counter columns in column order. Columns found in a
// file but not listed here are kept as counters and written after these.
var Counters = []string{
	ConnectionLimit, FollowLimit, ProfilesToScan, FeedPostsLimit,
	GroupLikeProb, GroupCommentProb, FeedLikeProb, FeedCommentProb,
	SpeedFactor, WithdrawnCount, TotalRelationships, TotalFollowers,
	ConnectionsSent, FollowsDone, ProfilesVisited, FeedPostsProcessed,
	LikesGiven, CommentsPosted,
}

// legacyColumns maps lower-cased column names of older history files whose
// meaning matches a current column under another name.
var legacyColumns = map[string]string{
	"total_ssi":                ColTotalScore,
	"ssi_increase":             ColScoreDelta,
	"total_connections":        TotalRelationships,
	"new_connections_accepted": ColRelationshipDelta,
}

// #endregion columns

// #region snapshot
// DailySnapshot is one day's record. Absent values are missing map keys.
type DailySnapshot struct {
	Date              time.Time
	TotalScore        float64
	Components        map[string]float64
	Ranks             map[string]int
	Counters          map[string]float64
	ScoreDelta        float64
	RelationshipDelta int
}

// Counter returns an integer counter and whether it was present.
func (s DailySnapshot) Counter(name string) (int, bool) {
	v, ok := s.Counters[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Round(v)), true
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// #endregion snapshot

// #region series
// Series is a date-ascending sequence of snapshots with one entry per date.
type Series []DailySnapshot

// DaysActive returns the number of distinct dates.
func (s Series) DaysActive() int { return len(s) }

// LatestTotalScore returns the last snapshot's score, or 0 when empty or not finite.
func (s Series) LatestTotalScore() float64 {
	if len(s) == 0 {
		return 0
	}
	v := s[len(s)-1].TotalScore
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Latest returns the last snapshot.
func (s Series) Latest() (DailySnapshot, bool) {
	if len(s) == 0 {
		return DailySnapshot{}, false
	}
	return s[len(s)-1], true
}

// MostRecentBefore returns the latest snapshot strictly before date.
func (s Series) MostRecentBefore(date time.Time) (DailySnapshot, bool) {
	day := Day(date)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Date.Before(day) {
			return s[i], true
		}
	}
	return DailySnapshot{}, false
}

// Upsert returns a new series with snap replacing any entry of the same date.
func (s Series) Upsert(snap DailySnapshot) Series {
	snap.Date = Day(snap.Date)
	out := make(Series, 0, len(s)+1)
	inserted := false
	for _, cur := range s {
		if cur.Date.Equal(snap.Date) {
			continue
		}
		if !inserted && cur.Date.After(snap.Date) {
			out = append(out, snap)
			inserted = true
		}
		out = append(out, cur)
	}
	if !inserted {
		out = append(out, snap)
	}
	return out
}

// Since returns the snapshots dated on or after from.
func (s Series) Since(from time.Time) Series {
	day := Day(from)
	for i, snap := range s {
		if !snap.Date.Before(day) {
			return s[i:]
		}
	}
	return nil
}

// #endregion series
