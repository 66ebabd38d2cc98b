package snapshot

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/rs/zerolog/log"
)

// #region counters
// Counters are the session values persisted with a snapshot.
type Counters struct {
	Limits             map[regulation.Quota]int
	Probabilities      map[regulation.Action]float64
	SpeedFactor        float64
	WithdrawnCount     int
	TotalRelationships int
	TotalFollowers     int

	ConnectionsSent    int
	FollowsDone        int
	ProfilesVisited    int
	FeedPostsProcessed int
	LikesGiven         int
	CommentsPosted     int
}

var limitColumns = map[regulation.Quota]string{
	regulation.QuotaConnection:   history.ConnectionLimit,
	regulation.QuotaFollow:       history.FollowLimit,
	regulation.QuotaProfilesScan: history.ProfilesToScan,
	regulation.QuotaFeedPosts:    history.FeedPostsLimit,
}

var probabilityColumns = map[regulation.Action]string{
	regulation.ActionFeedLike:     history.FeedLikeProb,
	regulation.ActionFeedComment:  history.FeedCommentProb,
	regulation.ActionGroupLike:    history.GroupLikeProb,
	regulation.ActionGroupComment: history.GroupCommentProb,
}

// Map flattens the counters into history columns.
func (c Counters) Map() map[string]float64 {
	m := map[string]float64{
		history.SpeedFactor:        c.SpeedFactor,
		history.WithdrawnCount:     float64(c.WithdrawnCount),
		history.TotalRelationships: float64(c.TotalRelationships),
		history.TotalFollowers:     float64(c.TotalFollowers),
		history.ConnectionsSent:    float64(c.ConnectionsSent),
		history.FollowsDone:        float64(c.FollowsDone),
		history.ProfilesVisited:    float64(c.ProfilesVisited),
		history.FeedPostsProcessed: float64(c.FeedPostsProcessed),
		history.LikesGiven:         float64(c.LikesGiven),
		history.CommentsPosted:     float64(c.CommentsPosted),
	}
	for q, v := range c.Limits {
		if col, ok := limitColumns[q]; ok {
			m[col] = float64(v)
		}
	}
	for a, v := range c.Probabilities {
		if col, ok := probabilityColumns[a]; ok {
			m[col] = v
		}
	}
	return m
}

// #endregion counters

// #region build
// Build assembles today's snapshot. It is pure: prior is the most recent
// snapshot strictly before today, or nil.
func Build(today time.Time, r Reading, c Counters, prior *history.DailySnapshot) history.DailySnapshot {
	snap := history.DailySnapshot{
		Date:       history.Day(today),
		TotalScore: r.TotalScore,
		Components: maps.Clone(r.Components),
		Ranks:      maps.Clone(r.Ranks),
		Counters:   c.Map(),
	}
	if snap.Components == nil {
		snap.Components = map[string]float64{}
	}
	if snap.Ranks == nil {
		snap.Ranks = map[string]int{}
	}
	if prior == nil {
		return snap
	}

	if prior.TotalScore > 0 {
		snap.ScoreDelta = r.TotalScore - prior.TotalScore
	}
	if before, ok := prior.Counter(history.TotalRelationships); ok && before > 0 && c.TotalRelationships > 0 {
		snap.RelationshipDelta = max(0, c.TotalRelationships-before)
	}
	return snap
}

// #endregion build

// #region recorder
// HistoryStore is the slice of history.Store the recorder needs.
type HistoryStore interface {
	MostRecentBefore(date time.Time) (history.DailySnapshot, bool)
	Upsert(snap history.DailySnapshot) error
}

// Mirror receives a copy of every recorded snapshot.
type Mirror interface {
	MirrorSnapshot(ctx context.Context, snap history.DailySnapshot) error
}

// Recorder turns an end-of-session reading into a persisted snapshot.
type Recorder struct {
	store  HistoryStore
	mirror Mirror
}

// NewRecorder returns a recorder. mirror may be nil.
func NewRecorder(store HistoryStore, mirror Mirror) *Recorder {
	return &Recorder{store: store, mirror: mirror}
}

// Record parses raw, computes deltas against the last day before today and
// upserts the result. Mirror failures are logged, not returned.
func (r *Recorder) Record(ctx context.Context, today time.Time, raw string, c Counters) (history.DailySnapshot, error) {
	reading := ParseReading(raw)
	if reading.TotalScore == 0 {
		log.Warn().Str("date", history.Day(today).Format(history.DateLayout)).Msg("ssi reading has no total score")
	}

	var prior *history.DailySnapshot
	if p, ok := r.store.MostRecentBefore(today); ok {
		prior = &p
	}
	snap := Build(today, reading, c, prior)

	if err := r.store.Upsert(snap); err != nil {
		return snap, fmt.Errorf("record snapshot: %w", err)
	}
	log.Info().
		Str("date", snap.Date.Format(history.DateLayout)).
		Float64("total_score", snap.TotalScore).
		Float64("score_delta", snap.ScoreDelta).
		Int("relationship_delta", snap.RelationshipDelta).
		Msg("snapshot recorded")

	if r.mirror != nil {
		if err := r.mirror.MirrorSnapshot(ctx, snap); err != nil {
			log.Warn().Err(err).Msg("snapshot mirror failed")
		}
	}
	return snap, nil
}

// #endregion recorder
