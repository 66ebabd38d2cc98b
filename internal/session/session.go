package session

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/ssi-autopilot/internal/budget"
	"github.com/danielpatrickdp/ssi-autopilot/internal/engagement"
	"github.com/danielpatrickdp/ssi-autopilot/internal/pacing"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/danielpatrickdp/ssi-autopilot/internal/snapshot"
	"github.com/google/uuid"
)

// #region tally
// Tally counts what a session actually did.
type Tally struct {
	ConnectionsSent    int
	FollowsDone        int
	ProfilesVisited    int
	FeedPostsProcessed int
	WithdrawnCount     int
	FeedLikes          int
	FeedComments       int
	GroupLikes         int
	GroupComments      int
	Congratulations    int
	Endorsements       int
}

// #endregion tally

// #region session
// Session is the explicit context of one run: the regulation outcome, the
// budget it owns, and the gates that consume it.
type Session struct {
	ID      string
	outcome regulation.Outcome
	budget  *budget.Budget
	decider *engagement.Decider
	pacer   *pacing.Pacer
	tally   Tally
	fault   error
}

// New starts a session for out. rng drives the engagement draws.
func New(out regulation.Outcome, rng *rand.Rand, pacer *pacing.Pacer) *Session {
	return &Session{
		ID:      uuid.New().String(),
		outcome: out,
		budget:  budget.FromOutcome(out),
		decider: engagement.NewDecider(rng),
		pacer:   pacer,
	}
}

// #endregion session

// #region gates
// Outcome returns the regulation outcome the session runs under.
func (s *Session) Outcome() regulation.Outcome { return s.outcome }

// Budget returns the session budget.
func (s *Session) Budget() *budget.Budget { return s.budget }

// Tally returns what the session has done so far.
func (s *Session) Tally() Tally { return s.tally }

// Fault returns the fatal error that ended the session, if any.
func (s *Session) Fault() error { return s.fault }

// Authorize consumes one slot of q. A faulted session authorizes nothing.
func (s *Session) Authorize(q regulation.Quota) bool {
	if s.fault != nil {
		return false
	}
	return s.budget.TryConsume(q)
}

// Engage draws the probability gate for a.
func (s *Session) Engage(a regulation.Action) bool {
	if s.fault != nil {
		return false
	}
	return s.decider.ShouldAct(s.outcome.Probability(a))
}

// #endregion gates

// #region counters
// Counters assembles the snapshot counters from the session state and the
// end-of-session readings.
func (s *Session) Counters(totalRelationships, totalFollowers int) snapshot.Counters {
	t := s.tally
	return snapshot.Counters{
		Limits:             s.outcome.Limits(),
		Probabilities:      s.outcome.Probabilities(),
		SpeedFactor:        s.pacer.SpeedFactor(),
		WithdrawnCount:     t.WithdrawnCount,
		TotalRelationships: totalRelationships,
		TotalFollowers:     totalFollowers,
		ConnectionsSent:    t.ConnectionsSent,
		FollowsDone:        t.FollowsDone,
		ProfilesVisited:    t.ProfilesVisited,
		FeedPostsProcessed: t.FeedPostsProcessed,
		LikesGiven:         t.FeedLikes + t.GroupLikes,
		CommentsPosted:     t.FeedComments + t.GroupComments,
	}
}

// #endregion counters
