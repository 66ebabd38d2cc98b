package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/ledger"
	"github.com/danielpatrickdp/ssi-autopilot/internal/logging"
	"github.com/danielpatrickdp/ssi-autopilot/internal/pacing"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/danielpatrickdp/ssi-autopilot/internal/snapshot"
	"github.com/danielpatrickdp/ssi-autopilot/internal/textgen"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// #region config
// Config tunes the session stages.
type Config struct {
	GroupURLs           []string
	TargetRoles         []string
	HighValueKeywords   []string
	Reactions           []string // like variants, one drawn per like; empty sends plain likes
	EnglishOnly         bool
	Endorse             bool    // endorse one skill on each group profile visit
	SkipProbability     float64 // chance the whole day is snapshot-only
	BrowseProbability   float64 // chance of opening one of BrowsePages
	WithdrawProbability float64
	MaxWithdraw         int
	MaxSniper           int
	MaxCongratulate     int
	MaxReciprocate      int
}

// DefaultReactions are the like variants drawn from when liking a post.
var DefaultReactions = []string{"like", "insightful", "celebrate", "love"}

// DefaultConfig returns the stock stage settings.
func DefaultConfig() Config {
	return Config{
		TargetRoles:         DefaultTargetRoles,
		HighValueKeywords:   DefaultHighValueKeywords,
		Reactions:           DefaultReactions,
		EnglishOnly:         true,
		Endorse:             true,
		SkipProbability:     1.0 / 8,
		BrowseProbability:   0.4,
		WithdrawProbability: 0.3,
		MaxWithdraw:         2,
		MaxSniper:           5,
		MaxCongratulate:     3,
		MaxReciprocate:      2,
	}
}

// Minimum post length, in bytes, before a comment is attempted.
const (
	feedCommentMin  = 20
	groupCommentMin = 15
)

// #endregion config

// #region deps
// Ledger is the interaction store the runner writes to.
type Ledger interface {
	LogInteraction(ctx context.Context, in ledger.Interaction) error
	Visited(ctx context.Context, profileURL string) (bool, error)
	LogAnalytics(ctx context.Context, a ledger.Analytics) error
}

// Deps are the collaborators of a Runner. Ledger and ProvenanceDB are optional.
type Deps struct {
	Actuator     Actuator
	Composer     *textgen.Composer
	Recorder     *snapshot.Recorder
	Ledger       Ledger
	ProvenanceDB *sql.DB
	Tracer       trace.Tracer
	Wait         func(ctx context.Context, d time.Duration) error
}

// Result summarises a finished run.
type Result struct {
	SessionID string
	Decision  logging.Decision
	Snapshot  history.DailySnapshot
	Tally     Tally
}

// #endregion deps

// #region runner
// Runner drives one session through its stages and records the day.
type Runner struct {
	cfg  Config
	deps Deps
	rng  *rand.Rand
}

// NewRunner creates a runner. rng drives stage-level draws (skip day, browse,
// withdraw, reaction, group and role choice).
func NewRunner(cfg Config, deps Deps, rng *rand.Rand) *Runner {
	if deps.Wait == nil {
		deps.Wait = pacing.Wait
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("github.com/danielpatrickdp/ssi-autopilot/internal/session")
	}
	if deps.Composer == nil {
		deps.Composer = textgen.NewComposer(nil, nil, textgen.DefaultPersona())
	}
	return &Runner{cfg: cfg, deps: deps, rng: rng}
}

type stage struct {
	name string
	run  func(ctx context.Context, s *Session) error
}

// Run executes the stages in order, then records the snapshot. A fatal fault
// skips the remaining stages; the partial counters are still recorded and the
// fault is returned wrapped.
func (r *Runner) Run(ctx context.Context, s *Session, today time.Time) (Result, error) {
	ctx, span := r.deps.Tracer.Start(ctx, "session.run", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("session.tier", string(s.Outcome().Tier())),
	))
	defer span.End()

	decision := logging.DecisionRun
	reason := ""
	if r.rng.Float64() < r.cfg.SkipProbability {
		decision = logging.DecisionSkip
		reason = "skip-day draw"
		log.Info().Str("session", s.ID).Msg("skip day, recording snapshot only")
	} else {
		stages := []stage{
			{"feed", r.feedPass},
			{"browse", r.browsePass},
			{"networker", r.networkerPass},
			{"reciprocator", r.reciprocatorPass},
			{"withdraw", r.withdrawPass},
			{"groups", r.groupPass},
			{"sniper", r.sniperPass},
		}
		for _, st := range stages {
			if err := r.runStage(ctx, s, st); err != nil {
				s.fault = err
				decision = logging.DecisionFault
				reason = err.Error()
				break
			}
		}
	}

	res, err := r.conclude(ctx, s, today, decision, reason)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// Record runs no stage: it only reads the end-of-session pages and records
// the day.
func (r *Runner) Record(ctx context.Context, s *Session, today time.Time) (Result, error) {
	return r.conclude(ctx, s, today, logging.DecisionSkip, "record only")
}

// conclude records the snapshot and the provenance entry, then reports the
// fault or recording error, if any.
func (r *Runner) conclude(ctx context.Context, s *Session, today time.Time, decision logging.Decision, reason string) (Result, error) {
	snap, recErr := r.finish(ctx, s, today)
	r.logProvenance(s, decision, reason)

	res := Result{SessionID: s.ID, Decision: decision, Snapshot: snap, Tally: s.tally}
	if s.fault != nil {
		return res, fmt.Errorf("session %s: %w", s.ID, s.fault)
	}
	if recErr != nil {
		return res, fmt.Errorf("session %s: %w", s.ID, recErr)
	}
	log.Info().Str("session", s.ID).Str("decision", string(decision)).
		Int("connections", s.tally.ConnectionsSent).
		Int("follows", s.tally.FollowsDone).
		Int("profiles", s.tally.ProfilesVisited).
		Int("congratulations", s.tally.Congratulations).
		Int("endorsements", s.tally.Endorsements).
		Msg("session finished")
	return res, nil
}

func (r *Runner) runStage(ctx context.Context, s *Session, st stage) error {
	ctx, span := r.deps.Tracer.Start(ctx, "session."+st.name)
	defer span.End()

	log.Info().Str("session", s.ID).Str("stage", st.name).Msg("stage start")
	err := st.run(ctx, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("session", s.ID).Str("stage", st.name).Msg("stage aborted")
	}
	return err
}

// #endregion runner

// #region stages
func (r *Runner) feedPass(ctx context.Context, s *Session) error {
	posts, err := r.discover(ctx, Source{Kind: SourceFeed}, s.Budget().Limit(regulation.QuotaFeedPosts))
	if err != nil {
		return err
	}
	for _, post := range posts {
		if !s.Authorize(regulation.QuotaFeedPosts) {
			break
		}
		s.tally.FeedPostsProcessed++
		if r.cfg.EnglishOnly && !textgen.IsEnglish(post.Text) {
			continue
		}
		liked, commented, err := r.engagePost(ctx, s, post, regulation.ActionFeedLike, regulation.ActionFeedComment, feedCommentMin)
		if liked {
			s.tally.FeedLikes++
		}
		if commented {
			s.tally.FeedComments++
		}
		if err != nil {
			return err
		}
		if err := r.pause(ctx, s, pacing.Scroll); err != nil {
			return err
		}
	}
	return nil
}

// browsePass opens one incidental page, some days, so the session does not
// go straight from the feed to outreach.
func (r *Runner) browsePass(ctx context.Context, s *Session) error {
	if r.cfg.BrowseProbability <= 0 || r.rng.Float64() >= r.cfg.BrowseProbability {
		return nil
	}
	page := BrowsePages[r.rng.IntN(len(BrowsePages))]
	if _, err := r.deps.Actuator.Read(ctx, page); err != nil {
		if errors.Is(err, ErrFatal) {
			return err
		}
		log.Warn().Err(err).Str("page", string(page)).Msg("browse failed")
		return nil
	}
	log.Debug().Str("session", s.ID).Str("page", string(page)).Msg("browsed")
	return r.pause(ctx, s, pacing.Scroll)
}

// networkerPass congratulates contacts on the celebrations listed in the
// notifications.
func (r *Runner) networkerPass(ctx context.Context, s *Session) error {
	cards, err := r.discover(ctx, Source{Kind: SourceCelebrations}, r.cfg.MaxCongratulate)
	if err != nil {
		return err
	}
	for _, card := range cards {
		ok, err := r.perform(ctx, ActionCongratulate, card)
		if err != nil {
			return err
		}
		if ok {
			s.tally.Congratulations++
		}
		if err := r.pause(ctx, s, pacing.Action); err != nil {
			return err
		}
	}
	if s.tally.Congratulations > 0 {
		log.Info().Str("session", s.ID).Int("sent", s.tally.Congratulations).Msg("celebrations congratulated")
	}
	return nil
}

// reciprocatorPass invites recent profile viewers, whatever their headline.
// Every invitation spends a connection slot.
func (r *Runner) reciprocatorPass(ctx context.Context, s *Session) error {
	limit := min(r.cfg.MaxReciprocate, s.Budget().Remaining(regulation.QuotaConnection))
	viewers, err := r.discover(ctx, Source{Kind: SourceViewers}, limit)
	if err != nil {
		return err
	}
	for _, v := range viewers {
		if s.Budget().Remaining(regulation.QuotaConnection) == 0 {
			break
		}
		if v.URL == "" || r.visited(ctx, v.URL) {
			continue
		}
		if err := r.visitProfile(ctx, s, v, visit{source: "viewers", viewer: true}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) withdrawPass(ctx context.Context, s *Session) error {
	if r.cfg.MaxWithdraw <= 0 || r.rng.Float64() >= r.cfg.WithdrawProbability {
		return nil
	}
	pending, err := r.discover(ctx, Source{Kind: SourceInvitations}, r.cfg.MaxWithdraw)
	if err != nil {
		return err
	}
	for _, inv := range pending {
		ok, err := r.perform(ctx, ActionWithdraw, inv)
		if err != nil {
			return err
		}
		if ok {
			s.tally.WithdrawnCount++
			r.logInteraction(ctx, s, inv, "invitations", ledger.StatusWithdrawn)
		}
		if err := r.pause(ctx, s, pacing.Action); err != nil {
			return err
		}
	}
	return nil
}

// groupPass engages one group's posts, then visits their authors. Each visit
// spends a profiles_scan slot.
func (r *Runner) groupPass(ctx context.Context, s *Session) error {
	if len(r.cfg.GroupURLs) == 0 {
		return nil
	}
	group := r.cfg.GroupURLs[r.rng.IntN(len(r.cfg.GroupURLs))]
	scan := s.Budget().Limit(regulation.QuotaProfilesScan)
	posts, err := r.discover(ctx, Source{Kind: SourceGroup, URL: group}, scan)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var authors []Target
	for _, post := range posts {
		liked, commented, err := r.engagePost(ctx, s, post, regulation.ActionGroupLike, regulation.ActionGroupComment, groupCommentMin)
		if liked {
			s.tally.GroupLikes++
		}
		if commented {
			s.tally.GroupComments++
		}
		if err != nil {
			return err
		}
		if post.URL == "" || seen[post.URL] || len(authors) >= scan || r.visited(ctx, post.URL) {
			continue
		}
		seen[post.URL] = true
		authors = append(authors, Target{URL: post.URL, Name: post.Name, Headline: post.Headline, Group: post.Group})
	}

	for _, author := range authors {
		if !s.Authorize(regulation.QuotaProfilesScan) {
			break
		}
		v := visit{source: "group", group: author.Group, endorse: r.cfg.Endorse, follow: true}
		if err := r.visitProfile(ctx, s, author, v); err != nil {
			return err
		}
	}
	return nil
}

// sniperPass searches one target role and invites matching results. It spends
// only connection slots, so it still runs once the group pass has used up
// profiles_scan.
func (r *Runner) sniperPass(ctx context.Context, s *Session) error {
	remaining := s.Budget().Remaining(regulation.QuotaConnection)
	if remaining == 0 || len(r.cfg.TargetRoles) == 0 {
		return nil
	}
	role := r.cfg.TargetRoles[r.rng.IntN(len(r.cfg.TargetRoles))]
	results, err := r.discover(ctx, Source{Kind: SourceSearch, Query: role}, min(r.cfg.MaxSniper, remaining))
	if err != nil {
		return err
	}
	log.Info().Str("session", s.ID).Str("role", role).Int("results", len(results)).Msg("sniper search")

	for _, t := range results {
		if s.Budget().Remaining(regulation.QuotaConnection) == 0 {
			break
		}
		if t.URL == "" || r.visited(ctx, t.URL) {
			continue
		}
		if err := r.visitProfile(ctx, s, t, visit{source: "search"}); err != nil {
			return err
		}
	}
	return nil
}

// #endregion stages

// #region interactions
// engagePost applies the like and comment gates to one post. A comment also
// needs a post longer than minText bytes, in English when EnglishOnly is set.
func (r *Runner) engagePost(ctx context.Context, s *Session, post Target, like, comment regulation.Action, minText int) (bool, bool, error) {
	var liked, commented bool
	if s.Engage(like) {
		post.Reaction = r.reaction()
		ok, err := r.perform(ctx, ActionLike, post)
		if err != nil {
			return liked, commented, err
		}
		liked = ok
		if err := r.pause(ctx, s, pacing.Action); err != nil {
			return liked, commented, err
		}
	}
	if s.Engage(comment) && r.commentable(post.Text, minText) {
		post.Message = r.deps.Composer.Comment(ctx, post.Text)
		ok, err := r.perform(ctx, ActionComment, post)
		if err != nil {
			return liked, commented, err
		}
		commented = ok
		if err := r.pause(ctx, s, pacing.Action); err != nil {
			return liked, commented, err
		}
	}
	return liked, commented, nil
}

func (r *Runner) commentable(text string, minText int) bool {
	text = strings.TrimSpace(text)
	return len(text) > minText && (!r.cfg.EnglishOnly || textgen.IsEnglish(text))
}

func (r *Runner) reaction() string {
	if len(r.cfg.Reactions) == 0 {
		return ""
	}
	return r.cfg.Reactions[r.rng.IntN(len(r.cfg.Reactions))]
}

// visit says what to try on an opened profile.
type visit struct {
	source  string // ledger source
	group   string // shared group named in the note
	viewer  bool   // viewed our profile: invite whatever the headline
	endorse bool
	follow  bool // follow top profiles that get no invitation
}

// visitProfile opens a profile, then tries a connection for target roles (or
// any viewer) and, when no invitation went out, a follow for top profiles.
// Quota for the visit itself is the caller's concern.
func (r *Runner) visitProfile(ctx context.Context, s *Session, t Target, v visit) error {
	s.tally.ProfilesVisited++

	profile, err := r.deps.Actuator.Visit(ctx, t)
	if err != nil {
		if errors.Is(err, ErrFatal) {
			return err
		}
		log.Warn().Err(err).Str("url", t.URL).Msg("profile visit failed")
		r.logInteraction(ctx, s, t, v.source, ledger.StatusFailed)
		return nil
	}
	if profile.URL == "" {
		profile.URL = t.URL
	}
	if err := r.pause(ctx, s, pacing.PageLoad); err != nil {
		return err
	}

	if v.endorse {
		ok, err := r.perform(ctx, ActionEndorse, profile)
		if err != nil {
			return err
		}
		if ok {
			s.tally.Endorsements++
			if err := r.pause(ctx, s, pacing.Action); err != nil {
				return err
			}
		}
	}

	status := ledger.StatusVisited
	if (v.viewer || MatchesAny(profile.Headline, r.cfg.TargetRoles)) && s.Authorize(regulation.QuotaConnection) {
		profile.Message = r.deps.Composer.Invite(ctx, textgen.Invitee{
			Name:     profile.Name,
			Headline: profile.Headline,
			Group:    v.group,
			Viewer:   v.viewer,
		})
		ok, err := r.perform(ctx, ActionConnect, profile)
		if err != nil {
			return err
		}
		status = ledger.StatusFailed
		if ok {
			s.tally.ConnectionsSent++
			status = ledger.StatusConnected
			if err := r.pause(ctx, s, pacing.AfterConnect); err != nil {
				r.logInteraction(ctx, s, profile, v.source, status)
				return err
			}
		}
	}
	// A failed invitation still leaves the follow open.
	if status != ledger.StatusConnected && v.follow &&
		IsTopProfile(profile, r.cfg.HighValueKeywords) && s.Authorize(regulation.QuotaFollow) {
		ok, err := r.perform(ctx, ActionFollow, profile)
		if err != nil {
			return err
		}
		if ok {
			s.tally.FollowsDone++
			status = ledger.StatusFollowed
		} else {
			status = ledger.StatusFailed
		}
	}
	r.logInteraction(ctx, s, profile, v.source, status)
	return r.pause(ctx, s, pacing.CoffeeBreak)
}

// perform calls the actuator. Non-fatal errors count as a failed attempt.
func (r *Runner) perform(ctx context.Context, a Action, t Target) (bool, error) {
	ok, err := r.deps.Actuator.Perform(ctx, a, t)
	if err != nil {
		if errors.Is(err, ErrFatal) {
			return false, err
		}
		log.Warn().Err(err).Str("action", string(a)).Str("target", t.URL+t.URN).Msg("action failed")
		return false, nil
	}
	return ok, nil
}

func (r *Runner) discover(ctx context.Context, src Source, max int) ([]Target, error) {
	if max <= 0 {
		return nil, nil
	}
	targets, err := r.deps.Actuator.Discover(ctx, src, max)
	if err != nil {
		if errors.Is(err, ErrFatal) {
			return nil, err
		}
		log.Warn().Err(err).Str("source", string(src.Kind)).Msg("discovery failed")
		return nil, nil
	}
	if len(targets) > max {
		targets = targets[:max]
	}
	return targets, nil
}

func (r *Runner) pause(ctx context.Context, s *Session, k pacing.Kind) error {
	return r.deps.Wait(ctx, s.pacer.Delay(k))
}

func (r *Runner) visited(ctx context.Context, url string) bool {
	if r.deps.Ledger == nil {
		return false
	}
	seen, err := r.deps.Ledger.Visited(ctx, url)
	if err != nil {
		log.Warn().Err(err).Msg("ledger lookup failed")
		return false
	}
	return seen
}

func (r *Runner) logInteraction(ctx context.Context, s *Session, t Target, source string, status ledger.Status) {
	if r.deps.Ledger == nil || t.URL == "" {
		return
	}
	err := r.deps.Ledger.LogInteraction(ctx, ledger.Interaction{
		ProfileURL: t.URL,
		Name:       t.Name,
		Headline:   t.Headline,
		Source:     source,
		Status:     status,
		SessionID:  s.ID,
	})
	if err != nil {
		log.Warn().Err(err).Str("url", t.URL).Msg("ledger write failed")
	}
}

// #endregion interactions

// #region finish
// finish reads the end-of-session pages and records the snapshot. A faulted
// session skips the reads and records what it has.
func (r *Runner) finish(ctx context.Context, s *Session, today time.Time) (history.DailySnapshot, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := r.deps.Tracer.Start(ctx, "session.record")
	defer span.End()

	var raw string
	var relationships, followers int
	if s.fault == nil {
		if text, err := r.deps.Actuator.Read(ctx, PageConnections); err != nil {
			log.Warn().Err(err).Msg("connection count unreadable")
		} else {
			relationships = snapshot.ParseRelationshipCount(text)
		}
		if text, err := r.deps.Actuator.Read(ctx, PageDashboard); err != nil {
			log.Warn().Err(err).Msg("dashboard unreadable")
		} else {
			dash := snapshot.ParseDashboard(text)
			followers = dash.Followers
			r.logAnalytics(ctx, s, dash)
		}
		if text, err := r.deps.Actuator.Read(ctx, PageSSI); err != nil {
			log.Warn().Err(err).Msg("ssi page unreadable")
		} else {
			raw = text
		}
	}

	snap, err := r.deps.Recorder.Record(ctx, today, raw, s.Counters(relationships, followers))
	if err != nil {
		span.RecordError(err)
		return snap, err
	}
	return snap, nil
}

func (r *Runner) logAnalytics(ctx context.Context, s *Session, d snapshot.Dashboard) {
	if r.deps.Ledger == nil {
		return
	}
	t := s.tally
	err := r.deps.Ledger.LogAnalytics(ctx, ledger.Analytics{
		ProfileViews:      d.ProfileViews,
		PostImpressions:   d.PostImpressions,
		SearchAppearances: d.SearchAppearances,
		Followers:         d.Followers,
		FeedComments:      t.FeedComments,
		GroupComments:     t.GroupComments,
		FeedLikes:         t.FeedLikes,
		GroupLikes:        t.GroupLikes,
	})
	if err != nil {
		log.Warn().Err(err).Msg("analytics write failed")
	}
}

func (r *Runner) logProvenance(s *Session, decision logging.Decision, reason string) {
	if r.deps.ProvenanceDB == nil {
		return
	}
	entry, err := logging.NewEntry(s.ID, s.Outcome(), decision, reason)
	if err == nil {
		err = logging.LogDecision(r.deps.ProvenanceDB, entry)
	}
	if err != nil {
		log.Warn().Err(err).Str("session", s.ID).Msg("provenance write failed")
	}
}

// #endregion finish
