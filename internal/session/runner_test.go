package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/ledger"
	"github.com/danielpatrickdp/ssi-autopilot/internal/logging"
	"github.com/danielpatrickdp/ssi-autopilot/internal/pacing"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/danielpatrickdp/ssi-autopilot/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const englishPost = "We just shipped a new feature store that cuts model training time in half for our data team."

// #region fake-actuator
type call struct {
	action Action
	target Target
}

type fakeActuator struct {
	feed        []Target
	group       []Target
	search      []Target
	invitations []Target
	viewers     []Target
	celebrate   []Target
	profiles    map[string]Target
	pages       map[Page]string

	failOn   Action // Perform returns false
	fatalOn  Action // Perform returns ErrFatal
	calls    []call
	reads    []Page
	searched []string
}

func (f *fakeActuator) Perform(_ context.Context, a Action, t Target) (bool, error) {
	f.calls = append(f.calls, call{a, t})
	if a == f.fatalOn {
		return false, fmt.Errorf("browser gone: %w", ErrFatal)
	}
	return a != f.failOn, nil
}

func (f *fakeActuator) Discover(_ context.Context, src Source, max int) ([]Target, error) {
	var all []Target
	switch src.Kind {
	case SourceFeed:
		all = f.feed
	case SourceGroup:
		all = f.group
	case SourceSearch:
		f.searched = append(f.searched, src.Query)
		all = f.search
	case SourceInvitations:
		all = f.invitations
	case SourceViewers:
		all = f.viewers
	case SourceCelebrations:
		all = f.celebrate
	}
	if len(all) > max {
		all = all[:max]
	}
	return all, nil
}

func (f *fakeActuator) Visit(_ context.Context, t Target) (Target, error) {
	if p, ok := f.profiles[t.URL]; ok {
		return p, nil
	}
	return t, nil
}

func (f *fakeActuator) Read(_ context.Context, p Page) (string, error) {
	f.reads = append(f.reads, p)
	return f.pages[p], nil
}

func (f *fakeActuator) count(a Action) int {
	n := 0
	for _, c := range f.calls {
		if c.action == a {
			n++
		}
	}
	return n
}

func (f *fakeActuator) targets(a Action) []Target {
	var out []Target
	for _, c := range f.calls {
		if c.action == a {
			out = append(out, c.target)
		}
	}
	return out
}

// #endregion fake-actuator

// #region helpers
type fixture struct {
	act    *fakeActuator
	store  *history.Store
	ledger *ledger.Store
	runner *Runner
}

func newFixture(t *testing.T, cfg Config, act *fakeActuator) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := history.Open(filepath.Join(dir, "ssi_history.csv"))
	require.NoError(t, err)
	led, err := ledger.NewStore(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })

	deps := Deps{
		Actuator:     act,
		Recorder:     snapshot.NewRecorder(store, led),
		Ledger:       led,
		ProvenanceDB: led.DB(),
		Wait:         func(context.Context, time.Duration) error { return nil },
	}
	return &fixture{act: act, store: store, ledger: led, runner: NewRunner(cfg, deps, rand.New(rand.NewPCG(1, 2)))}
}

func outcome(limits map[regulation.Quota]int, probs map[regulation.Action]float64) regulation.Outcome {
	return regulation.NewOutcome(regulation.TierCruise, limits, probs)
}

func newSession(out regulation.Outcome) *Session {
	return New(out, rand.New(rand.NewPCG(3, 4)), pacing.New(pacing.DefaultConfig(), rand.New(rand.NewPCG(5, 6))))
}

func noSkip() Config {
	cfg := DefaultConfig()
	cfg.SkipProbability = 0
	cfg.BrowseProbability = 0
	cfg.WithdrawProbability = 0
	return cfg
}

func feedPosts(n int) []Target {
	out := make([]Target, n)
	for i := range out {
		out[i] = Target{URN: fmt.Sprintf("urn:li:activity:%d", i), Text: englishPost}
	}
	return out
}

var day = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// #endregion helpers

// #region tests
func TestFeedPassRespectsQuotaAndProbabilities(t *testing.T) {
	act := &fakeActuator{feed: feedPosts(20)}
	f := newFixture(t, noSkip(), act)
	s := newSession(outcome(
		map[regulation.Quota]int{regulation.QuotaFeedPosts: 7},
		map[regulation.Action]float64{regulation.ActionFeedLike: 1, regulation.ActionFeedComment: 0},
	))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)

	assert.Equal(t, logging.DecisionRun, res.Decision)
	assert.Equal(t, 7, res.Tally.FeedPostsProcessed)
	assert.Equal(t, 7, act.count(ActionLike))
	assert.Equal(t, 0, act.count(ActionComment))
	assert.Equal(t, 7, s.Budget().Used(regulation.QuotaFeedPosts))
}

func TestFeedSkipsNonEnglishButConsumes(t *testing.T) {
	act := &fakeActuator{feed: []Target{
		{URN: "1", Text: "Hoje lançamos uma nova plataforma de dados para toda a equipe de engenharia."},
		{URN: "2", Text: englishPost},
	}}
	f := newFixture(t, noSkip(), act)
	s := newSession(outcome(
		map[regulation.Quota]int{regulation.QuotaFeedPosts: 5},
		map[regulation.Action]float64{regulation.ActionFeedLike: 1, regulation.ActionFeedComment: 1},
	))

	_, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Budget().Used(regulation.QuotaFeedPosts))
	require.Equal(t, 1, act.count(ActionLike))
	assert.Equal(t, "2", act.calls[0].target.URN)
	require.Equal(t, 1, act.count(ActionComment))
	assert.NotEmpty(t, act.calls[1].target.Message, "comment carries fallback text")
}

func TestGroupPassConnectsTargetsAndFollowsTopProfiles(t *testing.T) {
	cfg := noSkip()
	cfg.GroupURLs = []string{"https://www.linkedin.com/groups/123/"}
	act := &fakeActuator{
		group: []Target{
			{URN: "p1", URL: "https://www.linkedin.com/in/cdo/", Name: "Carla Data"},
			{URN: "p2", URL: "https://www.linkedin.com/in/ml/", Name: "Max Learner"},
			{URN: "p3", URL: "https://www.linkedin.com/in/plain/", Name: "Pat Plain"},
			{URN: "p4", URL: "https://www.linkedin.com/in/cdo/", Name: "Carla Data"},
		},
		profiles: map[string]Target{
			"https://www.linkedin.com/in/cdo/":   {URL: "https://www.linkedin.com/in/cdo/", Name: "Carla Data", Headline: "Chief Data Officer at Acme"},
			"https://www.linkedin.com/in/ml/":    {URL: "https://www.linkedin.com/in/ml/", Name: "Max Learner", Headline: "Machine Learning Researcher"},
			"https://www.linkedin.com/in/plain/": {URL: "https://www.linkedin.com/in/plain/", Name: "Pat Plain", Headline: "Baker"},
		},
	}
	f := newFixture(t, cfg, act)
	s := newSession(outcome(
		map[regulation.Quota]int{
			regulation.QuotaProfilesScan: 10,
			regulation.QuotaConnection:   1,
			regulation.QuotaFollow:       5,
		},
		map[regulation.Action]float64{},
	))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Tally.ProfilesVisited, "duplicate authors are visited once")
	assert.Equal(t, 1, res.Tally.ConnectionsSent)
	assert.Equal(t, 1, res.Tally.FollowsDone)
	assert.Equal(t, 3, res.Tally.Endorsements, "one endorsement per group visit")
	assert.Equal(t, 0, act.count(ActionLike))

	var note string
	for _, c := range act.calls {
		if c.action == ActionConnect {
			note = c.target.Message
		}
	}
	assert.Contains(t, note, "Hi Carla,")

	counts, err := f.ledger.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[ledger.StatusConnected])
	assert.Equal(t, 1, counts[ledger.StatusFollowed])
	assert.Equal(t, 1, counts[ledger.StatusVisited])
}

func TestSniperConnectsAfterGroupPassSpendsScanQuota(t *testing.T) {
	cfg := noSkip()
	cfg.GroupURLs = []string{"https://www.linkedin.com/groups/123/"}
	cfg.TargetRoles = []string{"head of data"}
	act := &fakeActuator{
		group: []Target{
			{URN: "p1", URL: "https://www.linkedin.com/in/baker1/", Headline: "Baker"},
			{URN: "p2", URL: "https://www.linkedin.com/in/baker2/", Headline: "Baker"},
			{URN: "p3", URL: "https://www.linkedin.com/in/baker3/", Headline: "Baker"},
		},
		search: []Target{
			{URL: "https://www.linkedin.com/in/hod1/", Name: "Ana Lytics", Headline: "Head of Data at Acme"},
			{URL: "https://www.linkedin.com/in/hod2/", Name: "Bo Query", Headline: "Head of Data"},
		},
	}
	f := newFixture(t, cfg, act)
	s := newSession(outcome(map[regulation.Quota]int{
		regulation.QuotaProfilesScan: 2,
		regulation.QuotaConnection:   3,
		regulation.QuotaFollow:       3,
	}, nil))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Budget().Remaining(regulation.QuotaProfilesScan), "group pass used the scan quota")
	assert.Equal(t, []string{"head of data"}, act.searched)
	assert.Equal(t, 4, res.Tally.ProfilesVisited)
	assert.Equal(t, 2, res.Tally.ConnectionsSent)
	assert.Equal(t, 2, res.Tally.Endorsements, "sniper visits do not endorse")
	assert.Equal(t, 0, act.count(ActionFollow))

	invited := act.targets(ActionConnect)
	require.Len(t, invited, 2)
	assert.Equal(t, "https://www.linkedin.com/in/hod1/", invited[0].URL)
	assert.Equal(t, "https://www.linkedin.com/in/hod2/", invited[1].URL)
	for _, tg := range invited {
		assert.NotContains(t, tg.Message, "stopping by")
		assert.NotContains(t, tg.Message, "same group")
	}
}

func TestReciprocatorInvitesViewersWithinConnectionQuota(t *testing.T) {
	act := &fakeActuator{viewers: []Target{
		{URL: "https://www.linkedin.com/in/v1/", Name: "Vera Viewer", Headline: "Baker"},
		{URL: "https://www.linkedin.com/in/v2/", Name: "Vic Viewer", Headline: "Florist"},
		{URL: "https://www.linkedin.com/in/v3/", Name: "Val Viewer", Headline: "Painter"},
	}}
	f := newFixture(t, noSkip(), act)
	s := newSession(outcome(map[regulation.Quota]int{regulation.QuotaConnection: 5}, nil))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)

	invited := act.targets(ActionConnect)
	require.Len(t, invited, 2, "at most two viewers per session")
	assert.Equal(t, 2, res.Tally.ConnectionsSent)
	assert.Equal(t, 2, s.Budget().Used(regulation.QuotaConnection))
	assert.Equal(t, 0, s.Budget().Used(regulation.QuotaProfilesScan))
	assert.True(t, strings.HasPrefix(invited[0].Message, "Hi Vera, thanks for stopping by my profile"))
	assert.Equal(t, 0, act.count(ActionEndorse))

	counts, err := f.ledger.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[ledger.StatusConnected])
}

func TestReciprocatorStopsAtConnectionQuota(t *testing.T) {
	act := &fakeActuator{viewers: []Target{
		{URL: "https://www.linkedin.com/in/v1/", Name: "Vera Viewer"},
		{URL: "https://www.linkedin.com/in/v2/", Name: "Vic Viewer"},
	}}
	f := newFixture(t, noSkip(), act)
	s := newSession(outcome(map[regulation.Quota]int{regulation.QuotaConnection: 1}, nil))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)
	assert.Equal(t, 1, act.count(ActionConnect))
	assert.Equal(t, 1, res.Tally.ConnectionsSent)
}

func TestNetworkerCongratulatesUpToThree(t *testing.T) {
	act := &fakeActuator{celebrate: []Target{
		{URN: "Congratulate Ada"}, {URN: "Congratulate Bob"}, {URN: "Congratulate Cy"},
		{URN: "Congratulate Di"}, {URN: "Congratulate Ed"},
	}}
	f := newFixture(t, noSkip(), act)

	res, err := f.runner.Run(context.Background(), newSession(outcome(nil, nil)), day)
	require.NoError(t, err)
	assert.Equal(t, 3, act.count(ActionCongratulate))
	assert.Equal(t, 3, res.Tally.Congratulations)
}

func TestBrowsePassReadsOneIncidentalPage(t *testing.T) {
	cfg := noSkip()
	cfg.BrowseProbability = 1
	act := &fakeActuator{}
	f := newFixture(t, cfg, act)

	_, err := f.runner.Run(context.Background(), newSession(outcome(nil, nil)), day)
	require.NoError(t, err)

	require.Len(t, act.reads, 4, "one browse read, then the three record reads")
	assert.Contains(t, BrowsePages, act.reads[0])
	assert.Equal(t, []Page{PageConnections, PageDashboard, PageSSI}, act.reads[1:])
}

func TestGroupCommentsNeedLongEnglishText(t *testing.T) {
	cfg := noSkip()
	cfg.GroupURLs = []string{"https://www.linkedin.com/groups/123/"}
	act := &fakeActuator{group: []Target{
		{URN: "short", Text: "Great news!"},
		{URN: "pt", Text: "Hoje lançamos uma nova plataforma de dados para toda a equipe de engenharia."},
		{URN: "en", Text: englishPost},
	}}
	f := newFixture(t, cfg, act)
	s := newSession(outcome(
		map[regulation.Quota]int{regulation.QuotaProfilesScan: 5},
		map[regulation.Action]float64{regulation.ActionGroupLike: 1, regulation.ActionGroupComment: 1},
	))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)

	liked := act.targets(ActionLike)
	assert.Len(t, liked, 3, "likes are not filtered")
	for _, tg := range liked {
		assert.Contains(t, DefaultReactions, tg.Reaction)
	}
	commented := act.targets(ActionComment)
	require.Len(t, commented, 1)
	assert.Equal(t, "en", commented[0].URN)
	assert.Equal(t, 1, res.Tally.GroupComments)
}

func TestFailedConnectStillConsumes(t *testing.T) {
	cfg := noSkip()
	cfg.TargetRoles = []string{"recruiter"}
	act := &fakeActuator{
		failOn: ActionConnect,
		search: []Target{
			{URL: "https://www.linkedin.com/in/r1/", Headline: "Tech Recruiter"},
			{URL: "https://www.linkedin.com/in/r2/", Headline: "Tech Recruiter"},
			{URL: "https://www.linkedin.com/in/r3/", Headline: "Tech Recruiter"},
		},
	}
	f := newFixture(t, cfg, act)
	s := newSession(outcome(map[regulation.Quota]int{
		regulation.QuotaConnection:   2,
		regulation.QuotaProfilesScan: 10,
	}, nil))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)

	assert.Equal(t, []string{"recruiter"}, act.searched)
	assert.Equal(t, 2, act.count(ActionConnect))
	assert.Equal(t, 0, res.Tally.ConnectionsSent)
	assert.Equal(t, 2, s.Budget().Used(regulation.QuotaConnection), "consumed before attempt, never rolled back")
	assert.Equal(t, 0, s.Budget().Remaining(regulation.QuotaConnection))
}

func TestFailedConnectFallsBackToFollow(t *testing.T) {
	cfg := noSkip()
	cfg.GroupURLs = []string{"https://www.linkedin.com/groups/123/"}
	act := &fakeActuator{
		failOn: ActionConnect,
		group:  []Target{{URN: "p1", URL: "https://www.linkedin.com/in/hod/"}},
		profiles: map[string]Target{
			"https://www.linkedin.com/in/hod/": {URL: "https://www.linkedin.com/in/hod/", Name: "Hana Data", Headline: "Head of Data", Top: true},
		},
	}
	f := newFixture(t, cfg, act)
	s := newSession(outcome(map[regulation.Quota]int{
		regulation.QuotaProfilesScan: 1,
		regulation.QuotaConnection:   1,
		regulation.QuotaFollow:       1,
	}, nil))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)
	assert.Equal(t, 1, act.count(ActionConnect))
	assert.Equal(t, 1, act.count(ActionFollow))
	assert.Equal(t, 0, res.Tally.ConnectionsSent)
	assert.Equal(t, 1, res.Tally.FollowsDone)

	counts, err := f.ledger.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[ledger.StatusFollowed])
}

func TestSniperSkipsVisitedProfiles(t *testing.T) {
	cfg := noSkip()
	cfg.TargetRoles = []string{"cto"}
	act := &fakeActuator{search: []Target{
		{URL: "https://www.linkedin.com/in/seen/", Headline: "CTO"},
		{URL: "https://www.linkedin.com/in/new/", Headline: "CTO"},
	}}
	f := newFixture(t, cfg, act)
	require.NoError(t, f.ledger.LogInteraction(context.Background(), ledger.Interaction{
		ProfileURL: "https://www.linkedin.com/in/seen/", Status: ledger.StatusConnected,
	}))
	s := newSession(outcome(map[regulation.Quota]int{
		regulation.QuotaConnection:   5,
		regulation.QuotaProfilesScan: 5,
	}, nil))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)
	require.Equal(t, 1, act.count(ActionConnect))
	assert.Equal(t, "https://www.linkedin.com/in/new/", act.calls[0].target.URL)
	assert.Equal(t, 1, res.Tally.ConnectionsSent)
}

func TestWithdrawPass(t *testing.T) {
	cfg := noSkip()
	cfg.WithdrawProbability = 1
	act := &fakeActuator{invitations: []Target{
		{URN: "inv1", URL: "https://www.linkedin.com/in/a/"},
		{URN: "inv2", URL: "https://www.linkedin.com/in/b/"},
		{URN: "inv3", URL: "https://www.linkedin.com/in/c/"},
	}}
	f := newFixture(t, cfg, act)
	s := newSession(outcome(nil, nil))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)
	assert.Equal(t, 2, act.count(ActionWithdraw))
	assert.Equal(t, 2, res.Tally.WithdrawnCount)
	v, ok := res.Snapshot.Counter(history.WithdrawnCount)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestRecordsSnapshotFromPages(t *testing.T) {
	act := &fakeActuator{pages: map[Page]string{
		PageConnections: "1,203 connections",
		PageDashboard:   "55 profile views\n900 post impressions\n12 search appearances\n640 followers",
		PageSSI:         "61 out of 100\nIndustry SSI rank Top 5%\n15 Establish your professional brand",
	}}
	f := newFixture(t, noSkip(), act)
	require.NoError(t, f.store.Upsert(history.DailySnapshot{
		Date:       day.AddDate(0, 0, -1),
		TotalScore: 58,
		Counters:   map[string]float64{history.TotalRelationships: 1200},
	}))
	s := newSession(outcome(map[regulation.Quota]int{regulation.QuotaConnection: 8}, map[regulation.Action]float64{regulation.ActionFeedLike: 0.4}))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)

	snap := res.Snapshot
	assert.Equal(t, 61.0, snap.TotalScore)
	assert.Equal(t, 3.0, snap.ScoreDelta)
	assert.Equal(t, 3, snap.RelationshipDelta)
	assert.Equal(t, 5, snap.Ranks[history.IndustryRank])
	assert.Equal(t, 8.0, snap.Counters[history.ConnectionLimit])
	assert.Equal(t, 0.4, snap.Counters[history.FeedLikeProb])
	assert.Equal(t, 640.0, snap.Counters[history.TotalFollowers])
	assert.Equal(t, 1.5, snap.Counters[history.SpeedFactor])
	assert.Equal(t, 2, f.store.DaysActive())

	a, ok, err := f.ledger.LatestAnalytics(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 55, a.ProfileViews)

	mirrored, err := f.ledger.ListSnapshots(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, mirrored, 1)

	entries, err := logging.ListDecisions(f.ledger.DB(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, s.ID, entries[0].SessionID)
	assert.Equal(t, logging.DecisionRun, entries[0].Decision)
}

func TestFatalFaultRecordsPartialAndReturns(t *testing.T) {
	act := &fakeActuator{
		feed:    feedPosts(10),
		fatalOn: ActionComment,
		pages:   map[Page]string{PageSSI: "70 out of 100"},
	}
	f := newFixture(t, noSkip(), act)
	s := newSession(outcome(
		map[regulation.Quota]int{regulation.QuotaFeedPosts: 10, regulation.QuotaConnection: 5},
		map[regulation.Action]float64{regulation.ActionFeedLike: 1, regulation.ActionFeedComment: 1},
	))

	res, err := f.runner.Run(context.Background(), s, day)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatal)
	assert.Contains(t, err.Error(), s.ID)
	assert.Equal(t, logging.DecisionFault, res.Decision)

	assert.Equal(t, 1, res.Tally.FeedPostsProcessed)
	assert.Equal(t, 1, res.Tally.FeedLikes)
	assert.Empty(t, act.reads, "no page reads after a fatal fault")
	assert.False(t, s.Authorize(regulation.QuotaConnection), "faulted session authorizes nothing")

	require.Equal(t, 1, f.store.DaysActive())
	snap := f.store.Load()[0]
	assert.Equal(t, 0.0, snap.TotalScore)
	v, _ := snap.Counter(history.FeedPostsProcessed)
	assert.Equal(t, 1, v)

	entries, err := logging.ListDecisions(f.ledger.DB(), 1)
	require.NoError(t, err)
	assert.Equal(t, logging.DecisionFault, entries[0].Decision)
}

func TestNonFatalErrorsAreFailures(t *testing.T) {
	act := &errActuator{fakeActuator: fakeActuator{feed: feedPosts(3)}}
	f := newFixture(t, noSkip(), &act.fakeActuator)
	f.runner.deps.Actuator = act
	s := newSession(outcome(
		map[regulation.Quota]int{regulation.QuotaFeedPosts: 3},
		map[regulation.Action]float64{regulation.ActionFeedLike: 1},
	))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Tally.FeedPostsProcessed)
	assert.Equal(t, 0, res.Tally.FeedLikes)
}

type errActuator struct {
	fakeActuator
}

func (e *errActuator) Perform(ctx context.Context, a Action, t Target) (bool, error) {
	e.fakeActuator.Perform(ctx, a, t)
	return false, errors.New("element not found")
}

func TestSkipDayOnlyRecords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipProbability = 1
	act := &fakeActuator{feed: feedPosts(5), pages: map[Page]string{PageSSI: "40 out of 100"}}
	f := newFixture(t, cfg, act)
	s := newSession(outcome(
		map[regulation.Quota]int{regulation.QuotaFeedPosts: 5},
		map[regulation.Action]float64{regulation.ActionFeedLike: 1},
	))

	res, err := f.runner.Run(context.Background(), s, day)
	require.NoError(t, err)
	assert.Equal(t, logging.DecisionSkip, res.Decision)
	assert.Empty(t, act.calls)
	assert.Equal(t, 40.0, res.Snapshot.TotalScore)
}

func TestRecordOnly(t *testing.T) {
	act := &fakeActuator{feed: feedPosts(3), pages: map[Page]string{PageSSI: "66 out of 100"}}
	f := newFixture(t, noSkip(), act)
	s := newSession(outcome(map[regulation.Quota]int{regulation.QuotaFeedPosts: 3}, nil))

	res, err := f.runner.Record(context.Background(), s, day)
	require.NoError(t, err)
	assert.Empty(t, act.calls)
	assert.Equal(t, 66.0, res.Snapshot.TotalScore)

	entries, err := logging.ListDecisions(f.ledger.DB(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "record only", entries[0].Reason)
}

func TestCancelledContextStillRecords(t *testing.T) {
	act := &fakeActuator{feed: feedPosts(5)}
	f := newFixture(t, noSkip(), act)
	f.runner.deps.Wait = pacing.Wait
	s := newSession(outcome(
		map[regulation.Quota]int{regulation.QuotaFeedPosts: 5},
		map[regulation.Action]float64{regulation.ActionFeedLike: 1},
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.runner.Run(ctx, s, day)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.store.DaysActive())
}

func TestRunOpensSpanPerStage(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	f := newFixture(t, noSkip(), &fakeActuator{})
	f.runner.deps.Tracer = tp.Tracer("test")

	_, err := f.runner.Run(context.Background(), newSession(outcome(nil, nil)), day)
	require.NoError(t, err)

	var names []string
	for _, span := range sr.Ended() {
		names = append(names, span.Name())
	}
	assert.ElementsMatch(t, []string{
		"session.feed", "session.browse", "session.networker", "session.reciprocator",
		"session.withdraw", "session.groups", "session.sniper",
		"session.record", "session.run",
	}, names)
}

// #endregion tests
