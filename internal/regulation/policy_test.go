package regulation

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTierLadder(t *testing.T) {
	th := DefaultConfig().Thresholds
	cases := []struct {
		days  int
		score float64
		want  Tier
	}{
		{0, 0, TierWarmup},
		{2, 99, TierWarmup},
		{3, 0, TierGrowth},
		{13, 95, TierGrowth},
		{14, 70, TierCruise},
		{14, 70.5, TierElite},
		{40, 10, TierCruise},
		{40, math.NaN(), TierCruise},
		{40, math.Inf(1), TierCruise},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SelectTier(c.days, c.score, th), "days=%d score=%v", c.days, c.score)
	}
}

func TestSelectTierNeverStepsBackAsDaysGrow(t *testing.T) {
	th := DefaultConfig().Thresholds
	rank := map[Tier]int{TierWarmup: 0, TierGrowth: 1, TierCruise: 2, TierElite: 2}
	for _, score := range []float64{0, 35, th.EliteScore, th.EliteScore + 0.5, 100} {
		prev := SelectTier(0, score, th)
		for days := 1; days <= 60; days++ {
			tier := SelectTier(days, score, th)
			require.GreaterOrEqual(t, rank[tier], rank[prev], "score=%v days=%d: %s after %s", score, days, tier, prev)
			if days > th.GrowthDays {
				require.Equal(t, prev, tier, "score=%v days=%d: tier settles once growth ends", score, days)
			}
			prev = tier
		}
	}
}

func TestEvaluateWithinRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownProbability = 0
	rng := NewRand(7)

	for _, sum := range []Summary{{0, 0}, {5, 40}, {20, 50}, {20, 80}} {
		for i := 0; i < 500; i++ {
			out, err := Evaluate(sum, cfg, rng)
			require.NoError(t, err)
			profile := cfg.Table.Profile(out.Tier())
			for _, q := range Quotas {
				r := profile.Limits.Range(q)
				v := out.Limit(q)
				require.GreaterOrEqual(t, v, r.Low, "%s", q)
				require.LessOrEqual(t, v, r.High, "%s", q)
			}
			for _, a := range Actions {
				r := profile.Probabilities.Range(a)
				p := out.Probability(a)
				require.GreaterOrEqual(t, p, r.Low, "%s", a)
				require.LessOrEqual(t, p, r.High, "%s", a)
			}
		}
	}
}

func TestEvaluateSampleMean(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownProbability = 0
	rng := NewRand(42)

	const n = 2000
	var sum float64
	for i := 0; i < n; i++ {
		out, err := Evaluate(Summary{DaysActive: 30, LastScore: 50}, cfg, rng)
		require.NoError(t, err)
		sum += out.Probability(ActionFeedLike)
	}
	// cruise feed_like is [0.50, 0.70]
	assert.InDelta(t, 0.60, sum/n, 0.02)
}

func TestEvaluateQuotaMeanIsRangeMidpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownProbability = 0
	rng := NewRand(42)
	profile := cfg.Table.Profile(TierCruise)

	const n = 1000
	sums := make(map[Quota]float64, len(Quotas))
	for i := 0; i < n; i++ {
		out, err := Evaluate(Summary{DaysActive: 30, LastScore: 50}, cfg, rng)
		require.NoError(t, err)
		for _, q := range Quotas {
			sums[q] += float64(out.Limit(q))
		}
	}
	for _, q := range Quotas {
		r := profile.Limits.Range(q)
		width := float64(r.High - r.Low + 1)
		// four standard errors of a discrete uniform mean
		tol := 4*math.Sqrt((width*width-1)/12)/math.Sqrt(n) + 0.01
		assert.InDelta(t, float64(r.Low+r.High)/2, sums[q]/n, tol, "%s", q)
	}
}

func TestEvaluateDeterministicBySeed(t *testing.T) {
	cfg := DefaultConfig()
	s := Summary{DaysActive: 9, LastScore: 33}

	a, err := Evaluate(s, cfg, NewRand(99))
	require.NoError(t, err)
	b, err := Evaluate(s, cfg, NewRand(99))
	require.NoError(t, err)

	assert.Equal(t, a.Limits(), b.Limits())
	assert.Equal(t, a.Probabilities(), b.Probabilities())
	assert.Equal(t, a.Cooldowns(), b.Cooldowns())
}

func TestEvaluateCooldownForcesZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownProbability = 1

	out, err := Evaluate(Summary{DaysActive: 30, LastScore: 90}, cfg, NewRand(1))
	require.NoError(t, err)

	assert.Equal(t, TierElite, out.Tier())
	assert.Equal(t, 0, out.Limit(QuotaConnection))
	assert.Equal(t, 0, out.Limit(QuotaFollow))
	assert.Greater(t, out.Limit(QuotaProfilesScan), 0)
	assert.ElementsMatch(t, []Quota{QuotaConnection, QuotaFollow}, out.Cooldowns())
}

func TestEvaluateCooldownRate(t *testing.T) {
	cfg := DefaultConfig()
	rng := NewRand(3)

	const n = 4000
	zero := 0
	for i := 0; i < n; i++ {
		out, err := Evaluate(Summary{DaysActive: 1}, cfg, rng)
		require.NoError(t, err)
		if out.Limit(QuotaConnection) == 0 {
			zero++
		}
	}
	assert.InDelta(t, 0.10, float64(zero)/n, 0.02)
}

func TestEvaluateManualWhenAutoOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoRegulate = false
	cfg.CooldownProbability = 0

	out, err := Evaluate(Summary{DaysActive: 100, LastScore: 99}, cfg, NewRand(5))
	require.NoError(t, err)
	assert.Equal(t, TierManual, out.Tier())
}

func TestEvaluateRejectsInvertedRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Table.Growth.Limits.Follow = IntRange{Low: 9, High: 2}

	_, err := Evaluate(Summary{}, cfg, NewRand(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "growth")
}

func TestOutcomeAccessorsReturnCopies(t *testing.T) {
	out := NewOutcome(TierCruise, map[Quota]int{QuotaFollow: 4}, map[Action]float64{ActionFeedLike: 0.5})

	l := out.Limits()
	l[QuotaFollow] = 99
	assert.Equal(t, 4, out.Limit(QuotaFollow))
	assert.Equal(t, 0, out.Limit(QuotaConnection))
}

type fakeHistory struct {
	days  int
	score float64
}

func (f fakeHistory) DaysActive() int           { return f.days }
func (f fakeHistory) LatestTotalScore() float64 { return f.score }

func TestSummarize(t *testing.T) {
	s := Summarize(fakeHistory{days: 4, score: 61.5})
	assert.Equal(t, Summary{DaysActive: 4, LastScore: 61.5}, s)
}

func TestLoadTableOverridesOneTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	body := `
elite:
  limits:
    connection: {low: 1, high: 2}
    follow: {low: 1, high: 2}
    profiles_scan: {low: 1, high: 2}
    feed_posts: {low: 1, high: 2}
  probabilities:
    feed_like: {low: 0.1, high: 0.2}
    feed_comment: {low: 0.1, high: 0.2}
    group_like: {low: 0.1, high: 0.2}
    group_comment: {low: 0.1, high: 0.2}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, IntRange{1, 2}, tbl.Elite.Limits.Connection)
	assert.Equal(t, DefaultTable().Warmup, tbl.Warmup)
}

func TestLoadTableRejectsBadProbability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	body := "warmup:\n  probabilities:\n    feed_like: {low: 0.5, high: 1.5}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadTable(path)
	require.Error(t, err)
}
