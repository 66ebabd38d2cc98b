package replay

import (
	"math/rand/v2"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/danielpatrickdp/ssi-autopilot/internal/snapshot"
)

// #region types
// Day is one recorded reading to replay.
type Day struct {
	Date               time.Time
	TotalScore         float64
	Components         map[string]float64
	TotalRelationships int
}

// DayResult is what the policy decided before the day and what the recorder
// made of its reading.
type DayResult struct {
	Date              time.Time
	DaysActive        int
	Tier              regulation.Tier
	Limits            map[regulation.Quota]int
	Probabilities     map[regulation.Action]float64
	Cooldowns         []regulation.Quota
	ScoreDelta        float64
	RelationshipDelta int
	Err               error // table failed validation
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalDays   int
	DaysPerTier map[regulation.Tier]int
	Cooldowns   int
	FirstElite  time.Time // zero if elite was never reached
	ScoreChange float64   // last minus first score
	Final       history.Series
}

// #endregion types

// #region replay
// Replay walks the days in order. Each day the policy is evaluated against the
// history recorded so far, then the day's reading is built into a snapshot and
// added to that history. Operates entirely in memory.
func Replay(days []Day, cfg regulation.Config, rng *rand.Rand) ([]DayResult, history.Series) {
	var series history.Series
	results := make([]DayResult, 0, len(days))

	for _, d := range days {
		day := history.Day(d.Date)
		res := DayResult{Date: day, DaysActive: series.DaysActive()}

		out, err := regulation.Evaluate(regulation.Summarize(series), cfg, rng)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.Tier = out.Tier()
		res.Limits = out.Limits()
		res.Probabilities = out.Probabilities()
		res.Cooldowns = out.Cooldowns()

		var prior *history.DailySnapshot
		if p, ok := series.MostRecentBefore(day); ok {
			prior = &p
		}
		reading := snapshot.Reading{TotalScore: d.TotalScore, Components: d.Components}
		snap := snapshot.Build(day, reading, snapshot.Counters{
			Limits:             res.Limits,
			Probabilities:      res.Probabilities,
			TotalRelationships: d.TotalRelationships,
		}, prior)
		res.ScoreDelta = snap.ScoreDelta
		res.RelationshipDelta = snap.RelationshipDelta

		series = series.Upsert(snap)
		results = append(results, res)
	}
	return results, series
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []DayResult, final history.Series) Summary {
	s := Summary{
		TotalDays:   len(results),
		DaysPerTier: make(map[regulation.Tier]int),
		Final:       final,
	}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		s.DaysPerTier[r.Tier]++
		s.Cooldowns += len(r.Cooldowns)
		if r.Tier == regulation.TierElite && s.FirstElite.IsZero() {
			s.FirstElite = r.Date
		}
	}
	if len(final) > 0 {
		s.ScoreChange = final[len(final)-1].TotalScore - final[0].TotalScore
	}
	return s
}

// FromSeries turns recorded history back into replayable days.
func FromSeries(series history.Series) []Day {
	days := make([]Day, len(series))
	for i, snap := range series {
		rels, _ := snap.Counter(history.TotalRelationships)
		days[i] = Day{
			Date:               snap.Date,
			TotalScore:         snap.TotalScore,
			Components:         snap.Components,
			TotalRelationships: rels,
		}
	}
	return days
}

// #endregion replay
