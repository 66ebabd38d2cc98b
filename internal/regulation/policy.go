package regulation

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// #region outcome
// Outcome is the per-session result of the policy. It is immutable: accessors
// return copies.
type Outcome struct {
	tier          Tier
	summary       Summary
	limits        map[Quota]int
	probabilities map[Action]float64
	cooldowns     []Quota
}

// NewOutcome builds an outcome from explicit values. Missing names read as zero.
func NewOutcome(tier Tier, limits map[Quota]int, probabilities map[Action]float64) Outcome {
	return Outcome{
		tier:          tier,
		limits:        maps.Clone(limits),
		probabilities: maps.Clone(probabilities),
	}
}

// Tier returns the selected tier.
func (o Outcome) Tier() Tier { return o.tier }

// Summary returns the history inputs the outcome was computed from.
func (o Outcome) Summary() Summary { return o.summary }

// Limit returns the sampled limit for q.
func (o Outcome) Limit(q Quota) int { return o.limits[q] }

// Probability returns the sampled probability for a.
func (o Outcome) Probability(a Action) float64 { return o.probabilities[a] }

// Limits returns a copy of all sampled limits.
func (o Outcome) Limits() map[Quota]int { return maps.Clone(o.limits) }

// Probabilities returns a copy of all sampled probabilities.
func (o Outcome) Probabilities() map[Action]float64 { return maps.Clone(o.probabilities) }

// Cooldowns returns the quotas forced to zero this session.
func (o Outcome) Cooldowns() []Quota { return slices.Clone(o.cooldowns) }

// #endregion outcome

// #region select-tier
// SelectTier walks the tier ladder; the first matching rule wins.
func SelectTier(daysActive int, lastScore float64, th Thresholds) Tier {
	if math.IsNaN(lastScore) || math.IsInf(lastScore, 0) {
		lastScore = 0
	}
	switch {
	case daysActive < th.WarmupDays:
		return TierWarmup
	case daysActive < th.GrowthDays:
		return TierGrowth
	case lastScore > th.EliteScore:
		return TierElite
	default:
		return TierCruise
	}
}

// #endregion select-tier

// #region evaluate
// Evaluate is a pure function of (summary, config, rng state). It selects a tier,
// samples every quota and probability once, then applies the cooldown override.
func Evaluate(summary Summary, cfg Config, rng *rand.Rand) (Outcome, error) {
	if err := cfg.Table.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("regulation table: %w", err)
	}

	tier := TierManual
	if cfg.AutoRegulate {
		tier = SelectTier(summary.DaysActive, summary.LastScore, cfg.Thresholds)
	}
	profile := cfg.Table.Profile(tier)

	limits := make(map[Quota]int, len(Quotas))
	for _, q := range Quotas {
		limits[q] = sampleInt(rng, profile.Limits.Range(q))
	}

	probs := make(map[Action]float64, len(Actions))
	for _, a := range Actions {
		probs[a] = sampleFloat(rng, profile.Probabilities.Range(a))
	}

	// Cooldown runs last so it overrides the sampled value.
	var cooled []Quota
	for _, q := range cfg.CooldownQuotas {
		if rng.Float64() < cfg.CooldownProbability {
			limits[q] = 0
			cooled = append(cooled, q)
		}
	}

	return Outcome{
		tier:          tier,
		summary:       summary,
		limits:        limits,
		probabilities: probs,
		cooldowns:     cooled,
	}, nil
}

// NewRand returns a deterministic source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func sampleInt(rng *rand.Rand, r IntRange) int {
	return r.Low + rng.IntN(r.High-r.Low+1)
}

func sampleFloat(rng *rand.Rand, r FloatRange) float64 {
	return r.Low + rng.Float64()*(r.High-r.Low)
}

// #endregion evaluate

// #region load-table
// LoadTable reads a YAML tier table. Tiers missing from the file keep their defaults.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read tier table %s: %w", path, err)
	}
	t := DefaultTable()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse tier table %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, fmt.Errorf("tier table %s: %w", path, err)
	}
	return t, nil
}

// #endregion load-table
