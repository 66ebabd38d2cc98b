package regulation

import "fmt"

// #region names
// Quota names a per-session integer cap.
type Quota string

const (
	QuotaConnection   Quota = "connection"
	QuotaFollow       Quota = "follow"
	QuotaProfilesScan Quota = "profiles_scan"
	QuotaFeedPosts    Quota = "feed_posts"
)

// Quotas lists every quota in sampling order.
var Quotas = []Quota{QuotaConnection, QuotaFollow, QuotaProfilesScan, QuotaFeedPosts}

// Action names a probability-gated engagement.
type Action string

const (
	ActionFeedLike     Action = "feed_like"
	ActionFeedComment  Action = "feed_comment"
	ActionGroupLike    Action = "group_like"
	ActionGroupComment Action = "group_comment"
)

// Actions lists every probability in sampling order.
var Actions = []Action{ActionFeedLike, ActionFeedComment, ActionGroupLike, ActionGroupComment}

// #endregion names

// #region tier
// Tier is a named regulation regime selected from history.
type Tier string

const (
	TierWarmup Tier = "warmup"
	TierGrowth Tier = "growth"
	TierElite  Tier = "elite"
	TierCruise Tier = "cruise"
	TierManual Tier = "manual" // auto-regulation disabled
)

// #endregion tier

// #region ranges
// IntRange is an inclusive integer sampling range.
type IntRange struct {
	Low  int `yaml:"low"`
	High int `yaml:"high"`
}

// FloatRange is a closed float sampling range.
type FloatRange struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// LimitRanges holds one range per quota.
type LimitRanges struct {
	Connection   IntRange `yaml:"connection"`
	Follow       IntRange `yaml:"follow"`
	ProfilesScan IntRange `yaml:"profiles_scan"`
	FeedPosts    IntRange `yaml:"feed_posts"`
}

// Range returns the range configured for q.
func (l LimitRanges) Range(q Quota) IntRange {
	switch q {
	case QuotaConnection:
		return l.Connection
	case QuotaFollow:
		return l.Follow
	case QuotaProfilesScan:
		return l.ProfilesScan
	case QuotaFeedPosts:
		return l.FeedPosts
	}
	return IntRange{}
}

// ProbabilityRanges holds one range per engagement action.
type ProbabilityRanges struct {
	FeedLike     FloatRange `yaml:"feed_like"`
	FeedComment  FloatRange `yaml:"feed_comment"`
	GroupLike    FloatRange `yaml:"group_like"`
	GroupComment FloatRange `yaml:"group_comment"`
}

// Range returns the range configured for a.
func (p ProbabilityRanges) Range(a Action) FloatRange {
	switch a {
	case ActionFeedLike:
		return p.FeedLike
	case ActionFeedComment:
		return p.FeedComment
	case ActionGroupLike:
		return p.GroupLike
	case ActionGroupComment:
		return p.GroupComment
	}
	return FloatRange{}
}

// #endregion ranges

// #region profile
// Profile is the full range table of one tier.
type Profile struct {
	Limits        LimitRanges       `yaml:"limits"`
	Probabilities ProbabilityRanges `yaml:"probabilities"`
}

// Validate rejects inverted ranges, negative limits and probabilities outside [0,1].
func (p Profile) Validate() error {
	for _, q := range Quotas {
		r := p.Limits.Range(q)
		if r.Low < 0 || r.High < r.Low {
			return fmt.Errorf("limit %s: invalid range [%d, %d]", q, r.Low, r.High)
		}
	}
	for _, a := range Actions {
		r := p.Probabilities.Range(a)
		if r.Low < 0 || r.High > 1 || r.High < r.Low {
			return fmt.Errorf("probability %s: invalid range [%.2f, %.2f]", a, r.Low, r.High)
		}
	}
	return nil
}

// #endregion profile

// #region table
// Table holds one profile per tier.
type Table struct {
	Warmup Profile `yaml:"warmup"`
	Growth Profile `yaml:"growth"`
	Elite  Profile `yaml:"elite"`
	Cruise Profile `yaml:"cruise"`
	Manual Profile `yaml:"manual"`
}

// Profile returns the profile for tier t. Unknown tiers fall back to warmup.
func (t Table) Profile(tier Tier) Profile {
	switch tier {
	case TierGrowth:
		return t.Growth
	case TierElite:
		return t.Elite
	case TierCruise:
		return t.Cruise
	case TierManual:
		return t.Manual
	}
	return t.Warmup
}

// Validate checks every profile of the table.
func (t Table) Validate() error {
	for _, tier := range []Tier{TierWarmup, TierGrowth, TierElite, TierCruise, TierManual} {
		if err := t.Profile(tier).Validate(); err != nil {
			return fmt.Errorf("tier %s: %w", tier, err)
		}
	}
	return nil
}

// DefaultTable returns the stock ranges. Elite is the most permissive, warmup the
// most conservative.
func DefaultTable() Table {
	return Table{
		Warmup: Profile{
			Limits: LimitRanges{
				Connection:   IntRange{3, 6},
				Follow:       IntRange{5, 8},
				ProfilesScan: IntRange{10, 15},
				FeedPosts:    IntRange{10, 15},
			},
			Probabilities: ProbabilityRanges{
				FeedLike:     FloatRange{0.30, 0.50},
				FeedComment:  FloatRange{0.05, 0.15},
				GroupLike:    FloatRange{0.40, 0.60},
				GroupComment: FloatRange{0.05, 0.10},
			},
		},
		Growth: Profile{
			Limits: LimitRanges{
				Connection:   IntRange{6, 10},
				Follow:       IntRange{8, 12},
				ProfilesScan: IntRange{15, 25},
				FeedPosts:    IntRange{15, 20},
			},
			Probabilities: ProbabilityRanges{
				FeedLike:     FloatRange{0.45, 0.65},
				FeedComment:  FloatRange{0.15, 0.25},
				GroupLike:    FloatRange{0.50, 0.70},
				GroupComment: FloatRange{0.10, 0.20},
			},
		},
		Cruise: Profile{
			Limits: LimitRanges{
				Connection:   IntRange{10, 15},
				Follow:       IntRange{12, 18},
				ProfilesScan: IntRange{30, 45},
				FeedPosts:    IntRange{20, 30},
			},
			Probabilities: ProbabilityRanges{
				FeedLike:     FloatRange{0.50, 0.70},
				FeedComment:  FloatRange{0.25, 0.35},
				GroupLike:    FloatRange{0.60, 0.80},
				GroupComment: FloatRange{0.20, 0.30},
			},
		},
		Elite: Profile{
			Limits: LimitRanges{
				Connection:   IntRange{15, 20},
				Follow:       IntRange{15, 20},
				ProfilesScan: IntRange{40, 60},
				FeedPosts:    IntRange{30, 50},
			},
			Probabilities: ProbabilityRanges{
				FeedLike:     FloatRange{0.60, 0.80},
				FeedComment:  FloatRange{0.35, 0.50},
				GroupLike:    FloatRange{0.70, 0.90},
				GroupComment: FloatRange{0.30, 0.50},
			},
		},
		Manual: Profile{
			Limits: LimitRanges{
				Connection:   IntRange{5, 10},
				Follow:       IntRange{10, 15},
				ProfilesScan: IntRange{20, 30},
				FeedPosts:    IntRange{20, 30},
			},
			Probabilities: ProbabilityRanges{
				FeedLike:     FloatRange{0.40, 0.60},
				FeedComment:  FloatRange{0.25, 0.30},
				GroupLike:    FloatRange{0.50, 0.70},
				GroupComment: FloatRange{0.10, 0.20},
			},
		},
	}
}

// #endregion table

// #region config
// Thresholds define the tier ladder.
type Thresholds struct {
	WarmupDays int     // warmup while days active < WarmupDays
	GrowthDays int     // growth while days active < GrowthDays
	EliteScore float64 // elite once last score > EliteScore
}

// Config holds every input of Evaluate besides the history summary.
type Config struct {
	Table               Table
	Thresholds          Thresholds
	AutoRegulate        bool
	CooldownProbability float64 // chance per cooldown quota of being forced to 0
	CooldownQuotas      []Quota
}

// DefaultConfig returns the stock ladder and table with auto-regulation on.
func DefaultConfig() Config {
	return Config{
		Table: DefaultTable(),
		Thresholds: Thresholds{
			WarmupDays: 3,
			GrowthDays: 14,
			EliteScore: 70,
		},
		AutoRegulate:        true,
		CooldownProbability: 0.10,
		CooldownQuotas:      []Quota{QuotaConnection, QuotaFollow},
	}
}

// #endregion config

// #region summary
// Summary is the slice of history the policy reads.
type Summary struct {
	DaysActive int
	LastScore  float64
}

// HistoryView is anything that can report days active and the latest score.
type HistoryView interface {
	DaysActive() int
	LatestTotalScore() float64
}

// Summarize reads a Summary from a history view.
func Summarize(h HistoryView) Summary {
	return Summary{DaysActive: h.DaysActive(), LastScore: h.LatestTotalScore()}
}

// #endregion summary
