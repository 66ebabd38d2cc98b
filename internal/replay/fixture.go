package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
)

// #region fixture-types
// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description   string            `json:"description"`
	Seed          uint64            `json:"seed"`
	Config        FixtureConfig     `json:"config"`
	Days          []FixtureDay      `json:"days"`
	ExpectedTiers []regulation.Tier `json:"expected_tiers"`
}

// FixtureConfig overrides the stock regulation config. Zero values keep the default.
type FixtureConfig struct {
	ManualOnly          bool     `json:"manual_only"`
	WarmupDays          int      `json:"warmup_days"`
	GrowthDays          int      `json:"growth_days"`
	EliteScore          float64  `json:"elite_score"`
	CooldownProbability *float64 `json:"cooldown_probability"`
}

// FixtureDay is one daily reading.
type FixtureDay struct {
	Date               string             `json:"date"`
	TotalScore         float64            `json:"total_score"`
	Components         map[string]float64 `json:"components"`
	TotalRelationships int                `json:"total_relationships"`
}

// #endregion fixture-types

// #region fixture-loader
// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToDays converts the fixture readings to domain days.
func (f *Fixture) ToDays() ([]Day, error) {
	days := make([]Day, len(f.Days))
	for i, fd := range f.Days {
		date, err := time.Parse(history.DateLayout, fd.Date)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", i, err)
		}
		days[i] = Day{
			Date:               date,
			TotalScore:         fd.TotalScore,
			Components:         fd.Components,
			TotalRelationships: fd.TotalRelationships,
		}
	}
	return days, nil
}

// ToRegulationConfig applies the fixture overrides to the stock config.
func (fc *FixtureConfig) ToRegulationConfig() regulation.Config {
	cfg := regulation.DefaultConfig()
	cfg.AutoRegulate = !fc.ManualOnly
	if fc.WarmupDays > 0 {
		cfg.Thresholds.WarmupDays = fc.WarmupDays
	}
	if fc.GrowthDays > 0 {
		cfg.Thresholds.GrowthDays = fc.GrowthDays
	}
	if fc.EliteScore > 0 {
		cfg.Thresholds.EliteScore = fc.EliteScore
	}
	if fc.CooldownProbability != nil {
		cfg.CooldownProbability = *fc.CooldownProbability
	}
	return cfg
}

// #endregion fixture-loader

// #region fixture-export
// NewFixture captures series as a fixture whose expected tiers are the ones a
// replay with cfg and seed produces today. Only regulation settings a fixture
// can carry are kept.
func NewFixture(description string, series history.Series, cfg regulation.Config, seed uint64) *Fixture {
	f := &Fixture{
		Description: description,
		Seed:        seed,
		Config: FixtureConfig{
			ManualOnly:          !cfg.AutoRegulate,
			WarmupDays:          cfg.Thresholds.WarmupDays,
			GrowthDays:          cfg.Thresholds.GrowthDays,
			EliteScore:          cfg.Thresholds.EliteScore,
			CooldownProbability: &cfg.CooldownProbability,
		},
		Days: make([]FixtureDay, len(series)),
	}
	for i, d := range FromSeries(series) {
		f.Days[i] = FixtureDay{
			Date:               d.Date.Format(history.DateLayout),
			TotalScore:         d.TotalScore,
			Components:         d.Components,
			TotalRelationships: d.TotalRelationships,
		}
	}

	results, _ := Replay(FromSeries(series), f.Config.ToRegulationConfig(), regulation.NewRand(seed))
	f.ExpectedTiers = make([]regulation.Tier, len(results))
	for i, r := range results {
		f.ExpectedTiers[i] = r.Tier
	}
	return f
}

// Save writes the fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-export
