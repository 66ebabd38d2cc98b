package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/danielpatrickdp/ssi-autopilot/internal/replay"
	"github.com/spf13/cobra"
)

// #region replay
type replayRow struct {
	Date              string                        `json:"date"`
	DaysActive        int                           `json:"days_active"`
	Tier              regulation.Tier               `json:"tier"`
	Limits            map[regulation.Quota]int      `json:"limits,omitempty"`
	Probabilities     map[regulation.Action]float64 `json:"probabilities,omitempty"`
	Cooldowns         []regulation.Quota            `json:"cooldowns,omitempty"`
	ScoreDelta        float64                       `json:"score_delta"`
	RelationshipDelta int                           `json:"relationship_delta"`
	Expected          regulation.Tier               `json:"expected,omitempty"`
	Error             string                        `json:"error,omitempty"`
}

type replayOutput struct {
	Days        []replayRow             `json:"days"`
	DaysPerTier map[regulation.Tier]int `json:"days_per_tier"`
	Cooldowns   int                     `json:"cooldowns"`
	FirstElite  string                  `json:"first_elite,omitempty"`
	ScoreChange float64                 `json:"score_change"`
	Mismatches  int                     `json:"mismatches"`
}

var errTierMismatch = errors.New("replay tiers differ from expected")

func newReplayCmd(a *app) *cobra.Command {
	var (
		fixture string
		seed    uint64
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the regulation policy over recorded history or a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, cfg, expected, err := a.replayInput(fixture, &seed)
			if err != nil {
				return err
			}
			results, final := replay.Replay(days, cfg, regulation.NewRand(seed))
			out := buildReplayOutput(results, replay.Summarize(results, final), expected)

			if jsonOut {
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				printReplay(cmd.OutOrStdout(), out)
			}
			if out.Mismatches > 0 {
				return fmt.Errorf("%w: %d of %d days", errTierMismatch, out.Mismatches, len(out.Days))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fixture, "fixture", "", "path to a JSON fixture (default: the recorded history)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default: fixture seed, then SSI_SEED)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// replayInput loads days from a fixture, or from history when fixture is
// empty. A zero *seed is filled from the fixture, then from config.
func (a *app) replayInput(fixture string, seed *uint64) ([]replay.Day, regulation.Config, []regulation.Tier, error) {
	if fixture != "" {
		f, err := replay.LoadFixture(fixture)
		if err != nil {
			return nil, regulation.Config{}, nil, err
		}
		days, err := f.ToDays()
		if err != nil {
			return nil, regulation.Config{}, nil, fmt.Errorf("fixture %s: %w", fixture, err)
		}
		if *seed == 0 {
			*seed = f.Seed
		}
		return days, f.Config.ToRegulationConfig(), f.ExpectedTiers, nil
	}

	store, err := history.Open(a.cfg.HistoryPath)
	if err != nil {
		return nil, regulation.Config{}, nil, err
	}
	cfg, err := a.regulationConfig()
	if err != nil {
		return nil, regulation.Config{}, nil, err
	}
	if *seed == 0 {
		*seed = a.cfg.Seed
	}
	return replay.FromSeries(store.Load()), cfg, nil, nil
}

func buildReplayOutput(results []replay.DayResult, sum replay.Summary, expected []regulation.Tier) replayOutput {
	out := replayOutput{
		Days:        make([]replayRow, len(results)),
		DaysPerTier: sum.DaysPerTier,
		Cooldowns:   sum.Cooldowns,
		ScoreChange: sum.ScoreChange,
	}
	if !sum.FirstElite.IsZero() {
		out.FirstElite = sum.FirstElite.Format(history.DateLayout)
	}
	for i, r := range results {
		row := replayRow{
			Date:              r.Date.Format(history.DateLayout),
			DaysActive:        r.DaysActive,
			Tier:              r.Tier,
			Limits:            r.Limits,
			Probabilities:     r.Probabilities,
			Cooldowns:         r.Cooldowns,
			ScoreDelta:        r.ScoreDelta,
			RelationshipDelta: r.RelationshipDelta,
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		if i < len(expected) {
			row.Expected = expected[i]
			if row.Expected != row.Tier {
				out.Mismatches++
			}
		}
		out.Days[i] = row
	}
	return out
}

func printReplay(w io.Writer, out replayOutput) {
	fmt.Fprintf(w, "%-10s  %4s  %-7s  %4s  %4s  %7s  %5s  %s\n",
		"Date", "Days", "Tier", "Conn", "Foll", "Delta", "Rels", "Note")
	fmt.Fprintf(w, "%-10s+-%4s+-%-7s+-%4s+-%4s+-%7s+-%5s+-%s\n",
		"----------", "----", "-------", "----", "----", "-------", "-----", "----")
	for _, r := range out.Days {
		note := ""
		switch {
		case r.Error != "":
			note = r.Error
		case r.Expected != "" && r.Expected != r.Tier:
			note = "expected " + string(r.Expected)
		case len(r.Cooldowns) > 0:
			note = fmt.Sprintf("cooldown %v", r.Cooldowns)
		}
		fmt.Fprintf(w, "%-10s  %4d  %-7s  %4d  %4d  %+7.2f  %5d  %s\n",
			r.Date, r.DaysActive, r.Tier,
			r.Limits[regulation.QuotaConnection], r.Limits[regulation.QuotaFollow],
			r.ScoreDelta, r.RelationshipDelta, note)
	}

	fmt.Fprintf(w, "\n--- Summary ---\n")
	fmt.Fprintf(w, "Days:         %d\n", len(out.Days))
	for _, t := range sortedKeys(out.DaysPerTier) {
		fmt.Fprintf(w, "  %-10s %d\n", t, out.DaysPerTier[t])
	}
	fmt.Fprintf(w, "Cooldowns:    %d\n", out.Cooldowns)
	if out.FirstElite != "" {
		fmt.Fprintf(w, "First elite:  %s\n", out.FirstElite)
	}
	fmt.Fprintf(w, "Score change: %+.2f\n", out.ScoreChange)
	if out.Mismatches > 0 {
		fmt.Fprintf(w, "Mismatches:   %d\n", out.Mismatches)
	}
}

// #endregion replay
