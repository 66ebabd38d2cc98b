package main

import (
	"fmt"
	"io"

	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/spf13/cobra"
)

// #region plan
type planView struct {
	Tier          regulation.Tier               `json:"tier"`
	DaysActive    int                           `json:"days_active"`
	LastScore     float64                       `json:"last_score"`
	Limits        map[regulation.Quota]int      `json:"limits"`
	Probabilities map[regulation.Action]float64 `json:"probabilities"`
	Cooldowns     []regulation.Quota            `json:"cooldowns"`
}

func newPlanCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the tier, limits and probabilities the next session would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _, err := a.plan(a.rootRand())
			if err != nil {
				return err
			}
			view := planView{
				Tier:          out.Tier(),
				DaysActive:    out.Summary().DaysActive,
				LastScore:     out.Summary().LastScore,
				Limits:        out.Limits(),
				Probabilities: out.Probabilities(),
				Cooldowns:     out.Cooldowns(),
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), view)
			}
			printPlan(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

func printPlan(w io.Writer, v planView) {
	fmt.Fprintf(w, "Tier:        %s\n", v.Tier)
	fmt.Fprintf(w, "Days active: %d\n", v.DaysActive)
	fmt.Fprintf(w, "Last score:  %.2f\n", v.LastScore)

	fmt.Fprintf(w, "\nLimits:\n")
	for _, q := range sortedKeys(v.Limits) {
		fmt.Fprintf(w, "  %-14s %4d\n", q, v.Limits[q])
	}
	fmt.Fprintf(w, "\nProbabilities:\n")
	for _, act := range sortedKeys(v.Probabilities) {
		fmt.Fprintf(w, "  %-14s %4.2f\n", act, v.Probabilities[act])
	}
	if len(v.Cooldowns) > 0 {
		fmt.Fprintf(w, "\nCooldown:    %v\n", v.Cooldowns)
	}
}

// #endregion plan
