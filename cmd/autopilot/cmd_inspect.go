package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/ledger"
	"github.com/danielpatrickdp/ssi-autopilot/internal/logging"
	"github.com/spf13/cobra"
)

// #region inspect
type historyRow struct {
	Date              string             `json:"date"`
	TotalScore        float64            `json:"total_score"`
	ScoreDelta        float64            `json:"score_delta"`
	RelationshipDelta int                `json:"relationship_delta"`
	Connections       int                `json:"connections_sent"`
	Components        map[string]float64 `json:"components"`
}

type decisionRow struct {
	SessionID  string  `json:"session_id"`
	Tier       string  `json:"tier"`
	DaysActive int     `json:"days_active"`
	LastScore  float64 `json:"last_score"`
	Cooldowns  string  `json:"cooldowns,omitempty"`
	Decision   string  `json:"decision"`
	Reason     string  `json:"reason,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

type inspectOutput struct {
	History   []historyRow  `json:"history"`
	Decisions []decisionRow `json:"decisions"`
}

func newInspectCmd(a *app) *cobra.Command {
	var (
		last    int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show recent SSI history and session decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.inspect(last)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), out)
			}
			printInspect(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&last, "last", 14, "show N most recent days and sessions")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

func (a *app) inspect(last int) (inspectOutput, error) {
	out := inspectOutput{History: []historyRow{}, Decisions: []decisionRow{}}

	store, err := history.Open(a.cfg.HistoryPath)
	if err != nil {
		return out, err
	}
	series := store.Load()
	if last > 0 && len(series) > last {
		series = series[len(series)-last:]
	}
	for _, snap := range series {
		sent, _ := snap.Counter(history.ConnectionsSent)
		out.History = append(out.History, historyRow{
			Date:              snap.Date.Format(history.DateLayout),
			TotalScore:        snap.TotalScore,
			ScoreDelta:        snap.ScoreDelta,
			RelationshipDelta: snap.RelationshipDelta,
			Connections:       sent,
			Components:        snap.Components,
		})
	}

	if _, err := os.Stat(a.cfg.LedgerPath); err != nil {
		return out, nil
	}
	led, err := ledger.NewStore(a.cfg.LedgerPath)
	if err != nil {
		return out, err
	}
	defer led.Close()
	entries, err := logging.ListDecisions(led.DB(), last)
	if err != nil {
		return out, err
	}
	// ListDecisions returns newest first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		out.Decisions = append(out.Decisions, decisionRow{
			SessionID:  e.SessionID,
			Tier:       e.Tier,
			DaysActive: e.DaysActive,
			LastScore:  e.LastScore,
			Cooldowns:  e.Cooldowns,
			Decision:   string(e.Decision),
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return out, nil
}

func printInspect(w io.Writer, out inspectOutput) {
	if len(out.History) == 0 {
		fmt.Fprintln(w, "no history recorded")
	} else {
		fmt.Fprintf(w, "%-10s  %6s  %7s  %5s  %5s\n", "Date", "SSI", "Delta", "Rels", "Conn")
		fmt.Fprintf(w, "%-10s+-%6s+-%7s+-%5s+-%5s\n", "----------", "------", "-------", "-----", "-----")
		for _, r := range out.History {
			fmt.Fprintf(w, "%-10s  %6.2f  %+7.2f  %5d  %5d\n",
				r.Date, r.TotalScore, r.ScoreDelta, r.RelationshipDelta, r.Connections)
		}
	}

	if len(out.Decisions) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%-8s  %-7s  %4s  %6s  %-6s  %s\n", "Session", "Tier", "Days", "Score", "Action", "Reason")
	fmt.Fprintf(w, "%-8s+-%-7s+-%4s+-%6s+-%-6s+-%s\n", "--------", "-------", "----", "------", "------", "------")
	for _, d := range out.Decisions {
		reason := d.Reason
		if d.Cooldowns != "" {
			reason += " [cooldown " + d.Cooldowns + "]"
		}
		fmt.Fprintf(w, "%-8s  %-7s  %4d  %6.2f  %-6s  %s\n",
			shortID(d.SessionID), d.Tier, d.DaysActive, d.LastScore, d.Decision, reason)
	}
}

// #endregion inspect
