package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/session"
	"github.com/spf13/cobra"
)

// #region run
func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run today's engagement session and record the SSI snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, st *stack) (session.Result, error) {
				return st.runner.Run(ctx, st.session, time.Now())
			})
		},
	}
}

// #endregion run

// #region record
func newRecordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Read the SSI pages and record today's snapshot without engaging",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, st *stack) (session.Result, error) {
				return st.runner.Record(ctx, st.session, time.Now())
			})
		},
	}
}

// #endregion record

func (a *app) withSession(cmd *cobra.Command, fn func(context.Context, *stack) (session.Result, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	res, err := fn(ctx, st)
	printResult(cmd.OutOrStdout(), res)
	return err
}

func printResult(w io.Writer, res session.Result) {
	if res.SessionID == "" {
		return
	}
	t := res.Tally
	snap := res.Snapshot
	fmt.Fprintf(w, "Session:       %s (%s)\n", res.SessionID, res.Decision)
	fmt.Fprintf(w, "Date:          %s\n", snap.Date.Format(history.DateLayout))
	fmt.Fprintf(w, "SSI:           %.2f (%+.2f)\n", snap.TotalScore, snap.ScoreDelta)
	fmt.Fprintf(w, "Relationships: +%d\n", snap.RelationshipDelta)
	fmt.Fprintf(w, "Connections:   %d\n", t.ConnectionsSent)
	fmt.Fprintf(w, "Follows:       %d\n", t.FollowsDone)
	fmt.Fprintf(w, "Profiles:      %d\n", t.ProfilesVisited)
	fmt.Fprintf(w, "Feed posts:    %d\n", t.FeedPostsProcessed)
	fmt.Fprintf(w, "Likes:         %d feed, %d group\n", t.FeedLikes, t.GroupLikes)
	fmt.Fprintf(w, "Comments:      %d feed, %d group\n", t.FeedComments, t.GroupComments)
	fmt.Fprintf(w, "Withdrawn:     %d\n", t.WithdrawnCount)
	fmt.Fprintf(w, "Endorsements:  %d\n", t.Endorsements)
	fmt.Fprintf(w, "Congratulated: %d\n", t.Congratulations)
}
