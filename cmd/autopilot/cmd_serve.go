package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/ledger"
	"github.com/danielpatrickdp/ssi-autopilot/internal/replay"
	"github.com/danielpatrickdp/ssi-autopilot/internal/report"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// #region serve
func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the SSI dashboard API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.DashboardAddr
			}
			rc, err := a.regulationConfig()
			if err != nil {
				return err
			}
			led, err := ledger.NewStore(a.cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer led.Close()

			srv := &http.Server{
				Addr: addr,
				Handler: report.NewRouter(report.Sources{
					History:    a.loadHistory,
					Ledger:     led,
					Regulation: rc,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Msg("dashboard listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			log.Info().Msg("shutting down dashboard")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: SSI_DASHBOARD_ADDR)")
	return cmd
}

// loadHistory reopens the history file so sessions recorded by other
// processes are picked up.
func (a *app) loadHistory() (history.Series, error) {
	store, err := history.Open(a.cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	return store.Load(), nil
}

// #endregion serve

// #region export
func newExportCmd(a *app) *cobra.Command {
	var (
		outPath string
		last    int
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:   "export-fixture",
		Short: "Write the recorded history as a replay fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.loadHistory()
			if err != nil {
				return err
			}
			if last > 0 && len(series) > last {
				series = series[len(series)-last:]
			}
			if len(series) == 0 {
				return errors.New("export fixture: no history recorded")
			}
			rc, err := a.regulationConfig()
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = a.cfg.Seed
			}
			f := replay.NewFixture("exported from "+a.cfg.HistoryPath, series, rc, seed)
			if err := f.Save(outPath); err != nil {
				return err
			}
			log.Info().Str("path", outPath).Int("days", len(f.Days)).Msg("fixture exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output fixture JSON path")
	cmd.Flags().IntVar(&last, "last", 0, "export only the N most recent days")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed recorded in the fixture (default: SSI_SEED)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// #endregion export
