// Command autopilot runs daily LinkedIn engagement sessions regulated by the
// recorded Social Selling Index history.
package main

import (
	"os"

	"github.com/danielpatrickdp/ssi-autopilot/internal/config"
	"github.com/danielpatrickdp/ssi-autopilot/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time.
var version = "dev"

// #region root
func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "autopilot",
		Short:         "SSI-regulated LinkedIn engagement autopilot",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return logging.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
		},
	}

	root.AddCommand(
		newRunCmd(a),
		newRecordCmd(a),
		newPlanCmd(a),
		newInspectCmd(a),
		newReplayCmd(a),
		newServeCmd(a),
		newExportCmd(a),
	)
	return root
}

// #endregion root

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("autopilot failed")
		os.Exit(1)
	}
}
