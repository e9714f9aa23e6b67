package cli

import (
	"github.com/spf13/cobra"

	"github.com/RocketMan-System/rocketman-service/internal/daemon"
	"github.com/RocketMan-System/rocketman-service/internal/logging"
)

func newRunCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the tunnel service in the foreground",
		Long: "Runs the control API and the companion health monitor until " +
			"interrupted, supervising the sing-box tunnel on demand.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			logger.Info("rocketman tunnel service starting", "control", cfg.ControlAddr)

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			return d.Run(cmd.Context())
		},
	}
}
