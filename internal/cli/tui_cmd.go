package cli

import (
	"github.com/spf13/cobra"

	"github.com/RocketMan-System/rocketman-service/internal/api"
	"github.com/RocketMan-System/rocketman-service/internal/tui"
)

func newTuiCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Watch the tunnel state interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := tui.New(api.NewClient(ctx.addr()))
			return ui.Run(cmd.Context())
		},
	}
}
