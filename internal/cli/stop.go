package cli

import (
	"github.com/spf13/cobra"

	"github.com/RocketMan-System/rocketman-service/internal/api"
)

func newStopCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask a running service to stop the tunnel",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(ctx.addr())
			result, err := client.Stop(cmd.Context())
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}
