package cli

import (
	"github.com/spf13/cobra"

	"github.com/RocketMan-System/rocketman-service/internal/api"
)

func newStatusCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the tunnel state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(ctx.addr())
			result, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}
