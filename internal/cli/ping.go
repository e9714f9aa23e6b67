package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RocketMan-System/rocketman-service/internal/api"
)

func newPingCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the control API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(ctx.addr())
			if err := client.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
