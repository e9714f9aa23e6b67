package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/RocketMan-System/rocketman-service/internal/api"
)

func newStartCmd(ctx *context) *cobra.Command {
	var username, appname string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Ask a running service to start the tunnel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || appname == "" {
				return errors.New("both --username and --appname are required")
			}
			client := api.NewClient(ctx.addr())
			result, err := client.Start(cmd.Context(), username, appname)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "User whose application data holds the tunnel files")
	cmd.Flags().StringVar(&appname, "appname", "", "Application name owning the tunnel files")
	return cmd
}
