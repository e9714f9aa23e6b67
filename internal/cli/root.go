package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/RocketMan-System/rocketman-service/internal/config"
)

// NewRootCmd builds the rocketman-service command tree.
func NewRootCmd() *cobra.Command {
	var (
		configFile  string
		controlAddr string
	)

	root := &cobra.Command{
		Use:     "rocketman-service",
		Short:   "Supervises the RocketMan tunnel over a local control API",
		Version: buildVersion(),
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML configuration file (defaults apply when omitted)")
	root.PersistentFlags().StringVar(&controlAddr, "addr", config.DefaultControlAddr, "Control API address")

	ctx := &context{
		configFile:  &configFile,
		controlAddr: &controlAddr,
		flags:       root.PersistentFlags(),
	}
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newStartCmd(ctx))
	root.AddCommand(newStopCmd(ctx))
	root.AddCommand(newStatusCmd(ctx))
	root.AddCommand(newPingCmd(ctx))
	root.AddCommand(newTuiCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// context carries flag storage shared by the subcommands.
type context struct {
	configFile  *string
	controlAddr *string
	flags       *pflag.FlagSet
}

// loadConfig resolves the effective configuration: file when provided,
// contract defaults otherwise. An --addr passed on the command line takes
// precedence either way, even when it spells out the default address.
func (c *context) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *c.configFile != "" {
		loaded, err := config.Load(*c.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.flags != nil && c.flags.Changed("addr") {
		cfg.ControlAddr = *c.controlAddr
	}
	return cfg, nil
}

func (c *context) addr() string {
	if *c.controlAddr != "" {
		return *c.controlAddr
	}
	return config.DefaultControlAddr
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
