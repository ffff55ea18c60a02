// Package cli wires configuration, logging, the asset root, the HTTP
// server and the launcher into the axoserve command.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tmacphee13/axoserve/internal/config"
)

type rootOptions struct {
	configFile string
	port       int
	assetRoot  string
}

// load reads configuration and applies flag overrides on top.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: o.configFile})
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = o.port
	}
	if cmd.Flags().Changed("asset-root") {
		cfg.AssetRoot = o.assetRoot
	}
	return cfg, nil
}

// NewRootCommand builds the command tree. Running the root command alone
// is the same as "serve".
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "axoserve",
		Short:         "Serve a built single-page application and its JSON API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default $CONFIG_PATH)")
	root.PersistentFlags().IntVar(&opts.port, "port", 0, "listen port (overrides $PORT)")
	root.PersistentFlags().StringVar(&opts.assetRoot, "asset-root", "", "directory holding the built bundle (overrides $ASSET_ROOT)")

	root.AddCommand(newServeCommand(opts), newConfigCommand(opts))
	return root
}

// Execute runs the command tree until SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
