package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Tmacphee13/axoserve/internal/assetroot"
	"github.com/Tmacphee13/axoserve/internal/launcher"
	"github.com/Tmacphee13/axoserve/internal/logging"
	"github.com/Tmacphee13/axoserve/internal/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cmd.OutOrStdout(), cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Development() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	root, err := assetroot.Open(cfg.AssetRoot, cfg.ShellFile, cfg.AssetsDir)
	if err != nil {
		return err
	}
	defer root.Close()

	if !root.HasShell() {
		logger.Printf("serve: WARNING: %s missing from %s; page requests will answer 500", cfg.ShellFile, root.Dir())
	}
	logger.Printf("serve: serving %s on %s (mode=%s)", root.Dir(), cfg.Addr(), cfg.Mode)

	srv := server.New(root, server.Options{
		AssetMaxAge: cfg.AssetMaxAge,
		Logger:      logger,
	})
	return launcher.New(cfg, srv.Router(), logger).Run(cmd.Context())
}
