package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glosskit/gloss/internal/config"
	"github.com/glosskit/gloss/internal/observability"
	"github.com/glosskit/gloss/internal/server"
)

var (
	serveHost    string
	servePort    int
	serveJobsDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve job progress over HTTP",
	Long: `Serve a read-only HTTP API over the progress records in a directory,
for watching long-running translation runs from elsewhere.`,
	Example: `  gloss serve --port 8080 --jobs-dir ./translated`,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (default from config)")
	serveCmd.Flags().StringVar(&serveJobsDir, "jobs-dir", ".", "Directory scanned for progress records")
}

func runServe(cmd *cobra.Command, _ []string) error {
	overrides := map[string]any{}
	if cmd.Flags().Changed("host") {
		overrides["server.host"] = serveHost
	}
	if cmd.Flags().Changed("port") {
		overrides["server.port"] = servePort
	}

	cfg, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "failed to load configuration", err)
	}

	log, err := observability.NewServerLogger(cfg.Logging.Level)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "failed to initialize server logger", err)
	}
	defer log.Sync() //nolint:errcheck

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithJobsDir(serveJobsDir),
		server.WithVersion(versionInfo.Version),
		server.WithLogger(log),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)

	log.Info("Starting status server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("jobs_dir", serveJobsDir))

	if err := srv.Start(cmd.Context()); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "server failed", err)
	}
	return nil
}
