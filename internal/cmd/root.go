// Package cmd implements the gloss command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glosskit/gloss/internal/observability"
)

// versionInfo holds build-time version metadata, injected via
// SetVersionInfo from the main package.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command and the
// status server.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	rootLogLevel string
	rootQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "gloss",
	Short: "Resumable document translation pipeline",
	Long: `gloss translates large documents through LLM providers.

Documents are split into chunks, translated concurrently, and
reassembled in order. Progress is persisted after every chunk, so an
interrupted run resumes where it left off instead of re-spending
provider quota.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		observability.InitCLILogger(rootLogLevel, rootQuiet)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "Only log errors")
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context;
// long-running commands translate that into a cooperative stop.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	observability.Sync()
	return err
}

// cliError carries a process exit code alongside the error.
type cliError struct {
	code    int
	message string
	err     error
}

func (e *cliError) Error() string {
	if e.err == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.err)
}

func (e *cliError) Unwrap() error { return e.err }

// exitError creates an error that will cause the CLI to exit with the
// given code.
func exitError(code int, message string, err error) error {
	return &cliError{code: code, message: message, err: err}
}

// ExitCode resolves the process exit code for an error returned by
// Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// stdout is a helper so commands don't each reformat output plumbing.
func stdout(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stdout, format, args...)
}
