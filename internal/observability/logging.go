// Package observability holds the process-wide structured logger used by
// the CLI and server surfaces.
//
// Library packages under pkg/ take a *zap.Logger explicitly and default
// to a no-op logger; only the binary entrypoints reach for CLILogger.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger. It is a no-op until
// InitCLILogger runs, so packages can log unconditionally during early
// startup and in tests.
var CLILogger = zap.NewNop()

// InitCLILogger configures CLILogger for terminal use.
//
// level accepts the zap level names (debug, info, warn, error). An
// unknown level falls back to info. quiet raises the threshold to error
// regardless of level, for scripting use where records on stdout are the
// only wanted output.
func InitCLILogger(level string, quiet bool) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if quiet && lvl < zapcore.ErrorLevel {
		lvl = zapcore.ErrorLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	// Logs go to stderr; stdout is reserved for records and command
	// output.
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	CLILogger = zap.New(core)
}

// NewServerLogger builds a JSON logger for the long-running server
// surface.
func NewServerLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Sync flushes buffered log entries. Safe to call on the no-op logger.
func Sync() {
	_ = CLILogger.Sync()
}
