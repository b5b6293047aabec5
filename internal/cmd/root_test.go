package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosskit/gloss/internal/config"
	"github.com/glosskit/gloss/pkg/manifest"
)

func TestSetVersionInfo(t *testing.T) {
	orig := versionInfo
	t.Cleanup(func() { versionInfo = orig })

	SetVersionInfo("1.2.3", "abc1234", "2026-08-25")

	assert.Equal(t, "1.2.3", versionInfo.Version)
	assert.Equal(t, "abc1234", versionInfo.Commit)
	assert.Equal(t, "2026-08-25", versionInfo.BuildDate)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, 0},
		{"plain error", errors.New("boom"), 1},
		{"exit error", exitError(foundry.ExitFileNotFound, "missing", nil), foundry.ExitFileNotFound},
		{"wrapped exit error", fmt.Errorf("outer: %w",
			exitError(foundry.ExitSignalInt, "stopped", nil)), foundry.ExitSignalInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	err := exitError(foundry.ExitFileReadError, "failed to read input", errors.New("permission denied"))
	assert.EqualError(t, err, "failed to read input: permission denied")

	bare := exitError(foundry.ExitInvalidArgument, "target language is required", nil)
	assert.EqualError(t, bare, "target language is required")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"translate", "jobs", "serve", "version"} {
		assert.True(t, names[want], "command %q should be registered", want)
	}
}

func TestApplyManifestOverlaysSettings(t *testing.T) {
	temp := 0.2
	cfg := &config.Config{}
	cfg.Translation.Provider = "gemini"
	cfg.Translation.GeminiAPIKey = "secret"
	cfg.Translation.Temperature = 0.7
	cfg.Pipeline.MaxChars = 6000

	m := &manifest.Manifest{}
	m.Translation.Provider = "openai"
	m.Translation.TargetLang = "de"
	m.Translation.Temperature = &temp
	m.ApplyDefaults()

	out := applyManifest(cfg, m)

	assert.Equal(t, "openai", out.Translation.Provider)
	assert.Equal(t, "de", out.Translation.TargetLang)
	assert.InDelta(t, 0.2, out.Translation.Temperature, 1e-9)
	assert.Equal(t, manifest.DefaultMaxChars, out.Pipeline.MaxChars)

	// API keys come from the environment, never the manifest.
	assert.Equal(t, "secret", out.Translation.GeminiAPIKey)

	// The input config is not mutated.
	require.Equal(t, "gemini", cfg.Translation.Provider)
	assert.InDelta(t, 0.7, cfg.Translation.Temperature, 1e-9)
}
