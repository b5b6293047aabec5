package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for gloss environment variables.
const EnvPrefix = "GLOSS"

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envAliases binds conventional short env var names to config keys, in
// addition to the automatic GLOSS_SECTION_KEY mapping. Provider API keys
// also honor the vendors' own variable names.
var envAliases = map[string][]string{
	"server.host":             {"GLOSS_HOST"},
	"server.port":             {"GLOSS_PORT"},
	"server.read_timeout":     {"GLOSS_READ_TIMEOUT"},
	"server.write_timeout":    {"GLOSS_WRITE_TIMEOUT"},
	"server.shutdown_timeout": {"GLOSS_SHUTDOWN_TIMEOUT"},
	"logging.level":           {"GLOSS_LOG_LEVEL"},

	"translation.provider":       {"GLOSS_PROVIDER"},
	"translation.model":          {"GLOSS_MODEL"},
	"translation.target_lang":    {"GLOSS_TARGET_LANG"},
	"translation.gemini_api_key": {"GLOSS_GEMINI_API_KEY", "GEMINI_API_KEY"},
	"translation.openai_api_key": {"GLOSS_OPENAI_API_KEY", "OPENAI_API_KEY"},

	"pipeline.max_workers":         {"GLOSS_MAX_WORKERS"},
	"pipeline.max_chars":           {"GLOSS_MAX_CHARS"},
	"pipeline.requests_per_minute": {"GLOSS_REQUESTS_PER_MINUTE"},
}

// Load reads configuration and caches it for GetConfig.
//
// Optional runtime overrides are nested maps mirroring the config
// structure; they take precedence over environment variables and any
// config file. Load may be called again to reload.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	_ = ctx

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	for _, o := range overrides {
		applyOverrides(v, "", o)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil if
// Load has not run.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// readConfigFile loads an optional config file. GLOSS_CONFIG names an
// explicit file, which must exist; otherwise gloss.yaml is searched for
// in the working directory and the user config directory.
func readConfigFile(v *viper.Viper) error {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("gloss")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(dir + "/gloss")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// applyOverrides flattens nested override maps into viper Set calls,
// which sit above env vars and config files in precedence.
func applyOverrides(v *viper.Viper, prefix string, m map[string]any) {
	for key, val := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := val.(map[string]any); ok {
			applyOverrides(v, full, sub)
			continue
		}
		v.Set(full, val)
	}
}
