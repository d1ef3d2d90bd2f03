package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/cometlabs/comet-router/internal/domain"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "COMET"
)

// platformKeyEnvVars maps each provider to the environment variable holding
// its platform credentials. Values may be comma-separated to pool several
// keys per provider. Keys live in the environment only, never in files.
var platformKeyEnvVars = map[domain.ProviderID]string{
	domain.ProviderOpenAI:     "OPENAI_API_KEY",
	domain.ProviderClaude:     "ANTHROPIC_API_KEY",
	domain.ProviderPerplexity: "PERPLEXITY_API_KEY",
}

// load reads configuration with the following precedence, highest first:
// provider key env vars, COMET_-prefixed env vars, config.yaml, defaults.
func load(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/comet-router")
		v.AddConfigPath("$HOME/.comet-router")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
		// No config file is fine: env-only deployments are the norm.
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	cfg.PlatformKeys = loadPlatformKeys()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("limits.window_store_size", 16384)
	v.SetDefault("limits.request_timeout_seconds", 30)
	v.SetDefault("limits.key_cooldown_seconds", 60)

	v.SetDefault("planner.provider", "openai")
	v.SetDefault("planner.model", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.max_entries", 1024)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// loadPlatformKeys reads the per-provider credential env vars. Each value may
// hold several comma-separated keys; blanks are dropped.
func loadPlatformKeys() map[domain.ProviderID][]string {
	keys := make(map[domain.ProviderID][]string)
	for provider, envVar := range platformKeyEnvVars {
		raw := os.Getenv(envVar)
		if raw == "" {
			continue
		}
		for _, k := range strings.Split(raw, ",") {
			k = strings.TrimSpace(k)
			if k != "" {
				keys[provider] = append(keys[provider], k)
			}
		}
	}
	return keys
}
