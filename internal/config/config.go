// Package config loads application configuration from environment variables
// and an optional config.yaml using Viper, exposed as a singleton.
package config

import (
	"fmt"
	"sync"

	"github.com/cometlabs/comet-router/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Limits  LimitsConfig  `json:"limits" mapstructure:"limits"`
	Planner PlannerConfig `json:"planner" mapstructure:"planner"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Auth    AuthConfig    `json:"auth" mapstructure:"auth"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Providers overrides the built-in endpoint table per provider id.
	Providers map[string]domain.Endpoint `json:"providers" mapstructure:"providers"`

	// PlatformKeys holds the operator credential pool per provider id.
	// Populated exclusively from environment variables, never from files,
	// and never serialized.
	PlatformKeys map[domain.ProviderID][]string `json:"-" mapstructure:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                   string `json:"host" mapstructure:"host"`
	Port                   int    `json:"port" mapstructure:"port"`
	ReadTimeoutSeconds     int    `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// LimitsConfig tunes admission control and credential pools.
type LimitsConfig struct {
	// WindowStoreSize bounds the number of tracked identities.
	WindowStoreSize int `json:"window_store_size" mapstructure:"window_store_size"`

	// RequestTimeoutSeconds bounds each outbound provider call.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`

	// KeyCooldownSeconds is how long a failing platform key sits benched.
	KeyCooldownSeconds int `json:"key_cooldown_seconds" mapstructure:"key_cooldown_seconds"`
}

// PlannerConfig selects the model used for planning calls.
type PlannerConfig struct {
	Provider string `json:"provider" mapstructure:"provider"`
	Model    string `json:"model" mapstructure:"model"`
}

// CacheConfig tunes the route response cache.
type CacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	TTLSeconds int  `json:"ttl_seconds" mapstructure:"ttl_seconds"`
	MaxEntries int  `json:"max_entries" mapstructure:"max_entries"`
}

// AuthConfig holds optional JWT verification settings. An empty secret
// disables auth entirely.
type AuthConfig struct {
	JWTSecret string `json:"-" mapstructure:"jwt_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
	configPath     string
)

// Get returns the singleton Configuration, loading it on first call from the
// default search paths. A singleton already loaded via GetWithPath is
// returned as-is.
func Get() (*Configuration, error) {
	configOnce.Do(func() {
		configPath = ""
		configInstance, configErr = load("")
	})
	return configInstance, configErr
}

// GetWithPath returns the singleton Configuration loaded from an explicit
// config file path (empty means the default search paths). Once the singleton
// is loaded, a call naming a different path fails rather than silently
// returning configuration from another source.
func GetWithPath(path string) (*Configuration, error) {
	configOnce.Do(func() {
		configPath = path
		configInstance, configErr = load(path)
	})
	if path != configPath {
		return nil, &ConfigError{
			Op: "load",
			Err: fmt.Errorf("configuration already loaded from %s, cannot reload from %q",
				describeSource(configPath), path),
		}
	}
	return configInstance, configErr
}

func describeSource(path string) string {
	if path == "" {
		return "the default search paths"
	}
	return fmt.Sprintf("%q", path)
}

// MustGet returns the singleton Configuration or panics. Use only at startup.
func MustGet() *Configuration {
	cfg, err := Get()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Reset clears the singleton. Test use only.
func Reset() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
	configPath = ""
}

// Validate checks the configuration for invalid values.
func (c *Configuration) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Limits.WindowStoreSize <= 0 {
		errs = append(errs, "limits.window_store_size must be positive")
	}
	if c.Limits.RequestTimeoutSeconds <= 0 {
		errs = append(errs, "limits.request_timeout_seconds must be positive")
	}
	if c.Planner.Provider != "" && !knownProvider(c.Planner.Provider) {
		errs = append(errs, fmt.Sprintf(
			"planner.provider '%s' is invalid, must be one of: openai, claude, perplexity",
			c.Planner.Provider,
		))
	}
	for id := range c.Providers {
		if !knownProvider(id) {
			errs = append(errs, fmt.Sprintf("providers.%s is not a supported provider", id))
		}
	}
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		errs = append(errs, "cache.ttl_seconds must be positive when cache is enabled")
	}
	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		errs = append(errs, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// EndpointFor returns the effective endpoint for a provider: the configured
// override when present, the built-in default otherwise.
func (c *Configuration) EndpointFor(id domain.ProviderID) (domain.Endpoint, bool) {
	if ep, ok := c.Providers[string(id)]; ok {
		return ep, true
	}
	return domain.DefaultEndpoint(id)
}

// EndpointOverrides returns the override map keyed by provider id.
func (c *Configuration) EndpointOverrides() map[domain.ProviderID]domain.Endpoint {
	overrides := make(map[domain.ProviderID]domain.Endpoint, len(c.Providers))
	for id, ep := range c.Providers {
		overrides[domain.ProviderID(id)] = ep
	}
	return overrides
}

// ConfiguredProviders returns the providers that have at least one platform
// key, in stable order.
func (c *Configuration) ConfiguredProviders() []domain.ProviderID {
	var out []domain.ProviderID
	for _, id := range domain.AllProviders() {
		if len(c.PlatformKeys[id]) > 0 {
			out = append(out, id)
		}
	}
	return out
}

func knownProvider(id string) bool {
	_, ok := domain.DefaultEndpoint(domain.ProviderID(id))
	return ok
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
