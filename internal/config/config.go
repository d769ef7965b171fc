// Package config loads the oelod configuration and persists daemon state
// (configured controllers, API keys) write-through to the same YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// FileConfig is the file-backed part of the configuration.
type FileConfig struct {
	Server     ServerConfig
	API        APIConfig
	Controller ControllerConfig
	Workflow   WorkflowConfig
	Storage    StorageConfig
	Logging    LoggingConfig
}

// ServerConfig holds the Unix socket settings.
type ServerConfig struct {
	UnixSocket string
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	ListenAddress string
}

// ControllerConfig bounds the controller client's transport and retry policy.
type ControllerConfig struct {
	CommandTimeout time.Duration // per-call budget for one transport request
	RetryAttempts  int           // total attempts including the first
	RetryBaseDelay time.Duration // delay before the first retry, doubles per attempt
	RetryMaxDelay  time.Duration // cap on the doubling delay
}

// WorkflowConfig bounds workflow sessions.
type WorkflowConfig struct {
	SessionTimeout time.Duration // overall budget before a session force-resets to Idle
}

// StorageConfig locates the durable pattern store.
type StorageConfig struct {
	PatternsPath string
}

// LoggingConfig represents the logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// APIKey is a persisted API key for the HTTP API.
type APIKey struct {
	Key        string
	Name       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time
	Disabled   bool
}

// IsExpired reports whether the key has an expiry in the past.
func (k *APIKey) IsExpired() bool {
	return !k.ExpiresAt.IsZero() && time.Now().After(k.ExpiresAt)
}

// IsDisabled reports whether the key has been disabled.
func (k *APIKey) IsDisabled() bool { return k.Disabled }

// State is the persisted daemon state. Controllers is kept untyped here; the
// controller registry owns the conversion both ways.
type State struct {
	Controllers map[string]any
	APIKeys     []APIKey
}

// Config represents the application configuration plus persisted state.
// All State mutations and Save calls are internally synchronized.
type Config struct {
	Config FileConfig
	State  State

	mu sync.Mutex
	v  *viper.Viper
}

// Load loads configuration from a file and environment variables. configFile
// overrides the default XDG location when non-empty.
func Load(configName, configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	v.SetDefault("server.unix_socket", GetRuntimeSocketPath())
	v.SetDefault("api.listen_address", DefaultAPIListenAddress)
	v.SetDefault("controller.command_timeout", DefaultCommandTimeout)
	v.SetDefault("controller.retry_attempts", DefaultRetryAttempts)
	v.SetDefault("controller.retry_base_delay", DefaultRetryBaseDelay)
	v.SetDefault("controller.retry_max_delay", DefaultRetryMaxDelay)
	v.SetDefault("workflow.session_timeout", DefaultSessionTimeout)
	v.SetDefault("storage.patterns_path", GetDefaultPatternsPath())
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		configPath := GetConfigPath(configName)
		v.SetConfigFile(configPath)

		if err := os.MkdirAll(GetConfigBaseDir(), 0o755); err != nil {
			return nil, fmt.Errorf("error creating config directory: %w", err)
		}
		if _, err := os.Stat(configPath); err == nil {
			slog.Info("Using default config file", "path", configPath)
		}
	}

	// Viper falls back to defaults when the file doesn't exist yet.
	v.ReadInConfig()

	v.SetEnvPrefix("OELOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A zero or negative attempt cap would make the retry loop unbounded
	// once converted to backoff's unsigned retry count.
	retryAttempts := v.GetInt("controller.retry_attempts")
	if retryAttempts < 1 {
		retryAttempts = DefaultRetryAttempts
	}

	cfg := &Config{
		Config: FileConfig{
			Server: ServerConfig{
				UnixSocket: v.GetString("server.unix_socket"),
			},
			API: APIConfig{
				ListenAddress: v.GetString("api.listen_address"),
			},
			Controller: ControllerConfig{
				CommandTimeout: v.GetDuration("controller.command_timeout"),
				RetryAttempts:  retryAttempts,
				RetryBaseDelay: v.GetDuration("controller.retry_base_delay"),
				RetryMaxDelay:  v.GetDuration("controller.retry_max_delay"),
			},
			Workflow: WorkflowConfig{
				SessionTimeout: v.GetDuration("workflow.session_timeout"),
			},
			Storage: StorageConfig{
				PatternsPath: v.GetString("storage.patterns_path"),
			},
			Logging: LoggingConfig{
				Level:  v.GetString("logging.level"),
				Format: v.GetString("logging.format"),
			},
		},
		State: State{
			Controllers: toStringKeyedMap(v.Get("state.controllers")),
			APIKeys:     parseAPIKeys(v.Get("state.apikeys")),
		},
		v: v,
	}

	return cfg, nil
}

// Save writes the configuration and persisted state back to the config file.
// Mutations are only considered durable once Save has returned nil.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Config) saveLocked() error {
	c.v.Set("server.unix_socket", c.Config.Server.UnixSocket)
	c.v.Set("api.listen_address", c.Config.API.ListenAddress)
	c.v.Set("controller.command_timeout", c.Config.Controller.CommandTimeout.String())
	c.v.Set("controller.retry_attempts", c.Config.Controller.RetryAttempts)
	c.v.Set("controller.retry_base_delay", c.Config.Controller.RetryBaseDelay.String())
	c.v.Set("controller.retry_max_delay", c.Config.Controller.RetryMaxDelay.String())
	c.v.Set("workflow.session_timeout", c.Config.Workflow.SessionTimeout.String())
	c.v.Set("storage.patterns_path", c.Config.Storage.PatternsPath)
	c.v.Set("logging.level", c.Config.Logging.Level)
	c.v.Set("logging.format", c.Config.Logging.Format)

	if c.State.Controllers != nil {
		c.v.Set("state.controllers", c.State.Controllers)
	}
	c.v.Set("state.apikeys", apiKeysToMaps(c.State.APIKeys))

	if err := c.v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// --- API key accessors ---

// GetAPIKeys returns a copy of all persisted API keys.
func (c *Config) GetAPIKeys() []APIKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]APIKey, len(c.State.APIKeys))
	copy(keys, c.State.APIKeys)
	return keys
}

// AddAPIKey appends a new API key to the persisted state.
func (c *Config) AddAPIKey(key APIKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.State.APIKeys {
		if existing.Key == key.Key {
			return fmt.Errorf("API key already exists")
		}
	}
	c.State.APIKeys = append(c.State.APIKeys, key)
	return nil
}

// DeleteAPIKey removes an API key by its key string. Returns false when absent.
func (c *Config) DeleteAPIKey(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.State.APIKeys {
		if existing.Key == key {
			c.State.APIKeys = append(c.State.APIKeys[:i], c.State.APIKeys[i+1:]...)
			return true
		}
	}
	return false
}

// FindAPIKey looks an API key up by its key string.
func (c *Config) FindAPIKey(key string) (*APIKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.State.APIKeys {
		if c.State.APIKeys[i].Key == key {
			k := c.State.APIKeys[i]
			return &k, true
		}
	}
	return nil, false
}

// UpdateAPIKeyLastUsed stamps the key's LastUsedAt.
func (c *Config) UpdateAPIKeyLastUsed(key string, when time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.State.APIKeys {
		if c.State.APIKeys[i].Key == key {
			c.State.APIKeys[i].LastUsedAt = when
			return nil
		}
	}
	return fmt.Errorf("API key not found")
}

// SetAPIKeyDisabledStatus updates the disabled flag by key or name.
func (c *Config) SetAPIKeyDisabledStatus(keyOrName string, disabled bool) (*APIKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.State.APIKeys {
		if c.State.APIKeys[i].Key == keyOrName || c.State.APIKeys[i].Name == keyOrName {
			c.State.APIKeys[i].Disabled = disabled
			k := c.State.APIKeys[i]
			return &k, nil
		}
	}
	return nil, fmt.Errorf("API key %q not found", keyOrName)
}

// --- persisted-state conversion helpers ---

func toStringKeyedMap(raw any) map[string]any {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

func parseAPIKeys(raw any) []APIKey {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	keys := make([]APIKey, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		k := APIKey{
			Key:      stringField(m, "key"),
			Name:     stringField(m, "name"),
			Disabled: boolField(m, "disabled"),
		}
		k.CreatedAt = timeField(m, "created_at")
		k.ExpiresAt = timeField(m, "expires_at")
		k.LastUsedAt = timeField(m, "last_used_at")
		if k.Key != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func apiKeysToMaps(keys []APIKey) []map[string]any {
	out := make([]map[string]any, len(keys))
	for i, k := range keys {
		m := map[string]any{
			"key":      k.Key,
			"name":     k.Name,
			"disabled": k.Disabled,
		}
		if !k.CreatedAt.IsZero() {
			m["created_at"] = k.CreatedAt.Format(time.RFC3339Nano)
		}
		if !k.ExpiresAt.IsZero() {
			m["expires_at"] = k.ExpiresAt.Format(time.RFC3339Nano)
		}
		if !k.LastUsedAt.IsZero() {
			m["last_used_at"] = k.LastUsedAt.Format(time.RFC3339Nano)
		}
		out[i] = m
	}
	return out
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func timeField(m map[string]any, key string) time.Time {
	s, _ := m[key].(string)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
