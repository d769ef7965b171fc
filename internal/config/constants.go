package config

import "time"

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "oelo"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "oelod.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "oeloctl.yaml"

	// SocketFilename is the base filename for the Unix socket
	SocketFilename = "oelod.sock"

	// PatternsFilename is the base filename for the durable pattern store
	PatternsFilename = "patterns.json"

	// DefaultKeyLength is the default length for generated API keys
	DefaultKeyLength = 32

	// DefaultKeyCharset is the characters used for API key generation
	DefaultKeyCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultAPIListenAddress is the default HTTP API listen address
	DefaultAPIListenAddress = ":9143"
)

// Default timeouts and retry policy
const (
	// DefaultCommandTimeout bounds a single transport call to a controller
	DefaultCommandTimeout = 10 * time.Second

	// DefaultRetryAttempts is the total attempt cap for transient failures
	DefaultRetryAttempts = 3

	// DefaultRetryBaseDelay is the delay before the first retry (doubles per attempt)
	DefaultRetryBaseDelay = 500 * time.Millisecond

	// DefaultRetryMaxDelay caps the doubling retry delay
	DefaultRetryMaxDelay = 5 * time.Second

	// DefaultSessionTimeout force-resets a workflow session that is never
	// committed, abandoned, or resolved
	DefaultSessionTimeout = 2 * time.Minute
)

// Controller constraints
const (
	// MaxPatternsPerController is the firmware app's pattern storage limit
	MaxPatternsPerController = 200

	// MinZone and MaxZone bound the zone numbers a controller reports
	MinZone = 1
	MaxZone = 6
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"
)
