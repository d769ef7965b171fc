package config

import (
	"crypto/rand"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
)

// GetRuntimeDir returns the XDG runtime directory
func GetRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	uid := os.Getuid()
	return filepath.Join("/run/user", strconv.Itoa(uid))
}

// GetRuntimeSocketPath returns the full path to the Unix socket.
// It checks the user's runtime directory first, then falls back to the
// system socket path used by the systemd service.
func GetRuntimeSocketPath() string {
	userSocket := filepath.Join(GetRuntimeDir(), SocketFilename)

	if _, err := os.Stat(userSocket); err == nil {
		return userSocket
	}

	systemSocket := filepath.Join("/run/oelod", SocketFilename)
	if _, err := os.Stat(systemSocket); err == nil {
		return systemSocket
	}

	return userSocket
}

// GetConfigBaseDir returns the base directory for configuration files
func GetConfigBaseDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		// For the system service XDG_CONFIG_HOME is set to /etc/oelod,
		// which is used directly without appending ConfigDirName.
		if dir == "/etc/oelod" {
			return dir
		}
		return filepath.Join(dir, ConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", ConfigDirName)
}

// GetConfigPath returns the full path to a configuration file
func GetConfigPath(filename string) string {
	return filepath.Join(GetConfigBaseDir(), filename)
}

// GetDaemonConfigPath returns the full path to the daemon configuration file
func GetDaemonConfigPath() string {
	return GetConfigPath(DaemonConfigFilename)
}

// GetDefaultPatternsPath returns the default path for the pattern store file
func GetDefaultPatternsPath() string {
	return GetConfigPath(PatternsFilename)
}

// GenerateKey generates a random key string of the given length using
// DefaultKeyCharset.
func GenerateKey(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(DefaultKeyCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = DefaultKeyCharset[n.Int64()]
	}
	return string(out), nil
}
