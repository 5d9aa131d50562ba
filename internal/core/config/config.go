// Package config provides configuration management for smartlist.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable smartlist reads.
const EnvPrefix = "SMARTLIST"

// Config holds the settings shared by the CLI and the services.
type Config struct {
	Library LibraryConfig
	Server  ServerConfig
	Ops     OpsConfig
	Watch   WatchConfig
}

// LibraryConfig locates the index database and the playlists file.
// FFprobePath names the ffprobe binary used for stream metadata; empty
// disables probing.
type LibraryConfig struct {
	DBURL         string
	PlaylistsPath string
	FFprobePath   string
}

// ServerConfig holds configuration for the gRPC playlist service.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxResults     int
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OpsConfig holds the health and metrics listener.
type OpsConfig struct {
	Addr string
}

// WatchConfig controls the filesystem watcher.
type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Library: LibraryConfig{
			DBURL:         "sqlite://./data/library.db",
			PlaylistsPath: "./data/smart_playlists.json",
			FFprobePath:   "ffprobe",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			RequestTimeout: 30 * time.Second,
			MaxResults:     10000,
		},
		Ops:   OpsConfig{Addr: ":9464"},
		Watch: WatchConfig{Debounce: time.Second},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports SMARTLIST_HMAC_SECRET (single) and SMARTLIST_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
func HMACSecrets() (map[string][]byte, error) {
	secrets, _, err := loadHMACSecrets()
	return secrets, err
}

// SigningSecretID returns the id of the secret new keys are signed with:
// the highest-numbered SMARTLIST_HMAC_SECRET_N, else SMARTLIST_HMAC_SECRET.
// Empty when no secret is configured.
func SigningSecretID() (string, error) {
	_, newest, err := loadHMACSecrets()
	return newest, err
}

func loadHMACSecrets() (map[string][]byte, string, error) {
	secrets := make(map[string][]byte)
	var newest string

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check %s_HMAC_SECRET and %s_HMAC_SECRET_* for conflicts)", secretID, EnvPrefix, EnvPrefix)
		}
		secrets[secretID] = decoded
		newest = secretID
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	single := EnvPrefix + "_HMAC_SECRET"
	if val := os.Getenv(single); val != "" {
		if err := add(single, val); err != nil {
			return nil, "", err
		}
	}

	// Numbered secrets keep old keys valid while new ones roll out
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s_HMAC_SECRET_%d", EnvPrefix, i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, "", err
		}
	}

	return secrets, newest, nil
}

// ParseHMACSecret decodes a base64-encoded HMAC secret.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars (a UUID without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUID without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}
