package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// flagKeys maps persistent CLI flags onto config keys.
var flagKeys = map[string]string{
	"db-url":    "library.db_url",
	"playlists": "library.playlists_path",
	"host":      "server.host",
	"port":      "server.port",
	"ops-addr":  "ops.addr",
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence. flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	def := Default()

	v.SetDefault("library.db_url", def.Library.DBURL)
	v.SetDefault("library.playlists_path", def.Library.PlaylistsPath)
	v.SetDefault("library.ffprobe_path", def.Library.FFprobePath)
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.request_timeout", def.Server.RequestTimeout.String())
	v.SetDefault("server.max_results", def.Server.MaxResults)
	v.SetDefault("ops.addr", def.Ops.Addr)
	v.SetDefault("watch.enabled", def.Watch.Enabled)
	v.SetDefault("watch.debounce", def.Watch.Debounce.String())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			// Only flags the user set take precedence over env and file
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Library: LibraryConfig{
			DBURL:         v.GetString("library.db_url"),
			PlaylistsPath: v.GetString("library.playlists_path"),
			FFprobePath:   v.GetString("library.ffprobe_path"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxResults:     v.GetInt("server.max_results"),
		},
		Ops: OpsConfig{Addr: v.GetString("ops.addr")},
		Watch: WatchConfig{
			Enabled:  v.GetBool("watch.enabled"),
			Debounce: v.GetDuration("watch.debounce"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig checks port range and positive durations and limits.
func validateConfig(cfg *Config) error {
	if cfg.Library.DBURL == "" {
		return fmt.Errorf("library.db_url must not be empty")
	}
	if cfg.Library.PlaylistsPath == "" {
		return fmt.Errorf("library.playlists_path must not be empty")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", cfg.Server.MaxResults)
	}
	if cfg.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got %v", cfg.Watch.Debounce)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use %s_HMAC_SECRET environment variable)", EnvPrefix)
	}
	return nil
}
