package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML configuration file, applies defaults and
// expands environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandConfig(&cfg)

	return &cfg, nil
}

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() []error {
	var errs []error

	if c.Discord.Token == "" {
		errs = append(errs, fmt.Errorf("discord.token is required"))
	} else if strings.HasPrefix(c.Discord.Token, "${") {
		errs = append(errs, fmt.Errorf("discord.token references an unset environment variable"))
	}

	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}
	if c.Store.PollIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("store.poll_interval_seconds must be positive"))
	}
	if c.Store.FailedRetentionDays < 0 {
		errs = append(errs, fmt.Errorf("store.failed_retention_days must not be negative"))
	}

	if c.Workers.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("workers.pool_size must be positive"))
	}
	if c.Workers.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("workers.queue_size must be positive"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text"))
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("metrics.listen_addr is required when metrics are enabled"))
	}

	return errs
}

func expandConfig(c *Config) {
	c.Discord.Token = expandEnv(c.Discord.Token)
	c.Store.Path = expandHome(expandEnv(c.Store.Path))
	c.Logging.Output = expandHome(c.Logging.Output)
}

// expandEnv expands a ${VAR} or ${VAR:default} reference.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		if val := os.Getenv(parts[0]); val != "" {
			return val
		}
		return parts[1]
	}

	if val := os.Getenv(content); val != "" {
		return val
	}
	return s
}

// expandHome expands a leading ~ in a path.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
