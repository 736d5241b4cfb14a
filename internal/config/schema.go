// Package config provides configuration loading and validation for remindbot.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [logging]: Logging level, format, and output
//   - [discord]: Discord bot token and command registration scope
//   - [store]: Job store database path, poll interval, retention
//   - [workers]: Delivery worker pool settings
//   - [metrics]: Prometheus metrics listener
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax, for example: token = "${DISCORD_TOKEN}".
package config

// Config represents the main application configuration.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Discord DiscordConfig `toml:"discord"`
	Store   StoreConfig   `toml:"store"`
	Workers WorkersConfig `toml:"workers"`
	Metrics MetricsConfig `toml:"metrics"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// DiscordConfig controls the Discord connector.
type DiscordConfig struct {
	Token string `toml:"token"`
	// GuildID scopes application command registration to a single guild.
	// Empty registers the commands globally.
	GuildID string `toml:"guild_id"`
}

// StoreConfig controls the durable job store and its scheduler.
type StoreConfig struct {
	Path                string `toml:"path"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	FailedRetentionDays int    `toml:"failed_retention_days"`
}

// WorkersConfig controls the delivery worker pool.
type WorkersConfig struct {
	PoolSize  int `toml:"pool_size"`
	QueueSize int `toml:"queue_size"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}
