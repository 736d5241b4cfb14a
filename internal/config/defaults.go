package config

const (
	// DefaultConfigPath is used when no --config flag is given.
	DefaultConfigPath = "./config.toml"

	defaultStorePath           = "~/.remindbot/reminders.db"
	defaultPollInterval        = 30
	defaultFailedRetentionDays = 14
	defaultPoolSize            = 4
	defaultQueueSize           = 64
	defaultMetricsAddr         = ":9090"
)

func applyDefaults(c *Config) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.PollIntervalSeconds == 0 {
		c.Store.PollIntervalSeconds = defaultPollInterval
	}
	if c.Store.FailedRetentionDays == 0 {
		c.Store.FailedRetentionDays = defaultFailedRetentionDays
	}

	if c.Workers.PoolSize == 0 {
		c.Workers.PoolSize = defaultPoolSize
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = defaultQueueSize
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = defaultMetricsAddr
	}
}
