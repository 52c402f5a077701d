// Package config loads and validates the engine configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Port: 8787,
			Bind: "loopback",
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 8787
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Intake.IMAP != nil {
		if cfg.Intake.IMAP.Port == 0 {
			cfg.Intake.IMAP.Port = 993
		}
		if cfg.Intake.IMAP.Mailbox == "" {
			cfg.Intake.IMAP.Mailbox = "INBOX"
		}
		if cfg.Intake.IMAP.PollSeconds == 0 {
			cfg.Intake.IMAP.PollSeconds = 60
		}
	}
}
