package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.customBindHost",
			Message: "required when bind is \"custom\"",
		})
	}

	validDrivers := []string{"memory", "sqlite"}
	if cfg.Storage.Driver != "" && !slices.Contains(validDrivers, cfg.Storage.Driver) {
		issues = append(issues, ValidationIssue{
			Path:    "storage.driver",
			Message: fmt.Sprintf("must be one of %v, got %q", validDrivers, cfg.Storage.Driver),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	if imap := cfg.Intake.IMAP; imap != nil {
		if imap.Server == "" {
			issues = append(issues, ValidationIssue{Path: "intake.imap.server", Message: "required"})
		}
		if imap.Username == "" {
			issues = append(issues, ValidationIssue{Path: "intake.imap.username", Message: "required"})
		}
		if imap.Port < 0 || imap.Port > 65535 {
			issues = append(issues, ValidationIssue{
				Path:    "intake.imap.port",
				Message: fmt.Sprintf("port must be 0-65535, got %d", imap.Port),
			})
		}
	}

	return issues
}
