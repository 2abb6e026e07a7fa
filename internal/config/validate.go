package config

import (
	"fmt"
	"slices"
	"strings"
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

	if strings.TrimSpace(cfg.Token) == "" {
		issues = append(issues, ValidationIssue{
			Path:    "token",
			Message: "bot token is required (set token or OHNO_TOKEN)",
		})
	} else if envVarPattern.MatchString(cfg.Token) {
		issues = append(issues, ValidationIssue{
			Path:    "token",
			Message: "token references an unset environment variable",
		})
	}

	if cfg.Discord.Hostname == "" {
		issues = append(issues, ValidationIssue{
			Path:    "discord.hostname",
			Message: "hostname is required",
		})
	}
	if cfg.Discord.APIVersion < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "discord.apiVersion",
			Message: fmt.Sprintf("must be a positive version number, got %d", cfg.Discord.APIVersion),
		})
	}

	if cfg.Gateway.Version < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.version",
			Message: fmt.Sprintf("must be a positive version number, got %d", cfg.Gateway.Version),
		})
	}

	validEncodings := []string{"json"}
	if cfg.Gateway.Encoding != "" && !slices.Contains(validEncodings, cfg.Gateway.Encoding) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.encoding",
			Message: fmt.Sprintf("must be one of %v, got %q", validEncodings, cfg.Gateway.Encoding),
		})
	}

	if cfg.Gateway.Intents < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.intents",
			Message: fmt.Sprintf("must be a non-negative bitmask, got %d", cfg.Gateway.Intents),
		})
	}

	for _, tc := range []struct {
		path  string
		value int
	}{
		{"gateway.dialTimeoutSeconds", cfg.Gateway.DialTimeoutSeconds},
		{"gateway.helloTimeoutSeconds", cfg.Gateway.HelloTimeoutSeconds},
		{"gateway.authTimeoutSeconds", cfg.Gateway.AuthTimeoutSeconds},
	} {
		if tc.value < 0 {
			issues = append(issues, ValidationIssue{
				Path:    tc.path,
				Message: fmt.Sprintf("must be non-negative, got %d", tc.value),
			})
		}
	}

	validStores := []string{"sqlite", "memory"}
	if cfg.Cache.Store != "" && !slices.Contains(validStores, cfg.Cache.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "cache.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Cache.Store),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
