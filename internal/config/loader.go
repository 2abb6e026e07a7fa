package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so the bot token can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Token = expandEnvVars(cfg.Token)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Discord.Hostname == "" {
		cfg.Discord.Hostname = def.Discord.Hostname
	}
	if cfg.Discord.APIVersion == 0 {
		cfg.Discord.APIVersion = def.Discord.APIVersion
	}
	if cfg.Gateway.Version == 0 {
		cfg.Gateway.Version = def.Gateway.Version
	}
	if cfg.Gateway.Encoding == "" {
		cfg.Gateway.Encoding = def.Gateway.Encoding
	}
	if cfg.Gateway.Intents == 0 {
		cfg.Gateway.Intents = def.Gateway.Intents
	}
	if cfg.Gateway.DialTimeoutSeconds == 0 {
		cfg.Gateway.DialTimeoutSeconds = def.Gateway.DialTimeoutSeconds
	}
	if cfg.Gateway.HelloTimeoutSeconds == 0 {
		cfg.Gateway.HelloTimeoutSeconds = def.Gateway.HelloTimeoutSeconds
	}
	if cfg.Gateway.AuthTimeoutSeconds == 0 {
		cfg.Gateway.AuthTimeoutSeconds = def.Gateway.AuthTimeoutSeconds
	}
	if cfg.Cache.Store == "" {
		cfg.Cache.Store = def.Cache.Store
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = def.Logging.ConsoleStyle
	}
}

// applyEnvOverrides reads OHNO_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OHNO_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("OHNO_DISCORD_HOSTNAME"); v != "" {
		cfg.Discord.Hostname = v
	}
	if v := os.Getenv("OHNO_GATEWAY_INTENTS"); v != "" {
		if intents, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Intents = intents
		}
	}
	if v := os.Getenv("OHNO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
