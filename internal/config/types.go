package config

// Config is the root configuration for ohno.
type Config struct {
	Token   string        `yaml:"token,omitempty"` // bot token; supports ${ENV_VAR} references
	Discord DiscordConfig `yaml:"discord,omitempty"`
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// DiscordConfig locates the Discord HTTP API.
type DiscordConfig struct {
	Hostname   string `yaml:"hostname,omitempty"`   // e.g. discord.com
	APIVersion int    `yaml:"apiVersion,omitempty"` // e.g. 10 → /api/v10
}

// GatewayConfig controls the gateway WebSocket connection.
type GatewayConfig struct {
	Version  int    `yaml:"version,omitempty"`  // gateway protocol version (?v=N)
	Encoding string `yaml:"encoding,omitempty"` // "json"
	Intents  int    `yaml:"intents,omitempty"`  // declared event intents bitmask

	DialTimeoutSeconds  int `yaml:"dialTimeoutSeconds,omitempty"`
	HelloTimeoutSeconds int `yaml:"helloTimeoutSeconds,omitempty"`
	AuthTimeoutSeconds  int `yaml:"authTimeoutSeconds,omitempty"`
}

// CacheConfig selects the session cache backend.
type CacheConfig struct {
	Store string `yaml:"store,omitempty"` // "sqlite" | "memory"
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
