package config

import "fmt"

// Intents bitmask values for GatewayConfig.Intents.
const (
	IntentGuilds         = 1 << 0
	IntentGuildMessages  = 1 << 9
	IntentMessageContent = 1 << 15
)

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
		Discord: DiscordConfig{
			Hostname:   "discord.com",
			APIVersion: 10,
		},
		Gateway: GatewayConfig{
			Version:             10,
			Encoding:            "json",
			Intents:             IntentGuilds | IntentGuildMessages | IntentMessageContent,
			DialTimeoutSeconds:  30,
			HelloTimeoutSeconds: 15,
			AuthTimeoutSeconds:  15,
		},
		Cache: CacheConfig{
			Store: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
