package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qyzk/ohno/internal/config"
	"github.com/qyzk/ohno/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ohno status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("ohno %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			token := "(not set)"
			if cfg.Token != "" {
				token = "(set)"
			}
			fmt.Printf("Token:   %s\n", token)
			fmt.Printf("API:     https://%s/api/v%d\n", cfg.Discord.Hostname, cfg.Discord.APIVersion)
			fmt.Printf("Gateway: version=%d encoding=%s intents=%d\n",
				cfg.Gateway.Version, cfg.Gateway.Encoding, cfg.Gateway.Intents)
			fmt.Printf("Cache:   store=%s\n", cfg.Cache.Store)
			fmt.Printf("Logging: level=%s style=%s\n", cfg.Logging.Level, cfg.Logging.ConsoleStyle)

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
