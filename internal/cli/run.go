package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qyzk/ohno/internal/config"
	"github.com/qyzk/ohno/internal/gateway"
	"github.com/qyzk/ohno/internal/logging"
	"github.com/qyzk/ohno/internal/rest"
	"github.com/qyzk/ohno/internal/store"
	"github.com/qyzk/ohno/internal/version"
)

func newRunCmd() *cobra.Command {
	var intents int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and stay connected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if intents != 0 {
				cfg.Gateway.Intents = intents
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Rebuild the logger from config; the --log-level flag wins.
			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			logFile := cfg.Logging.File
			if logFile != "" && !filepath.IsAbs(logFile) {
				logFile = filepath.Join(paths.Logs, logFile)
			}
			log = logging.NewWithOptions(logging.Options{
				Level: level,
				Style: cfg.Logging.ConsoleStyle,
				File:  logFile,
			})

			// Session cache (SQLite or in-memory)
			var cache gateway.Cache
			if cfg.Cache.Store == "sqlite" {
				dbPath := filepath.Join(paths.Data, "ohno.db")
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				cache = store.NewSQLiteSessionCache(db)
				log.Info().Str("path", dbPath).Msg("using SQLite session cache")
			} else {
				cache = store.NewMemorySessionCache()
				log.Info().Msg("using in-memory session cache")
			}

			api := rest.New(cfg.Discord.Hostname, cfg.Discord.APIVersion, cfg.Token, version.Version, log)

			events := log.Sub("events")
			handler := func(event string, data json.RawMessage, seq *int64) {
				evt := events.Debug().Str("event", event)
				if seq != nil {
					evt = evt.Int64("seq", *seq)
				}
				evt.Msg("dispatch")
			}

			sup := gateway.NewSupervisor(gateway.SupervisorConfig{
				Token:        cfg.Token,
				Intents:      cfg.Gateway.Intents,
				Version:      cfg.Gateway.Version,
				Encoding:     cfg.Gateway.Encoding,
				Cache:        cache,
				Bootstrap:    bootstrapFrom(api),
				Handler:      handler,
				Log:          log,
				DialTimeout:  time.Duration(cfg.Gateway.DialTimeoutSeconds) * time.Second,
				HelloTimeout: time.Duration(cfg.Gateway.HelloTimeoutSeconds) * time.Second,
				AuthTimeout:  time.Duration(cfg.Gateway.AuthTimeoutSeconds) * time.Second,
			})

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().Str("version", version.Version).Msg("ohno starting")
			return sup.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&intents, "intents", 0, "override the gateway intents bitmask")

	return cmd
}

// bootstrapFrom adapts the REST gateway endpoint to the supervisor's
// bootstrap contract.
func bootstrapFrom(api *rest.Client) gateway.BootstrapFunc {
	return func(ctx context.Context) (gateway.GatewayInfo, error) {
		gb, err := api.GetGatewayBot(ctx)
		if err != nil {
			return gateway.GatewayInfo{}, err
		}
		return gateway.GatewayInfo{
			URL:               gb.URL,
			Shards:            gb.Shards,
			SessionsTotal:     gb.SessionStartLimit.Total,
			SessionsRemaining: gb.SessionStartLimit.Remaining,
			ResetAfter:        time.Duration(gb.SessionStartLimit.ResetAfter) * time.Millisecond,
		}, nil
	}
}
