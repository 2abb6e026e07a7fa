package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qyzk/ohno/internal/config"
	"github.com/qyzk/ohno/internal/rest"
	"github.com/qyzk/ohno/internal/version"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send and manage channel messages",
	}

	cmd.AddCommand(newMessageSendCmd())
	cmd.AddCommand(newMessageDeleteCmd())
	return cmd
}

// apiClient loads and validates config, then builds a REST client from it.
func apiClient() (*rest.Client, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	issues := config.Validate(&cfg)
	if len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return nil, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return rest.New(cfg.Discord.Hostname, cfg.Discord.APIVersion, cfg.Token, version.Version, log), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newMessageSendCmd() *cobra.Command {
	var channelID string

	cmd := &cobra.Command{
		Use:   "send [content]",
		Short: "Post a message to a channel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			msg, err := api.CreateMessage(ctx, channelID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Printf("Sent message %s to channel %s\n", msg.ID, msg.ChannelID)
			return nil
		},
	}

	cmd.Flags().StringVar(&channelID, "channel", "", "target channel ID")
	cmd.MarkFlagRequired("channel")

	return cmd
}

func newMessageDeleteCmd() *cobra.Command {
	var channelID string

	cmd := &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Delete a message from a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if err := api.DeleteMessage(ctx, channelID, args[0]); err != nil {
				return err
			}

			fmt.Printf("Deleted message %s from channel %s\n", args[0], channelID)
			return nil
		},
	}

	cmd.Flags().StringVar(&channelID, "channel", "", "channel ID the message belongs to")
	cmd.MarkFlagRequired("channel")

	return cmd
}
