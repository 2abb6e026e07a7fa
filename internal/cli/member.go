package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage guild members",
	}

	cmd.AddCommand(newMemberRemoveCmd())
	return cmd
}

func newMemberRemoveCmd() *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Kick a member from a guild",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if err := api.RemoveGuildMember(ctx, guildID, args[0]); err != nil {
				return err
			}

			fmt.Printf("Removed member %s from guild %s\n", args[0], guildID)
			return nil
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "guild ID to remove the member from")
	cmd.MarkFlagRequired("guild")

	return cmd
}
