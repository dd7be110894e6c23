package main

import (
	"os"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the sentiment bot",
	Long: `Starts an interactive conversation. Every reply pauses for approval before it is sent.
Sessions are checkpointed, so 'tendril chat --session <id>' continues where you left off.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		autoApprove, _ := cmd.Flags().GetBool("yes")
		fresh, _ := cmd.Flags().GetBool("fresh")
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, backend, logger, err := setup(cmd, !verbose)
		if err != nil {
			return err
		}
		defer backend.Close()

		eng, err := cli.NewChatEngine(cfg, backend, logger, nil)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if fresh {
			if err := eng.Reset(ctx, sessionID); err != nil {
				return err
			}
		}

		tui.PrintBanner(cmd.OutOrStdout(), tendril.Version)
		return cli.Chat(ctx, eng, cli.ChatOptions{
			SessionID:   sessionID,
			In:          cmd.InOrStdin(),
			Out:         cmd.OutOrStdout(),
			Render:      tui.NewRenderer(os.Stdout),
			AutoApprove: autoApprove,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "default", "Session ID to create or continue")
	chatCmd.Flags().BoolP("yes", "y", false, "Send replies without asking for approval")
	chatCmd.Flags().Bool("fresh", false, "Discard any stored checkpoint for the session first")
	chatCmd.Flags().BoolP("verbose", "v", false, "Log engine events to stderr")
}
