package main

import (
	"github.com/aretw0/turnstile/internal/cli"
	"github.com/aretw0/turnstile/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot in the terminal",
	Long: `Runs a console conversation. Every line is one message activity.
Type /reset to start over and /exit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd, cli.SetupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		jsonMode, _ := cmd.Flags().GetBool("json")
		plain, _ := cmd.Flags().GetBool("plain")
		greet, _ := cmd.Flags().GetBool("greet")
		user, _ := cmd.Flags().GetString("user")
		conversation, _ := cmd.Flags().GetString("conversation")

		id := runner.DefaultIdentity
		id.UserID = user
		id.ConversationID = conversation

		return cli.RunChat(cmd.Context(), app, cli.ChatOptions{
			In:       cmd.InOrStdin(),
			Out:      cmd.OutOrStdout(),
			JSON:     jsonMode,
			Plain:    plain,
			Greet:    greet,
			Identity: id,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("json", false, "NDJSON mode: one reply array per line")
	chatCmd.Flags().Bool("plain", false, "Plain text output without markdown rendering")
	chatCmd.Flags().Bool("greet", true, "Send a membersAdded activity before the first line")
	chatCmd.Flags().String("user", runner.DefaultIdentity.UserID, "User id of the console identity")
	chatCmd.Flags().String("conversation", runner.DefaultIdentity.ConversationID, "Conversation id of the console identity")

	rootCmd.RunE = chatCmd.RunE
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
}
