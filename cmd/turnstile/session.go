package main

import (
	"fmt"

	"github.com/aretw0/turnstile/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted conversations",
	Long:  `List, inspect, and remove the dialog stacks held by the configured state store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd, cli.SetupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.ListSessions(cmd.Context(), cmd.OutOrStdout(), app.Store)
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <channel/conversation/user>",
	Short: "Print the dialog stack of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd, cli.SetupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.InspectSession(cmd.Context(), cmd.OutOrStdout(), app.Store, args[0])
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <channel/conversation/user>...",
	Short: "Remove one or more conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("requires at least one identity key or --all")
		}

		app, err := setupApp(cmd, cli.SetupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.RemoveSessions(cmd.Context(), cmd.OutOrStdout(), app.Store, args, all)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionRmCmd.Flags().Bool("all", false, "Remove every stored conversation")
}
