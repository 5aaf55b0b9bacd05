package main

import (
	"fmt"

	"github.com/aretw0/turnstile/internal/cli"
	"github.com/aretw0/turnstile/internal/presentation/graph"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the dialog graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of every registered dialog.
With --session, the frames of that conversation's stack are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd, cli.SetupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		var overlay *graph.StackOverlay
		if key, _ := cmd.Flags().GetString("session"); key != "" {
			id, err := domain.ParseKey(key)
			if err != nil {
				return err
			}
			stack, err := app.Engine.Inspect(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", key, err)
			}
			overlay = graph.OverlayFromStack(stack)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(app.Registry.Dialogs(), app.Engine.RootDialog(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the stack of this identity key")
}
