package main

import (
	"github.com/aretw0/turnstile/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine behind a JSON API: POST /api/messages processes one activity,
conversation routes inspect and reset stacks, and /metrics exposes Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd, cli.SetupOptions{Metrics: true})
		if err != nil {
			return err
		}
		defer app.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			app.Config.Server.Addr = addr
		}

		ctx, stop := app.ShutdownContext(cmd.Context())
		defer stop()
		return cli.Serve(ctx, app)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.addr)")
}
