package main

import (
	"fmt"

	"github.com/aretw0/turnstile/internal/cli"
	"github.com/aretw0/turnstile/pkg/adapters/telegram"
	"github.com/spf13/cobra"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the bot on Telegram",
	Long: `Connects the engine to a Telegram bot. Each chat member has their own
dialog stack; suggested actions become reply keyboards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(cmd, cli.SetupOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		token := app.Config.Telegram.Token
		if token == "" {
			return fmt.Errorf("telegram.token is required (or TURNSTILE_TELEGRAM_TOKEN)")
		}

		webhook, _ := cmd.Flags().GetString("webhook-url")
		listen, _ := cmd.Flags().GetString("webhook-listen")
		mode := telegram.RunModeLongpoll
		if webhook != "" {
			mode = telegram.RunModeWebhook
		}

		bridge := telegram.NewBridge(app.Engine,
			telegram.WithLogger(app.Logger),
			telegram.WithTurnTimeout(app.Config.Engine.TurnTimeout),
		)

		ctx, stop := app.ShutdownContext(cmd.Context())
		defer stop()
		return bridge.Run(ctx, token, telegram.PollerOptions{
			RunMode:                mode,
			LongPollTimeoutSeconds: int(app.Config.Telegram.PollTimeout.Seconds()),
			WebhookListen:          listen,
			WebhookURL:             webhook,
		})
	},
}

func init() {
	rootCmd.AddCommand(telegramCmd)

	telegramCmd.Flags().String("webhook-url", "", "Public webhook URL (enables webhook mode)")
	telegramCmd.Flags().String("webhook-listen", ":8443", "Listen address of the webhook server")
}
