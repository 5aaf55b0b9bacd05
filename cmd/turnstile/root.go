package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/turnstile/internal/cli"
	"github.com/aretw0/turnstile/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "turnstile",
	Short: "Turnstile is a conversational turn engine",
	Long: `Turnstile runs waterfall dialogs one turn at a time, persisting a dialog
stack per conversation so any process can pick up the next message.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (TURNSTILE_* env vars override it)")
	rootCmd.PersistentFlags().String("dialogs", "", "YAML dialogs file loaded next to the built-in dialogs")
	rootCmd.PersistentFlags().String("actions", "", "YAML file of allow-listed commands exposed as dialog actions")
	rootCmd.PersistentFlags().String("root", "", "Root dialog id")
	rootCmd.PersistentFlags().String("store", "", "State store driver: memory, file, redis, postgres, sqlite")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("dialogs"); v != "" {
		cfg.Engine.DialogsFile = v
	}
	if v, _ := cmd.Flags().GetString("actions"); v != "" {
		cfg.Engine.ActionsFile = v
	}
	if v, _ := cmd.Flags().GetString("root"); v != "" {
		cfg.Engine.RootDialog = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Driver = v
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
	}
	if err := config.Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupApp loads the configuration and assembles the engine.
func setupApp(cmd *cobra.Command, opts cli.SetupOptions) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cli.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	return cli.Setup(cmd.Context(), cfg, logger, opts)
}
