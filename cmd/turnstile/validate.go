package main

import (
	"fmt"

	"github.com/aretw0/turnstile/internal/cli"
	"github.com/aretw0/turnstile/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registered dialogs for consistency",
	Long:  `Walks the dialog calls starting from the root dialog and reports missing or unreachable dialogs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, err := cli.BuildRegistry(cfg.Engine, nil)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if err := validator.ValidateRegistry(reg, cli.RootDialog(cfg.Engine)); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Dialogs are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
