package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vigil configuration",
	}
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "validate",
		Short:        "Validate the config file schema and mode references",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot()
			if err != nil {
				return err
			}

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			log.Info().
				Str("default_mode", cfg.DefaultMode).
				Int("tools", len(cfg.Tools)).
				Int("modes", len(cfg.Modes)).
				Msg("config is valid")
			return nil
		},
	}
}
