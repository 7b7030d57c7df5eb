package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/vigil/internal/config"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a vigil project",
		Long:  "Initialize a vigil project by creating the .vigil directory and installing a default config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return err
			}

			vigilDir := filepath.Join(repoRoot, ".vigil")
			log.Info().Str("dir", vigilDir).Msg("creating vigil directory")
			if err := os.MkdirAll(filepath.Join(vigilDir, "locks"), 0o755); err != nil {
				return fmt.Errorf("create locks dir: %w", err)
			}

			configPath := filepath.Join(vigilDir, "config.json")
			if _, err := os.Stat(configPath); err == nil && !force {
				log.Info().Msg("config.json already exists, skipping (use --force to overwrite)")
				return nil
			}

			data, err := json.MarshalIndent(config.Default(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal default config: %w", err)
			}
			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			log.Info().Str("path", configPath).Msg("installed default config")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}
