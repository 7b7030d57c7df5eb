// Package main provides the entry point for the vigil CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metalagman/vigil/internal/logging"
)

var (
	cfgFile string
	debug   bool
	rootCmd = &cobra.Command{
		Use:   "vigil",
		Short: "vigil is a mode-driven code quality engine",
	}
)

// Execute runs the root command.
func Execute() error {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", filepath.Join(".vigil", "config.json"), "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("bind config flag: %w", err)
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(debug)
		_ = godotenv.Load()
	}
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(modesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(uiCmd())
	return rootCmd.Execute()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
