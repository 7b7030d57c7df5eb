package main

import (
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/metalagman/vigil/internal/tools"
)

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered quality tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			registry, _, err := tools.Defaults(cfg)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Tool", "Category", "Enabled", "Timeout", "Auto-fix"})
			for _, name := range registry.Names() {
				impl, _ := registry.Get(name)
				toolCfg := cfg.Tools[name]
				tw.AppendRow(table.Row{
					name,
					impl.Category(),
					toolCfg.IsEnabled(),
					toolCfg.Timeout(),
					toolCfg.AutoFixEnabled(),
				})
			}
			tw.Render()
			return nil
		},
	}
}

func modesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the configured modes and their tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(cfg.Modes))
			for name := range cfg.Modes {
				names = append(names, name)
			}
			sort.Strings(names)

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Mode", "Tools", "Default"})
			for _, name := range names {
				tw.AppendRow(table.Row{name, strings.Join(cfg.Modes[name], ", "), name == cfg.DefaultMode})
			}
			tw.AppendRow(table.Row{"smart", "adaptive (file-set dependent)", false})
			tw.Render()
			return nil
		},
	}
}
