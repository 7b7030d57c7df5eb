package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/run"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage vigil run history",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsPruneCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot()
			if err != nil {
				return err
			}
			storeDB, closeFn, err := openDB(root)
			if err != nil {
				return err
			}
			defer closeFn()

			store := run.NewStore(storeDB)
			records, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Run", "Created", "Mode", "Status", "Issues", "Files", "Duration"})
			for _, rec := range records {
				tw.AppendRow(table.Row{rec.RunID, rec.CreatedAt, rec.Mode, rec.Status, rec.IssueCount, rec.FileCount, rec.Duration.Round(timeRound)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of runs to list")
	return cmd
}

func runsPruneCmd() *cobra.Command {
	var keepLast int
	var keepDays int
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune old runs from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot()
			if err != nil {
				return err
			}

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			policy := config.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				policy = cfg.Retention
			}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure retention in .vigil/config.json)")
			}

			lock, err := run.AcquireLock(filepath.Join(root, ".vigil"))
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			storeDB, closeFn, err := openDB(root)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := run.PruneRuns(cmd.Context(), storeDB, policy, dryRun)
			if err != nil {
				return err
			}
			mode := "deleted"
			if dryRun {
				mode = "would delete"
			}
			log.Info().Msgf("%s %d runs (kept %d)", mode, res.Deleted, res.Kept)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}
