package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/metalagman/vigil/internal/engine"
	"github.com/metalagman/vigil/internal/run"
	"github.com/metalagman/vigil/internal/tools"
)

func checkCmd() *cobra.Command {
	var mode string
	var output string
	cmd := &cobra.Command{
		Use:          "check [files...]",
		Short:        "Run quality tools over the given files",
		SilenceUsage: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one file is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot()
			if err != nil {
				return err
			}

			// The lock is taken before the database is opened so that
			// concurrent first runs cannot race the migrations.
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
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			registry, predicates, err := tools.Defaults(cfg)
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg, registry)
			if err != nil {
				return err
			}
			for name, predicate := range predicates {
				eng.RegisterPredicate(name, predicate)
			}

			if mode == "" {
				mode = cfg.DefaultMode
			}

			store := run.NewStore(storeDB)
			runID, err := run.NewRunID()
			if err != nil {
				return err
			}

			if err := run.Reconcile(cmd.Context(), storeDB); err != nil {
				return err
			}
			if err := store.CreateRun(cmd.Context(), runID, mode, len(args)); err != nil {
				return err
			}

			out, err := eng.Execute(cmd.Context(), mode, args)
			if err != nil {
				return err
			}
			if err := store.CommitOutput(cmd.Context(), runID, out); err != nil {
				return err
			}
			log.Debug().Str("run_id", runID).Msg("run recorded")

			if err := renderOutput(out, output); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("quality gate failed: %d issue(s)", out.AggregatedIssueCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "mode to run (defaults to default_mode)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json, yaml")
	return cmd
}

func renderOutput(out *engine.Output, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		data, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	case "table":
		renderTable(out)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

const timeRound = time.Millisecond

func renderTable(out *engine.Output) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Tool", "Category", "Status", "Issues", "Detail"})
	for _, name := range out.ResolvedTools {
		entry := out.Summary[name]
		if entry.Failed() {
			tw.AppendRow(table.Row{name, "", entry.Failure.ErrorKind, "", entry.Failure.Message})
			continue
		}
		detail := ""
		if entry.Result.HasIssues() {
			detail = entry.Result.Issues[0].String()
			if entry.Result.Count() > 1 {
				detail = fmt.Sprintf("%s (+%d more)", detail, entry.Result.Count()-1)
			}
		}
		tw.AppendRow(table.Row{name, entry.Result.Category, "ok", entry.Result.Count(), detail})
	}
	tw.AppendFooter(table.Row{"", "", statusWord(out.Success), out.AggregatedIssueCount, out.Duration.Round(timeRound)})
	tw.Render()
}

func statusWord(success bool) string {
	if success {
		return "passed"
	}
	return "failed"
}
