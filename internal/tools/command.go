// Package tools provides the built-in tool adapters and the default
// registry wiring.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/go-viper/mapstructure/v2"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/tool"
)

// Finding is the issue shape shared by the command-based adapters.
type Finding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Code     string `json:"code,omitempty"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
}

func (f Finding) String() string {
	loc := fmt.Sprintf("%s:%d", f.File, f.Line)
	if f.Code != "" {
		return fmt.Sprintf("%s %s %s", loc, f.Code, f.Message)
	}
	return fmt.Sprintf("%s %s", loc, f.Message)
}

type commandSpec struct {
	bin      string
	category string
	args     []string
	fixArgs  []string
	parse    func(stdout []byte) ([]tool.Issue, error)
}

var commandSpecs = map[string]commandSpec{
	"ruff": {
		bin:      "ruff",
		category: tool.CategoryLinting,
		args:     []string{"check", "--output-format", "json", "--exit-zero"},
		fixArgs:  []string{"--fix"},
		parse:    parseRuff,
	},
	"mypy": {
		bin:      "mypy",
		category: tool.CategoryTypeChecking,
		args:     []string{"--output", "json", "--no-error-summary"},
		parse:    parseMypy,
	},
	"bandit": {
		bin:      "bandit",
		category: tool.CategorySecurity,
		args:     []string{"-f", "json", "-q"},
		parse:    parseBandit,
	},
}

// commandSettings are the per-tool settings understood by command adapters.
type commandSettings struct {
	Bin       string   `mapstructure:"bin"`
	ExtraArgs []string `mapstructure:"extra_args"`
}

// Command runs an external analyzer binary and parses its JSON report.
type Command struct {
	name string
	spec commandSpec
}

// NewCommand constructs the adapter for one of the known analyzer binaries.
func NewCommand(name string) (*Command, error) {
	spec, ok := commandSpecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown command tool %q", name)
	}
	return &Command{name: name, spec: spec}, nil
}

// Name implements tool.Tool.
func (c *Command) Name() string { return c.name }

// Category implements tool.Tool.
func (c *Command) Category() string { return c.spec.category }

// Run invokes the analyzer over the file set. A non-zero exit with a
// parseable report means issues were found, not a tool failure.
func (c *Command) Run(ctx context.Context, files []string, cfg config.ToolConfig) (*tool.Result, error) {
	var settings commandSettings
	if err := mapstructure.Decode(cfg.Settings, &settings); err != nil {
		return nil, tool.ExecErr(c.name, "decode settings", err)
	}

	bin := settings.Bin
	if bin == "" {
		bin = c.spec.bin
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, tool.ExecErr(c.name, "locate binary", err)
	}

	args := append([]string{}, c.spec.args...)
	if cfg.AutoFixEnabled() && len(c.spec.fixArgs) > 0 {
		args = append(args, c.spec.fixArgs...)
	}
	args = append(args, settings.ExtraArgs...)
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, tool.ExecErr(c.name, "run", ctx.Err())
	}
	if runErr != nil {
		// Analyzers exit 1 when they found something to report.
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) || exitErr.ExitCode() != 1 {
			return nil, tool.ExecErr(c.name, "run", fmt.Errorf("%w: %s", runErr, bytes.TrimSpace(stderr.Bytes())))
		}
	}

	issues, err := c.spec.parse(stdout.Bytes())
	if err != nil {
		return nil, tool.ExecErr(c.name, "parse report", err)
	}

	res := tool.NewResult(c.name, c.spec.category, issues)
	res.Metadata = map[string]any{"bin": path, "files": len(files)}
	return res, nil
}

func parseRuff(stdout []byte) ([]tool.Issue, error) {
	var rows []struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Filename string `json:"filename"`
		Location struct {
			Row    int `json:"row"`
			Column int `json:"column"`
		} `json:"location"`
	}
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(stdout, &rows); err != nil {
		return nil, fmt.Errorf("ruff report: %w", err)
	}
	issues := make([]tool.Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, Finding{
			File:    row.Filename,
			Line:    row.Location.Row,
			Column:  row.Location.Column,
			Code:    row.Code,
			Message: row.Message,
		})
	}
	return issues, nil
}

func parseMypy(stdout []byte) ([]tool.Issue, error) {
	var issues []tool.Issue
	for _, line := range bytes.Split(stdout, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var row struct {
			File     string `json:"file"`
			Line     int    `json:"line"`
			Column   int    `json:"column"`
			Severity string `json:"severity"`
			Message  string `json:"message"`
			Code     string `json:"code"`
		}
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("mypy report line: %w", err)
		}
		if row.Severity == "note" {
			continue
		}
		issues = append(issues, Finding{
			File:     row.File,
			Line:     row.Line,
			Column:   row.Column,
			Code:     row.Code,
			Severity: row.Severity,
			Message:  row.Message,
		})
	}
	return issues, nil
}

func parseBandit(stdout []byte) ([]tool.Issue, error) {
	var report struct {
		Results []struct {
			Filename      string `json:"filename"`
			LineNumber    int    `json:"line_number"`
			TestID        string `json:"test_id"`
			IssueSeverity string `json:"issue_severity"`
			IssueText     string `json:"issue_text"`
		} `json:"results"`
	}
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(stdout, &report); err != nil {
		return nil, fmt.Errorf("bandit report: %w", err)
	}
	issues := make([]tool.Issue, 0, len(report.Results))
	for _, row := range report.Results {
		issues = append(issues, Finding{
			File:     row.Filename,
			Line:     row.LineNumber,
			Code:     row.TestID,
			Severity: row.IssueSeverity,
			Message:  row.IssueText,
		})
	}
	return issues, nil
}
