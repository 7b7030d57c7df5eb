package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/tool"
)

// DocIssue reports an undocumented symbol or an empty documentation file.
type DocIssue struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Symbol string `json:"symbol,omitempty"`
	Reason string `json:"reason"`
}

func (i DocIssue) String() string {
	if i.Symbol != "" {
		return fmt.Sprintf("%s:%d %s: %s", i.File, i.Line, i.Symbol, i.Reason)
	}
	return fmt.Sprintf("%s: %s", i.File, i.Reason)
}

type docSettings struct {
	FailUnder float64 `mapstructure:"fail_under"`
}

// DocCoverage checks documentation coverage: python sources get a docstring
// check per function and class, markdown files must not be empty.
type DocCoverage struct{}

// NewDocCoverage constructs the documentation coverage tool.
func NewDocCoverage() *DocCoverage { return &DocCoverage{} }

// Name implements tool.Tool.
func (d *DocCoverage) Name() string { return "docs" }

// Category implements tool.Tool.
func (d *DocCoverage) Category() string { return tool.CategoryDocumentation }

// Run implements tool.Tool. It never writes files regardless of the auto-fix
// setting.
func (d *DocCoverage) Run(ctx context.Context, files []string, cfg config.ToolConfig) (*tool.Result, error) {
	var settings docSettings
	if err := mapstructure.Decode(cfg.Settings, &settings); err != nil {
		return nil, tool.ExecErr(d.Name(), "decode settings", err)
	}

	var issues []tool.Issue
	documented, total := 0, 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, tool.ExecErr(d.Name(), "scan", err)
		}
		switch strings.ToLower(filepath.Ext(file)) {
		case ".py":
			fileIssues, fileDocumented, fileTotal, err := checkPythonDocs(file)
			if err != nil {
				return nil, tool.ExecErr(d.Name(), "scan", err)
			}
			issues = append(issues, fileIssues...)
			documented += fileDocumented
			total += fileTotal
		case ".md", ".rst":
			info, err := os.Stat(file)
			if err != nil {
				return nil, tool.ExecErr(d.Name(), "scan", err)
			}
			if info.Size() == 0 {
				issues = append(issues, DocIssue{File: file, Reason: "empty documentation file"})
			}
		}
	}

	coverage := 100.0
	if total > 0 {
		coverage = 100 * float64(documented) / float64(total)
	}
	if settings.FailUnder > 0 && coverage < settings.FailUnder {
		issues = append(issues, DocIssue{
			File:   "",
			Reason: fmt.Sprintf("docstring coverage %.1f%% below threshold %.1f%%", coverage, settings.FailUnder),
		})
	}

	res := tool.NewResult(d.Name(), d.Category(), issues)
	res.Metadata = map[string]any{"coverage": coverage, "symbols": total}
	return res, nil
}

// checkPythonDocs scans a python file for function and class definitions
// missing a docstring on the following line.
func checkPythonDocs(path string) (issues []tool.Issue, documented, total int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, 0, err
	}

	for idx, line := range lines {
		trimmed := strings.TrimSpace(line)
		symbol := ""
		switch {
		case strings.HasPrefix(trimmed, "def "):
			symbol = strings.TrimPrefix(trimmed, "def ")
		case strings.HasPrefix(trimmed, "class "):
			symbol = strings.TrimPrefix(trimmed, "class ")
		default:
			continue
		}
		if cut := strings.IndexAny(symbol, "(:"); cut > 0 {
			symbol = symbol[:cut]
		}
		total++
		if hasDocstring(lines, idx) {
			documented++
			continue
		}
		issues = append(issues, DocIssue{
			File:   path,
			Line:   idx + 1,
			Symbol: symbol,
			Reason: "missing docstring",
		})
	}
	return issues, documented, total, nil
}

func hasDocstring(lines []string, defIdx int) bool {
	for _, line := range lines[defIdx+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''")
	}
	return false
}
