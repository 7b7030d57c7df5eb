package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/tool"
)

func TestNewCommand_UnknownTool(t *testing.T) {
	t.Parallel()

	_, err := NewCommand("eslint")
	require.Error(t, err)
}

func TestCommand_MissingBinary(t *testing.T) {
	t.Parallel()

	cmd, err := NewCommand("ruff")
	require.NoError(t, err)

	cfg := config.ToolConfig{Settings: map[string]any{"bin": "definitely-not-installed-9f2c"}}
	_, err = cmd.Run(context.Background(), []string{"main.py"}, cfg)
	require.Error(t, err)
	var execErr *tool.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "ruff", execErr.Tool)
	assert.Equal(t, "locate binary", execErr.Op)
}

// writeFakeBin drops an executable shell script into dir and returns its path.
func writeFakeBin(t *testing.T, dir, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes are not portable to windows")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake bin: %v", err)
	}
	return path
}

func TestCommand_ParsesFakeRuffReport(t *testing.T) {
	t.Parallel()

	report := `[{"code":"F401","message":"os imported but unused","filename":"main.py","location":{"row":1,"column":8}}]`
	bin := writeFakeBin(t, t.TempDir(), "ruff", "echo '"+report+"'\n")

	cmd, err := NewCommand("ruff")
	require.NoError(t, err)

	cfg := config.ToolConfig{Settings: map[string]any{"bin": bin}}
	res, err := cmd.Run(context.Background(), []string{"main.py"}, cfg)
	require.NoError(t, err)

	require.Equal(t, 1, res.Count())
	finding, ok := res.Issues[0].(Finding)
	require.True(t, ok)
	assert.Equal(t, "main.py", finding.File)
	assert.Equal(t, 1, finding.Line)
	assert.Equal(t, "F401", finding.Code)
	assert.Equal(t, tool.CategoryLinting, res.Category)
}

func TestCommand_ExitOneMeansIssuesFound(t *testing.T) {
	t.Parallel()

	report := `{"results":[{"filename":"app.py","line_number":12,"test_id":"B602","issue_severity":"HIGH","issue_text":"subprocess with shell=True"}]}`
	bin := writeFakeBin(t, t.TempDir(), "bandit", "echo '"+report+"'\nexit 1\n")

	cmd, err := NewCommand("bandit")
	require.NoError(t, err)

	cfg := config.ToolConfig{Settings: map[string]any{"bin": bin}}
	res, err := cmd.Run(context.Background(), []string{"app.py"}, cfg)
	require.NoError(t, err)

	require.Equal(t, 1, res.Count())
	finding := res.Issues[0].(Finding)
	assert.Equal(t, "B602", finding.Code)
	assert.Equal(t, "HIGH", finding.Severity)
}

func TestCommand_ExitTwoIsAFailure(t *testing.T) {
	t.Parallel()

	bin := writeFakeBin(t, t.TempDir(), "mypy", "echo 'usage error' >&2\nexit 2\n")

	cmd, err := NewCommand("mypy")
	require.NoError(t, err)

	cfg := config.ToolConfig{Settings: map[string]any{"bin": bin}}
	_, err = cmd.Run(context.Background(), []string{"app.py"}, cfg)
	require.Error(t, err)
	var execErr *tool.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Error(), "usage error")
}

func TestParseRuff(t *testing.T) {
	t.Parallel()

	issues, err := parseRuff(nil)
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = parseRuff([]byte(`[{"code":"E501","message":"line too long","filename":"a.py","location":{"row":3,"column":80}}]`))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "a.py:3 E501 line too long", issues[0].String())

	_, err = parseRuff([]byte("not json"))
	require.Error(t, err)
}

func TestParseMypy(t *testing.T) {
	t.Parallel()

	stdout := []byte(`{"file":"a.py","line":4,"column":0,"severity":"error","message":"Incompatible return value","code":"return-value"}
{"file":"a.py","line":4,"column":0,"severity":"note","message":"See docs","code":""}
{"file":"b.py","line":9,"column":2,"severity":"error","message":"Name not defined","code":"name-defined"}`)

	issues, err := parseMypy(stdout)
	require.NoError(t, err)
	require.Len(t, issues, 2, "notes must be dropped")
	first := issues[0].(Finding)
	assert.Equal(t, "a.py", first.File)
	assert.Equal(t, "error", first.Severity)
}

func TestParseBandit(t *testing.T) {
	t.Parallel()

	issues, err := parseBandit([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = parseBandit([]byte(`{"results":[{"filename":"x.py","line_number":1,"test_id":"B404","issue_severity":"LOW","issue_text":"import subprocess"}]}`))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "x.py:1 B404 import subprocess", issues[0].String())
}
