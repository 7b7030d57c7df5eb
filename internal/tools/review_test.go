package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/tool"
)

func TestReview_MissingAPIKey(t *testing.T) {
	t.Setenv("VIGIL_TEST_REVIEW_KEY", "")

	r, err := NewReview(config.ReviewConfig{APIKeyEnv: "VIGIL_TEST_REVIEW_KEY"})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), []string{"main.py"}, config.ToolConfig{})
	require.Error(t, err)
	var execErr *tool.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "setup", execErr.Op)
	assert.Contains(t, execErr.Error(), "VIGIL_TEST_REVIEW_KEY")
}

func TestParseReview(t *testing.T) {
	t.Parallel()

	issues, err := parseReview([]byte(`{"comments":[{"file":"a.py","line":3,"comment":"unused variable"}]}`))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "a.py:3 unused variable", issues[0].String())

	issues, err = parseReview([]byte(`{"comments":[]}`))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestParseReview_RecoversFencedJSON(t *testing.T) {
	t.Parallel()

	output := "Here is my review:\n```json\n" +
		`{"comments":[{"file":"b.py","comment":"shadowed builtin"}]}` +
		"\n```\nLet me know if you need more."

	issues, err := parseReview([]byte(output))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "b.py shadowed builtin", issues[0].String())
}

func TestParseReview_RejectsProse(t *testing.T) {
	t.Parallel()

	_, err := parseReview([]byte("the code looks fine to me"))
	require.Error(t, err)
}
