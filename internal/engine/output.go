package engine

import (
	"time"

	"github.com/metalagman/vigil/internal/tool"
)

// Failure kinds recorded when a tool does not produce a result.
const (
	ErrorKindExecution = "execution"
	ErrorKindTimeout   = "timeout"
	ErrorKindCancelled = "cancelled"
)

// FailureRecord is the summary entry substituted for a tool's result when
// that tool errors, times out, or is cancelled. A failure never aborts the
// run.
type FailureRecord struct {
	ToolName  string `json:"tool_name"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// Entry is one tool's slot in the output summary: either a result or a
// failure record, never both.
type Entry struct {
	Result  *tool.Result   `json:"result,omitempty"`
	Failure *FailureRecord `json:"failure,omitempty"`
}

// Failed reports whether the entry holds a failure record.
func (e Entry) Failed() bool {
	return e.Failure != nil
}

// Count returns the entry's issue count, zero for failures.
func (e Entry) Count() int {
	if e.Result == nil {
		return 0
	}
	return e.Result.Count()
}

// Output is the terminal artifact of one engine invocation. It is immutable
// once returned.
type Output struct {
	Mode                 string           `json:"mode"`
	ResolvedTools        []string         `json:"resolved_tools"`
	Success              bool             `json:"success"`
	Summary              map[string]Entry `json:"summary"`
	AggregatedIssueCount int              `json:"aggregated_issue_count"`
	StartedAt            time.Time        `json:"started_at"`
	Duration             time.Duration    `json:"duration"`
}

// reduce folds the per-tool entries into the aggregate verdict. It is a pure
// function of its inputs: success requires no failure records and no tool
// exceeding its configured issue ceiling; the aggregate count sums issue
// counts across non-failure entries.
func reduce(summary map[string]Entry, ceilings map[string]int) (success bool, total int) {
	success = true
	for name, entry := range summary {
		if entry.Failed() {
			success = false
			continue
		}
		count := entry.Count()
		total += count
		if ceiling, ok := ceilings[name]; ok && ceiling > 0 && count > ceiling {
			success = false
		}
	}
	return success, total
}
