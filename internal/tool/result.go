package tool

// Issue is a single finding reported by a tool. The concrete shape is owned
// by the tool adapter; the engine only counts and prints issues.
type Issue interface {
	String() string
}

// Result is the uniform wrapper around one tool's output.
type Result struct {
	ToolName string         `json:"tool_name"`
	Category string         `json:"category"`
	Issues   []Issue        `json:"issues"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewResult constructs a result for the given tool. An unset category
// defaults to general.
func NewResult(name, category string, issues []Issue) *Result {
	if category == "" {
		category = CategoryGeneral
	}
	return &Result{
		ToolName: name,
		Category: category,
		Issues:   issues,
	}
}

// Count returns the number of issues found.
func (r *Result) Count() int {
	return len(r.Issues)
}

// HasIssues reports whether the tool found anything.
func (r *Result) HasIssues() bool {
	return len(r.Issues) > 0
}
