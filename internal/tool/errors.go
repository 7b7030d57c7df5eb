package tool

import "fmt"

// ExecutionError wraps an environment or setup failure for one tool.
type ExecutionError struct {
	Tool string
	Op   string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Tool, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ExecErr constructs an ExecutionError.
func ExecErr(tool, op string, err error) *ExecutionError {
	return &ExecutionError{Tool: tool, Op: op, Err: err}
}
