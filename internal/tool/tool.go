// Package tool defines the contract every pluggable analysis tool implements.
package tool

import (
	"context"

	"github.com/metalagman/vigil/internal/config"
)

// Tool categories.
const (
	CategoryLinting       = "linting"
	CategoryTypeChecking  = "type-checking"
	CategorySecurity      = "security"
	CategoryDocumentation = "documentation"
	CategoryReview        = "review"
	CategoryGeneral       = "general"
)

// Tool is the capability surface for one analysis tool. Run must return a
// Result with empty Issues for a clean scan; errors are reserved for
// environment and setup failures (missing binary, malformed input). Run must
// honor ctx cancellation and must not mutate files unless the config enables
// auto-fix.
type Tool interface {
	Name() string
	Category() string
	Run(ctx context.Context, files []string, cfg config.ToolConfig) (*Result, error)
}
