package tools

import (
	"path/filepath"
	"strings"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/tool"
)

// Defaults builds the standard tool registry and the smart-mode
// applicability rules for it.
func Defaults(cfg config.Config) (*tool.Registry, map[string]func(files []string) bool, error) {
	registry := tool.NewRegistry()

	for _, name := range []string{"ruff", "mypy", "bandit"} {
		cmd, err := NewCommand(name)
		if err != nil {
			return nil, nil, err
		}
		if err := registry.Register(cmd); err != nil {
			return nil, nil, err
		}
	}
	if err := registry.Register(NewDocCoverage()); err != nil {
		return nil, nil, err
	}
	review, err := NewReview(cfg.Review)
	if err != nil {
		return nil, nil, err
	}
	if err := registry.Register(review); err != nil {
		return nil, nil, err
	}

	predicates := map[string]func(files []string) bool{
		"docs":   hasExt(".md", ".rst"),
		"mypy":   hasExt(".py"),
		"bandit": hasExt(".py"),
		"ai-review": func(files []string) bool {
			return len(files) > 0
		},
	}
	return registry, predicates, nil
}

func hasExt(exts ...string) func(files []string) bool {
	return func(files []string) bool {
		for _, file := range files {
			ext := strings.ToLower(filepath.Ext(file))
			for _, want := range exts {
				if ext == want {
					return true
				}
			}
		}
		return false
	}
}
