// Package engine implements the mode-driven quality engine: it resolves
// which tools to run for an invocation, runs them concurrently with per-tool
// timeouts and failure isolation, and merges their outputs.
package engine

import (
	"fmt"
	"sort"

	"github.com/metalagman/vigil/internal/config"
)

// SmartMode is the adaptive mode: its tool selection depends on the input
// file set instead of a fixed list. The name is reserved at validation time
// so a configured mode can never shadow it.
const SmartMode = config.SmartMode

// smartBaseMode is the named mode whose list seeds a smart resolution.
const smartBaseMode = "fast"

// UnknownModeError reports a request for a mode that is not configured.
type UnknownModeError struct {
	Mode string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown mode %q", e.Mode)
}

// Predicate reports whether a tool applies to the given file set.
type Predicate func(files []string) bool

// Resolver turns (mode, files) into the ordered set of tool names to run.
type Resolver struct {
	cfg        config.Config
	predicates map[string]Predicate
}

// NewResolver creates a resolver over the validated configuration.
func NewResolver(cfg config.Config) *Resolver {
	return &Resolver{
		cfg:        cfg,
		predicates: make(map[string]Predicate),
	}
}

// RegisterPredicate attaches an applicability rule for the smart mode. Tools
// register their own rule; the resolver's control flow never names a tool.
func (r *Resolver) RegisterPredicate(toolName string, p Predicate) {
	r.predicates[toolName] = p
}

// Resolve computes the concrete, deduplicated, ordered tool list for one
// invocation. Tools disabled in the configuration are excluded.
func (r *Resolver) Resolve(mode string, files []string) ([]string, error) {
	if mode == SmartMode {
		return r.resolveSmart(files), nil
	}
	list, ok := r.cfg.Modes[mode]
	if !ok {
		return nil, &UnknownModeError{Mode: mode}
	}
	return r.filter(list), nil
}

func (r *Resolver) resolveSmart(files []string) []string {
	base, ok := r.cfg.Modes[smartBaseMode]
	if !ok {
		base = r.cfg.Modes[r.cfg.DefaultMode]
	}

	selected := make([]string, 0, len(base))
	selected = append(selected, base...)

	// Predicate additions in sorted tool order keeps resolution deterministic.
	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, configured := r.cfg.Tools[name]; !configured {
			continue
		}
		if r.predicates[name](files) {
			selected = append(selected, name)
		}
	}
	return r.filter(selected)
}

// filter drops disabled tools and duplicates, preserving first-occurrence
// order.
func (r *Resolver) filter(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !r.cfg.Tools[name].IsEnabled() {
			continue
		}
		out = append(out, name)
	}
	return out
}
