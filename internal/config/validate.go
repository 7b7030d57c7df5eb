package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

// ReferenceError reports a mode referencing a tool that is not registered.
type ReferenceError struct {
	Tool string
	Mode string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("mode %q references unknown tool %q", e.Mode, e.Tool)
}

// Validate checks referential integrity between modes and the tool registry.
// Every tool name in every mode's list must exist as a key in Tools, matched
// exactly and case-sensitively. Modes are visited in sorted name order and
// tool lists in declared order, so the first offending (tool, mode) pair is
// deterministic. Duplicate references within a mode are allowed; the engine
// deduplicates at resolution time. The smart mode name is reserved and may
// not be configured.
func Validate(cfg Config) error {
	if _, ok := cfg.Modes[SmartMode]; ok {
		return fmt.Errorf("mode name %q is reserved for adaptive resolution", SmartMode)
	}

	modeNames := make([]string, 0, len(cfg.Modes))
	for name := range cfg.Modes {
		modeNames = append(modeNames, name)
	}
	sort.Strings(modeNames)

	for _, mode := range modeNames {
		for _, tool := range cfg.Modes[mode] {
			if _, ok := cfg.Tools[tool]; !ok {
				return &ReferenceError{Tool: tool, Mode: mode}
			}
		}
	}
	return nil
}

// ValidateSettings validates the raw config document against the JSON schema.
func ValidateSettings(settings map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(settings)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)

	return fmt.Errorf("config schema validation failed: %s", strings.Join(errs, "; "))
}
