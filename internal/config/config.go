// Package config provides configuration loading and management for vigil.
package config

import "time"

const defaultTimeoutSeconds = 60

// SmartMode is the adaptive mode name. It is resolved from the input file
// set, so it cannot be configured as a named mode.
const SmartMode = "smart"

// Config is the root configuration.
type Config struct {
	DefaultMode  string                `json:"default_mode"            mapstructure:"default_mode"`
	Tools        map[string]ToolConfig `json:"tools"                   mapstructure:"tools"`
	Modes        map[string][]string   `json:"modes"                   mapstructure:"modes"`
	FixAndRescan bool                  `json:"fix_and_rescan,omitempty" mapstructure:"fix_and_rescan"`
	Retention    RetentionPolicy       `json:"retention,omitempty"     mapstructure:"retention"`
	Review       ReviewConfig          `json:"review,omitempty"        mapstructure:"review"`
}

// ToolConfig describes how to run a single analysis tool.
type ToolConfig struct {
	Enabled        *bool          `json:"enabled,omitempty"         mapstructure:"enabled"`
	Settings       map[string]any `json:"settings,omitempty"        mapstructure:"settings"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
	AutoFix        *bool          `json:"auto_fix,omitempty"        mapstructure:"auto_fix"`
	MaxIssues      int            `json:"max_issues,omitempty"      mapstructure:"max_issues"`
}

// IsEnabled reports whether the tool is enabled. Tools are enabled unless
// explicitly disabled.
func (c ToolConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// AutoFixEnabled reports whether the tool may rewrite files in place.
// Auto-fix defaults to on.
func (c ToolConfig) AutoFixEnabled() bool {
	return c.AutoFix == nil || *c.AutoFix
}

// Timeout returns the per-tool execution deadline.
func (c ToolConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// RetentionPolicy defines how many old runs to keep.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// ReviewConfig configures the AI review tool.
type ReviewConfig struct {
	Model     string `json:"model,omitempty"       mapstructure:"model"`
	BaseURL   string `json:"base_url,omitempty"    mapstructure:"base_url"`
	APIKeyEnv string `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
}

// Default returns the configuration written by `vigil init`.
func Default() Config {
	return Config{
		DefaultMode: "fast",
		Tools: map[string]ToolConfig{
			"ruff":      {},
			"mypy":      {},
			"bandit":    {},
			"docs":      {},
			"ai-review": {},
		},
		Modes: map[string][]string{
			"fast":          {"ruff"},
			"comprehensive": {"ruff", "mypy", "bandit", "docs"},
			"security":      {"bandit"},
			"ai-enhanced":   {"ruff", "mypy", "ai-review"},
		},
		Retention: RetentionPolicy{KeepLast: 20},
	}
}
