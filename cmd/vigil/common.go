package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/db"
)

func repoRoot() (string, error) {
	root, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve repo root: %w", err)
	}
	return root, nil
}

func openDB(root string) (*sql.DB, func(), error) {
	vigilDir := filepath.Join(root, ".vigil")
	if err := os.MkdirAll(vigilDir, 0o755); err != nil {
		return nil, func() {}, err
	}
	dbPath := filepath.Join(vigilDir, "vigil.db")
	storeDB, err := db.Open(dbPath)
	if err != nil {
		return nil, func() {}, err
	}
	return storeDB, func() { _ = storeDB.Close() }, nil
}

// loadConfig reads and validates the config file. The file is decoded
// directly rather than through viper, which lowercases map keys and would
// break the case-sensitive tool name matching.
func loadConfig(root string) (config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = filepath.Join(".vigil", "config.json")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := config.ValidateSettings(raw); err != nil {
		return config.Config{}, err
	}

	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DefaultMode == "" {
		return config.Config{}, fmt.Errorf("default_mode is required")
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
