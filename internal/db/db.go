// Package db opens the per-workspace SQLite store kept under .devfirm/.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const fileName = "devfirm.db"

type Config struct {
	Workspace string
}

// EnsureWorkspace creates the hidden data directory if missing and returns
// its path. An empty workspace means the current directory.
func EnsureWorkspace(workspace string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	dir := filepath.Join(workspace, ".devfirm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Open opens the workspace database. Foreign keys are enforced, and WAL plus
// a busy timeout let a long-running serve process and one-shot CLI commands
// share the same file without immediate lock errors.
func Open(cfg Config) (*sql.DB, error) {
	dir, err := EnsureWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(dir, fileName))
	return sql.Open("sqlite", dsn)
}
