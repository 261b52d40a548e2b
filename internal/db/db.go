// Package db opens the per-workspace SQLite store under .crewtime/.
package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	dataDir  = ".crewtime"
	fileName = "crewtime.db"
)

type Config struct {
	Workspace string
}

// Dir returns the workspace data directory. An empty workspace means the
// current directory.
func Dir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, dataDir)
}

// EnsureWorkspace creates the data directory if missing and returns it.
func EnsureWorkspace(workspace string) (string, error) {
	dir := Dir(workspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Open opens the workspace database, creating the data directory on first
// use. Foreign keys and a busy timeout are set through the DSN so every
// pooled connection gets them.
func Open(cfg Config) (*sql.DB, error) {
	dir, err := EnsureWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	dsn := "file:" + filepath.Join(dir, fileName) +
		"?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	return sql.Open("sqlite", dsn)
}
