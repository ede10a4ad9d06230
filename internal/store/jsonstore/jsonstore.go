// Package jsonstore writes snapshots of the mirrored list to disk.
// Single file, human-readable, portable. Snapshots are never read back; the
// server stays the source of truth.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Makepad-fr/tada/internal/model"
)

// Save writes todos to path through a temporary file in the same directory.
func Save(path string, todos []model.Todo) error {
	if todos == nil {
		todos = []model.Todo{}
	}
	b, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tada-export-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
