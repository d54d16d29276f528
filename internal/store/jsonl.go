// This file provides JSONL export with atomic persistence.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/estates/pkg/types"
)

// Export file names.
const (
	UsersFile      = "users.jsonl"
	PropertiesFile = "properties.jsonl"
)

// ExportJSONL writes users and properties to dir as one JSON object per line.
// Each file is replaced atomically.
func ExportJSONL(dir string, users []types.User, props []types.Property) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, UsersFile), users); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(dir, PropertiesFile), props)
}

// writeJSONL writes records to path using the temp-file, fsync, rename
// pattern.
func writeJSONL[T any](path string, records []T) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
