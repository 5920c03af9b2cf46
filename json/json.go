// Package json persists tabula state as JSON files: conversation
// transcripts, the user table and the shared model configuration.
package json

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/tabula"
)

// timeLayout is the on-disk timestamp format, in local time.
const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// writeFile replaces path with data atomically, creating parent
// directories as needed. Readers see either the old or the new content.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// checkName rejects names that would escape their directory.
func checkName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid %s %q: %w", kind, name, tabula.ErrValidation)
	}
	return nil
}
