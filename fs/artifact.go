package fs

import (
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// PruneArtifacts removes charts in the artifact directory last modified
// before cutoff and returns how many were removed. With a user, only that
// user's charts are considered.
func (l *Layout) PruneArtifacts(user string, cutoff time.Time) (int, error) {
	dir := l.ArtifactDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	var stale []string
	err := doublestar.GlobWalk(os.DirFS(dir), "*.png", func(path string, d iofs.DirEntry) error {
		if user != "" && !strings.HasPrefix(path, user+"_") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, filepath.Join(dir, path))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("fs: scan artifacts: %w", err)
	}
	removed := 0
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("fs: remove artifact: %w", err)
		}
		removed++
	}
	return removed, nil
}
