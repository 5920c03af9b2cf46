// Package fs lays out tabula's on-disk state: users, model configuration,
// conversation transcripts, uploaded datasets and chart artifacts.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/tabular"
)

// Layout resolves paths under a storage root:
//
//	<root>/users/users.json
//	<root>/config/model_config.json
//	<root>/conversations/<user>/<id>.json
//	<root>/data/<user>/<id>/<file>
//	<root>/temp/<user>_<seconds.micros>.png
type Layout struct {
	root   string
	loader tabula.TableLoader
}

// NewLayout creates a Layout rooted at root. Uploads are checked with the
// tabular loader before they are kept.
func NewLayout(root string) *Layout {
	return &Layout{root: root, loader: tabular.NewLoader()}
}

// Root returns the storage root.
func (l *Layout) Root() string { return l.root }

// UsersFile returns the path of the user store.
func (l *Layout) UsersFile() string { return filepath.Join(l.root, "users", "users.json") }

// ModelConfigFile returns the path of the model configuration.
func (l *Layout) ModelConfigFile() string {
	return filepath.Join(l.root, "config", "model_config.json")
}

// ConversationsDir returns the directory holding every user's transcripts.
func (l *Layout) ConversationsDir() string { return filepath.Join(l.root, "conversations") }

// DataDir returns the upload directory of one conversation.
func (l *Layout) DataDir(user, conversationID string) string {
	return filepath.Join(l.root, "data", user, conversationID)
}

// ArtifactDir returns the directory charts are written to.
func (l *Layout) ArtifactDir() string { return filepath.Join(l.root, "temp") }

// EnsureDirs creates the top-level directories.
func (l *Layout) EnsureDirs() error {
	for _, dir := range []string{"users", "config", "conversations", "data", "temp"} {
		if err := os.MkdirAll(filepath.Join(l.root, dir), 0o700); err != nil {
			return fmt.Errorf("fs: create %s: %w", dir, err)
		}
	}
	return nil
}

func checkName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("fs: invalid %s %q: %w", kind, name, tabula.ErrValidation)
	}
	return nil
}
