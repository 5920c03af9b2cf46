package fs

import (
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/tabular"
)

var _ tabula.DatasetStore = (*Layout)(nil)

// Datasets lists the readable files uploaded to a conversation, sorted by
// name. A conversation without uploads has none.
func (l *Layout) Datasets(user, conversationID string) ([]tabula.Dataset, error) {
	if err := checkName("user", user); err != nil {
		return nil, err
	}
	if err := checkName("conversation id", conversationID); err != nil {
		return nil, err
	}
	dir := l.DataDir(user, conversationID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var out []tabula.Dataset
	err := doublestar.GlobWalk(os.DirFS(dir), "*", func(path string, d iofs.DirEntry) error {
		if !d.Type().IsRegular() || strings.HasPrefix(path, ".") || !tabular.Supported(path) {
			return nil
		}
		out = append(out, tabula.Dataset{Name: path, Path: filepath.Join(dir, path)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fs: list datasets: %w", err)
	}
	return out, nil
}

// SaveDataset copies r into the conversation's upload directory under
// name, replacing any earlier upload with the same name. The copy is
// staged and read as a table first; a file that does not load fails with a
// *DatasetLoadError and leaves the directory as it was.
func (l *Layout) SaveDataset(user, conversationID, name string, r io.Reader) (tabula.Dataset, error) {
	if err := checkName("user", user); err != nil {
		return tabula.Dataset{}, err
	}
	if err := checkName("conversation id", conversationID); err != nil {
		return tabula.Dataset{}, err
	}
	if err := checkName("file name", name); err != nil {
		return tabula.Dataset{}, err
	}
	if !tabular.Supported(name) {
		return tabula.Dataset{}, fmt.Errorf("fs: %s: %w", name, tabula.ErrUnsupportedFormat)
	}

	dir := l.DataDir(user, conversationID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return tabula.Dataset{}, fmt.Errorf("fs: create data directory: %w", err)
	}
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, ".upload-*"+filepath.Ext(name))
	if err != nil {
		return tabula.Dataset{}, fmt.Errorf("fs: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return tabula.Dataset{}, fmt.Errorf("fs: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return tabula.Dataset{}, fmt.Errorf("fs: write %s: %w", name, err)
	}
	if _, err := l.loader.Load(tmp.Name()); err != nil {
		return tabula.Dataset{}, &tabula.DatasetLoadError{Name: name, Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return tabula.Dataset{}, fmt.Errorf("fs: rename %s: %w", name, err)
	}
	return tabula.Dataset{Name: name, Path: path}, nil
}
