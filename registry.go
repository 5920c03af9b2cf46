package tabula

import (
	"fmt"
	"io"
)

// Dataset is an uploaded table file, keyed by its file name.
type Dataset struct {
	Name string
	Path string
}

// TableLoader reads a dataset file into a Table.
type TableLoader interface {
	Load(path string) (*Table, error)
}

// DatasetStore keeps the uploaded files of each conversation.
type DatasetStore interface {
	Datasets(user, conversationID string) ([]Dataset, error)
	SaveDataset(user, conversationID, name string, r io.Reader) (Dataset, error)
}

// Registry tracks the datasets of a conversation and which one is active.
// It holds file paths; the active table is re-read whenever a dataset is
// selected. Registry is not safe for concurrent use.
type Registry struct {
	loader TableLoader
	paths  map[string]string
	order  []string
	active string
	table  *Table
}

// NewRegistry creates an empty Registry that loads tables with loader.
func NewRegistry(loader TableLoader) *Registry {
	return &Registry{loader: loader, paths: make(map[string]string)}
}

// Register loads the file at path and records it under name. The dataset
// becomes active when it is the first one or when activate is set. On a
// load failure the registry is left unchanged.
func (r *Registry) Register(name, path string, activate bool) (Dataset, error) {
	t, err := r.load(name, path)
	if err != nil {
		return Dataset{}, err
	}
	if _, ok := r.paths[name]; !ok {
		r.order = append(r.order, name)
	}
	r.paths[name] = path
	if activate || r.active == "" {
		r.active = name
		r.table = t
	}
	return Dataset{Name: name, Path: path}, nil
}

// Restore records datasets without loading them. Nothing becomes active.
func (r *Registry) Restore(datasets []Dataset) {
	r.Reset()
	for _, d := range datasets {
		if _, ok := r.paths[d.Name]; !ok {
			r.order = append(r.order, d.Name)
		}
		r.paths[d.Name] = d.Path
	}
}

// Select re-reads the named dataset from its file and makes it active.
func (r *Registry) Select(name string) (*Table, error) {
	path, ok := r.paths[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrDatasetNotFound)
	}
	t, err := r.load(name, path)
	if err != nil {
		return nil, err
	}
	r.active = name
	r.table = t
	return t, nil
}

// Active returns the active table, or nil when no dataset is active.
func (r *Registry) Active() *Table {
	return r.table
}

// ActiveDataset returns the active dataset.
func (r *Registry) ActiveDataset() (Dataset, bool) {
	if r.active == "" {
		return Dataset{}, false
	}
	return Dataset{Name: r.active, Path: r.paths[r.active]}, true
}

// Datasets returns the registered datasets in registration order.
func (r *Registry) Datasets() []Dataset {
	out := make([]Dataset, len(r.order))
	for i, name := range r.order {
		out[i] = Dataset{Name: name, Path: r.paths[name]}
	}
	return out
}

// Reset forgets all datasets.
func (r *Registry) Reset() {
	r.paths = make(map[string]string)
	r.order = nil
	r.active = ""
	r.table = nil
}

func (r *Registry) load(name, path string) (*Table, error) {
	t, err := r.loader.Load(path)
	if err != nil {
		return nil, &DatasetLoadError{Name: name, Path: path, Err: err}
	}
	return t, nil
}
