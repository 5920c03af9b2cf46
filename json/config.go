package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/fwojciec/tabula"
)

var _ tabula.ModelConfigStore = (*ModelConfigStore)(nil)

// ModelConfigStore keeps the shared model configuration in one file.
type ModelConfigStore struct {
	path string
	mu   sync.Mutex
}

// NewModelConfigStore creates a store backed by the file at path.
func NewModelConfigStore(path string) *ModelConfigStore {
	return &ModelConfigStore{path: path}
}

// Load reads the configuration. A missing file is seeded with the
// defaults; an undecodable one reads as the defaults. Zero fields are
// filled from the defaults.
func (s *ModelConfigStore) Load() (tabula.ModelConfig, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := tabula.DefaultModelConfig()
		if err := s.Save(cfg); err != nil {
			return tabula.ModelConfig{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return tabula.ModelConfig{}, fmt.Errorf("json: read model config: %w", err)
	}
	var cfg tabula.ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return tabula.DefaultModelConfig(), nil
	}
	return cfg.WithDefaults(), nil
}

// Save replaces the stored configuration.
func (s *ModelConfigStore) Save(cfg tabula.ModelConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("json: marshal model config: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFile(s.path, data); err != nil {
		return fmt.Errorf("json: save model config: %w", err)
	}
	return nil
}
