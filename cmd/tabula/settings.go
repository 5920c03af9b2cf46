package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/tabula/python"
)

const defaultSettingsPath = "tabula.toml"

// Settings are the application settings read from tabula.toml and the
// TABULA_* environment variables. The model configuration is stored
// separately, see "tabula config".
type Settings struct {
	Storage StorageSettings `toml:"storage"`
	Python  PythonSettings  `toml:"python"`
	Log     LogSettings     `toml:"log"`
}

// StorageSettings locate the on-disk state.
type StorageSettings struct {
	Root string `toml:"root"`
	// ArtifactTTL is how long charts are kept; "0" keeps them forever.
	ArtifactTTL string `toml:"artifact_ttl"`
}

// PythonSettings configure the execution engine.
type PythonSettings struct {
	Interpreter    string `toml:"interpreter"`
	Timeout        string `toml:"timeout"`
	MaxOutputBytes int    `toml:"max_output_bytes"`
}

// LogSettings configure the zap logger.
type LogSettings struct {
	Level    string `toml:"level"`
	Encoding string `toml:"encoding"`
	Caller   bool   `toml:"caller"`
	// Output is a file path, "stdout" or "stderr". Empty means
	// tabula.log under the storage root.
	Output string `toml:"output"`
}

func defaultSettings() Settings {
	return Settings{
		Storage: StorageSettings{Root: ".tabula", ArtifactTTL: "168h"},
		Python: PythonSettings{
			Interpreter:    python.DefaultInterpreter,
			Timeout:        python.DefaultTimeout.String(),
			MaxOutputBytes: python.DefaultMaxOutput,
		},
		Log: LogSettings{Level: "info", Encoding: "console"},
	}
}

// loadSettings reads the settings file at path over the defaults and then
// applies environment overrides. A missing file is only an error when the
// path was given explicitly.
func loadSettings(path string, explicit bool, getenv func(string) string) (Settings, error) {
	s := defaultSettings()
	md, err := toml.DecodeFile(path, &s)
	switch {
	case err == nil:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Settings{}, fmt.Errorf("settings %s: unknown key %s", path, undecoded[0])
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Settings{}, fmt.Errorf("settings: %w", err)
	}

	override := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&s.Storage.Root, "TABULA_ROOT")
	override(&s.Python.Interpreter, "TABULA_PYTHON")
	override(&s.Python.Timeout, "TABULA_TIMEOUT")
	override(&s.Log.Level, "TABULA_LOG_LEVEL")
	override(&s.Log.Encoding, "TABULA_LOG_ENCODING")
	if v := strings.TrimSpace(getenv("TABULA_MAX_OUTPUT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, fmt.Errorf("settings: TABULA_MAX_OUTPUT: %w", err)
		}
		s.Python.MaxOutputBytes = n
	}

	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	if strings.TrimSpace(s.Storage.Root) == "" {
		return errors.New("settings: storage root is empty")
	}
	if _, err := s.timeout(); err != nil {
		return err
	}
	if _, err := s.artifactTTL(); err != nil {
		return err
	}
	if s.Python.MaxOutputBytes <= 0 {
		return fmt.Errorf("settings: max_output_bytes must be positive, got %d", s.Python.MaxOutputBytes)
	}
	return nil
}

func (s Settings) timeout() (time.Duration, error) {
	d, err := time.ParseDuration(s.Python.Timeout)
	if err != nil {
		return 0, fmt.Errorf("settings: python timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("settings: python timeout must be positive, got %s", d)
	}
	return d, nil
}

func (s Settings) artifactTTL() (time.Duration, error) {
	if s.Storage.ArtifactTTL == "" || s.Storage.ArtifactTTL == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Storage.ArtifactTTL)
	if err != nil {
		return 0, fmt.Errorf("settings: artifact_ttl: %w", err)
	}
	return d, nil
}

func (s Settings) logOutput() string {
	if s.Log.Output != "" {
		return s.Log.Output
	}
	return filepath.Join(s.Storage.Root, "tabula.log")
}
