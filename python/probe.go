package python

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	osexec "os/exec"
	"time"
)

// Packages lists the modules analysis code may rely on. pandas, numpy and
// matplotlib are required; the rest widen what code can do.
var Packages = []string{"pandas", "numpy", "matplotlib", "seaborn", "openpyxl", "xlrd"}

const probeScript = `import importlib, json, sys
missing = []
for name in sys.argv[1:]:
    try:
        importlib.import_module(name)
    except Exception:
        missing.append(name)
print(json.dumps({"version": sys.version.split()[0], "missing": missing}))
`

// Environment describes the interpreter analysis code would run in.
type Environment struct {
	Interpreter string
	Version     string
	Missing     []string
}

// Ready reports whether the required packages are importable.
func (env Environment) Ready() bool {
	for _, m := range env.Missing {
		switch m {
		case "pandas", "numpy", "matplotlib":
			return false
		}
	}
	return true
}

// Probe starts the interpreter once and reports its version and which of
// Packages cannot be imported.
func (e *Executor) Probe(ctx context.Context) (Environment, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	path, err := osexec.LookPath(e.interpreter)
	if err != nil {
		return Environment{}, fmt.Errorf("python: %w", err)
	}
	args := append([]string{"-c", probeScript}, Packages...)
	var stdout, stderr bytes.Buffer
	cmd := osexec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Environment{}, fmt.Errorf("python: probe: %w: %s", err, TailLines(stderr.String(), 5, 1024))
	}
	var report struct {
		Version string   `json:"version"`
		Missing []string `json:"missing"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		return Environment{}, fmt.Errorf("python: probe output: %w", err)
	}
	return Environment{Interpreter: path, Version: report.Version, Missing: report.Missing}, nil
}
