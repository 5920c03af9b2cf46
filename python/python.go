// Package python runs analysis code in a Python 3 subprocess.
//
// Each run starts a fresh interpreter in its own process group and scratch
// directory, with an embedded harness that binds df (the active dataset),
// pd, np, plt and sns before executing the code. The harness reports the
// fault, if any, and the captured artifact; stdout is collected here.
package python

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fwojciec/tabula"
	tabulajson "github.com/fwojciec/tabula/json"
	"github.com/fwojciec/tabula/tabular"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed harness.py
var harness []byte

// Defaults for Executor options.
const (
	DefaultInterpreter = "python3"
	DefaultTimeout     = 120 * time.Second
	DefaultMaxOutput   = 1 << 20
)

const (
	stderrLimit     = 64 * 1024
	stderrTailLines = 20
	stderrTailBytes = 4 * 1024
)

var _ tabula.Executor = (*Executor)(nil)

// Executor runs analysis code against the active dataset of a scope.
type Executor struct {
	interpreter string
	artifactDir string
	timeout     time.Duration
	maxOutput   int
	log         *zap.Logger
	now         func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithInterpreter sets the Python interpreter command or path.
func WithInterpreter(path string) Option {
	return func(e *Executor) { e.interpreter = path }
}

// WithTimeout sets the wall-clock limit of one run.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithMaxOutput sets how many bytes of stdout are kept.
func WithMaxOutput(n int) Option {
	return func(e *Executor) { e.maxOutput = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithClock sets the clock used to name charts.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an Executor that writes charts to artifactDir.
func NewExecutor(artifactDir string, opts ...Option) *Executor {
	e := &Executor{
		interpreter: DefaultInterpreter,
		artifactDir: artifactDir,
		timeout:     DefaultTimeout,
		maxOutput:   DefaultMaxOutput,
		log:         zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type request struct {
	Code        string `json:"code"`
	DatasetPath string `json:"dataset_path"`
	Delimiter   string `json:"delimiter,omitempty"`
	FigurePath  string `json:"figure_path"`
	ResultPath  string `json:"result_path"`
}

// FigureName returns the file name of a chart drawn for user at t:
// <user>_<seconds>.<micros>.png.
func FigureName(user string, t time.Time) string {
	return fmt.Sprintf("%s_%d.%06d.png", user, t.Unix(), t.Nanosecond()/1000)
}

// Execute runs code in a new interpreter. Faults raised by the code, and a
// run that exceeds the timeout, are reported in the result's Error with
// whatever the code printed before. An error is returned when the
// interpreter could not be run or the harness itself failed.
func (e *Executor) Execute(ctx context.Context, code string, scope tabula.Scope) (tabula.ExecutionResult, error) {
	artifactDir, err := filepath.Abs(e.artifactDir)
	if err != nil {
		return tabula.ExecutionResult{}, fmt.Errorf("python: artifact dir: %w", err)
	}
	scratch := filepath.Join(os.TempDir(), "tabula-run-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		return tabula.ExecutionResult{}, fmt.Errorf("python: create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	datasetPath := ""
	if scope.Dataset.Path != "" {
		if datasetPath, err = filepath.Abs(scope.Dataset.Path); err != nil {
			return tabula.ExecutionResult{}, fmt.Errorf("python: dataset path: %w", err)
		}
	}
	// CSV files are split on the delimiter the loader chose so the script
	// sees the same columns as the profile. An unreadable file is left for
	// the harness to report.
	delimiter := ""
	if strings.EqualFold(filepath.Ext(datasetPath), ".csv") {
		if comma, err := tabular.Delimiter(datasetPath); err == nil {
			delimiter = string(comma)
		}
	}
	req := request{
		Code:        code,
		DatasetPath: datasetPath,
		Delimiter:   delimiter,
		FigurePath:  filepath.Join(artifactDir, FigureName(scope.UserID, e.now())),
		ResultPath:  filepath.Join(scratch, "result.json"),
	}
	reqPath := filepath.Join(scratch, "request.json")
	harnessPath := filepath.Join(scratch, "harness.py")
	data, err := json.Marshal(req)
	if err != nil {
		return tabula.ExecutionResult{}, fmt.Errorf("python: marshal request: %w", err)
	}
	if err := os.WriteFile(reqPath, data, 0o600); err != nil {
		return tabula.ExecutionResult{}, fmt.Errorf("python: write request: %w", err)
	}
	if err := os.WriteFile(harnessPath, harness, 0o600); err != nil {
		return tabula.ExecutionResult{}, fmt.Errorf("python: write harness: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := osexec.CommandContext(runCtx, e.interpreter, "-u", harnessPath, reqPath)
	cmd.Dir = scratch
	cmd.Env = append(os.Environ(), "MPLBACKEND=Agg", "PYTHONIOENCODING=utf-8")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	stdout := NewOutputCollector(e.maxOutput)
	stderr := NewOutputCollector(stderrLimit)
	defer stdout.Close()
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	waitErr := cmd.Run()
	output := stdout.String()

	if waitErr != nil && runCtx.Err() != nil {
		if ctx.Err() != nil {
			return tabula.ExecutionResult{Output: output, Error: "execution cancelled"}, fmt.Errorf("python: %w", ctx.Err())
		}
		e.log.Warn("execution timed out",
			zap.String("user", scope.UserID),
			zap.Duration("timeout", e.timeout))
		return tabula.ExecutionResult{
			Output: output,
			Error:  fmt.Sprintf("execution timed out after %s", e.timeout),
		}, nil
	}

	if waitErr != nil && cmd.ProcessState == nil {
		return tabula.ExecutionResult{}, fmt.Errorf("python: start interpreter: %w", waitErr)
	}
	envelope, readErr := os.ReadFile(req.ResultPath)
	if readErr != nil {
		diag := TailLines(string(stderr.Bytes()), stderrTailLines, stderrTailBytes)
		if diag == "" && waitErr != nil {
			diag = waitErr.Error()
		}
		return tabula.ExecutionResult{Output: output}, fmt.Errorf("python: harness failed: %s", diag)
	}

	result, err := tabulajson.UnmarshalResult(envelope)
	if err != nil {
		return tabula.ExecutionResult{Output: output}, fmt.Errorf("python: %w", err)
	}
	result.Output = output
	if result.Error != "" {
		e.log.Info("analysis code failed",
			zap.String("user", scope.UserID),
			zap.String("error", result.Error))
	}
	e.log.Debug("execution finished",
		zap.String("user", scope.UserID),
		zap.String("artifact", string(result.Kind())),
		zap.Int64("output_bytes", stdout.TotalBytes()),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
