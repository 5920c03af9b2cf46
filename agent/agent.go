// Package agent runs the analysis turn: it generates code for a request,
// executes it against the active dataset, asks the model for a reply and
// records the exchange in the conversation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/tabular"
	"go.uber.org/zap"
)

// Deps are the collaborators of an Analyst.
type Deps struct {
	Conversations tabula.ConversationStore
	ModelConfigs  tabula.ModelConfigStore
	Datasets      tabula.DatasetStore
	Loader        tabula.TableLoader
	Executor      tabula.Executor
	Providers     tabula.ProviderFactory
}

// Analyst orchestrates turns for sessions.
type Analyst struct {
	conversations *Conversations
	configs       tabula.ModelConfigStore
	datasets      tabula.DatasetStore
	loader        tabula.TableLoader
	executor      tabula.Executor
	generator     *CodeGenerator
	responder     *Responder
	logger        *zap.Logger
}

// Option configures an Analyst.
type Option func(*settings)

type settings struct {
	logger *zap.Logger
	now    func() time.Time
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithClock sets the time source for message timestamps and
// conversation IDs.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// New creates an Analyst.
func New(deps Deps, opts ...Option) *Analyst {
	s := settings{logger: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(&s)
	}
	return &Analyst{
		conversations: NewConversations(deps.Conversations, s.now),
		configs:       deps.ModelConfigs,
		datasets:      deps.Datasets,
		loader:        deps.Loader,
		executor:      deps.Executor,
		generator:     NewCodeGenerator(deps.Providers),
		responder:     NewResponder(deps.Providers),
		logger:        s.logger,
	}
}

// Conversations returns the conversation manager.
func (a *Analyst) Conversations() *Conversations {
	return a.conversations
}

// Turn is the pair of messages one Ask appends.
type Turn struct {
	Request tabula.Message
	Reply   tabula.Message
}

// NewConversation starts an empty conversation for user with no datasets.
func (a *Analyst) NewConversation(user string) (*tabula.Session, error) {
	conv, err := a.conversations.New(user)
	if err != nil {
		return nil, fmt.Errorf("new conversation: %w", err)
	}
	a.logger.Info("conversation created", zap.String("user", user), zap.String("conversation", conv.ID))
	return tabula.NewSession(user, conv, a.loader), nil
}

// OpenConversation loads a stored conversation and rediscovers its
// uploaded files. No dataset is active afterwards.
func (a *Analyst) OpenConversation(user, id string) (*tabula.Session, error) {
	conv, err := a.conversations.Load(user, id)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	datasets, err := a.datasets.Datasets(user, id)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	s := tabula.NewSession(user, conv, a.loader)
	s.Registry.Restore(datasets)
	return s, nil
}

// Upload saves r as a dataset of the session's conversation, makes it
// active and records the upload in the transcript.
func (a *Analyst) Upload(s *tabula.Session, name string, r io.Reader) (tabula.Dataset, error) {
	saved, err := a.datasets.SaveDataset(s.User, s.Conversation.ID, name, r)
	if err != nil {
		return tabula.Dataset{}, fmt.Errorf("upload: %w", err)
	}
	d, err := s.Registry.Register(saved.Name, saved.Path, true)
	if err != nil {
		return tabula.Dataset{}, err
	}
	if _, err := a.conversations.Append(s, tabula.RoleSystem, "Uploaded file: "+d.Name, "", nil); err != nil {
		return tabula.Dataset{}, fmt.Errorf("upload: %w", err)
	}
	a.logger.Info("dataset uploaded",
		zap.String("conversation", s.Conversation.ID),
		zap.String("dataset", d.Name),
		zap.Int("rows", s.Registry.Active().NumRows()))
	return d, nil
}

// SelectDataset switches the active dataset, re-reading it from disk.
func (a *Analyst) SelectDataset(s *tabula.Session, name string) (*tabula.Table, error) {
	return s.Registry.Select(name)
}

// ModelConfig returns the session's model configuration: its override
// when set, the shared stored configuration otherwise.
func (a *Analyst) ModelConfig(s *tabula.Session) (tabula.ModelConfig, error) {
	if s.ModelConfig != nil {
		return s.ModelConfig.WithDefaults(), nil
	}
	return a.configs.Load()
}

// AskOption configures a single Ask invocation.
type AskOption func(*askConfig)

type askConfig struct {
	onEvent func(tabula.Event)
}

// WithEventHandler sets a callback that receives progress events during
// the turn. If nil or not set, events are silently discarded.
func WithEventHandler(h func(tabula.Event)) AskOption {
	return func(c *askConfig) { c.onEvent = h }
}

func (c *askConfig) emit(e tabula.Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

// Ask runs one turn for text. Generation and execution failures become
// part of the recorded reply; only storage failures are returned.
func (a *Analyst) Ask(ctx context.Context, s *tabula.Session, text string, opts ...AskOption) (Turn, error) {
	var cfg askConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := ctx.Err(); err != nil {
		return Turn{}, err
	}
	log := a.logger.With(zap.String("user", s.User), zap.String("conversation", s.Conversation.ID))
	start := time.Now()
	log.Info("turn started")

	req, err := a.conversations.Append(s, tabula.RoleUser, text, "", nil)
	if err != nil {
		return Turn{}, fmt.Errorf("ask: %w", err)
	}
	mc, err := a.ModelConfig(s)
	if err != nil {
		return Turn{}, fmt.Errorf("ask: %w", err)
	}

	history := []tabula.ChatMessage{{Role: tabula.RoleUser, Content: text}}
	var (
		code    string
		result  *tabula.ExecutionResult
		profile string
	)
	if table := s.Registry.Active(); table != nil {
		profile = tabular.Profile(table)
		var note string
		code, result, note = a.analyze(ctx, log, &cfg, s, mc, text, profile)
		history = append(history, tabula.ChatMessage{Role: tabula.RoleSystem, Content: note})
	}

	reply, err := a.responder.Reply(ctx, mc, history, profile)
	if err != nil {
		log.Warn("reply generation failed", zap.Error(err))
	}
	cfg.emit(tabula.EventReplied{Text: reply})

	msg, err := a.conversations.Append(s, tabula.RoleAssistant, reply, code, result)
	if err != nil {
		return Turn{}, fmt.Errorf("ask: %w", err)
	}
	log.Info("turn finished", zap.Duration("elapsed", time.Since(start)), zap.Bool("executed", result != nil))
	return Turn{Request: req, Reply: msg}, nil
}

// analyze generates and runs code for text. It returns the code, the
// execution result and a note describing the outcome for the reply.
func (a *Analyst) analyze(ctx context.Context, log *zap.Logger, turn *askConfig, s *tabula.Session, cfg tabula.ModelConfig, text, profile string) (string, *tabula.ExecutionResult, string) {
	code, err := a.generator.Generate(ctx, cfg, text, profile)
	var genErr *tabula.GenerationError
	if errors.As(err, &genErr) {
		log.Warn("code generation failed", zap.Error(err))
		turn.emit(tabula.EventCodeGenerated{Code: code, Failed: true})
		diag := Diagnostic(genErr.Err)
		result := tabula.ExecutionResult{Output: diag + "\n"}
		turn.emit(tabula.EventExecuted{Result: result})
		return code, &result, "Analysis code could not be generated. " + diag
	}
	turn.emit(tabula.EventCodeGenerated{Code: code})

	dataset, _ := s.Registry.ActiveDataset()
	result, err := a.executor.Execute(ctx, code, tabula.Scope{
		Dataset: dataset,
		Table:   s.Registry.Active(),
		UserID:  s.User,
	})
	if err != nil {
		log.Error("execution failed", zap.Error(err))
		if result.Error == "" {
			result.Error = err.Error()
		}
	}
	if result.Failed() {
		log.Info("analysis code raised", zap.String("error", result.Error))
	}
	turn.emit(tabula.EventExecuted{Result: result})
	return code, &result, DescribeResult(result)
}

const (
	noteMaxLines = 40
	noteMaxBytes = 4000
)

// DescribeResult summarizes an execution outcome for the model.
func DescribeResult(r tabula.ExecutionResult) string {
	var b strings.Builder
	b.WriteString("The analysis code was executed.")
	if out := excerpt(r.Output); out != "" {
		b.WriteString("\nOutput:\n")
		b.WriteString(out)
	}
	switch r.Kind() {
	case tabula.ArtifactFigure:
		b.WriteString("\nA chart was produced and is shown to the user.")
	case tabula.ArtifactTable:
		t, _ := r.DerivedTable()
		fmt.Fprintf(&b, "\nA result table with %d rows and %d columns was produced.", t.NumRows(), t.NumCols())
	}
	if r.Error != "" {
		b.WriteString("\nError: ")
		b.WriteString(r.Error)
	}
	return b.String()
}

// excerpt keeps the last lines of s within the note limits.
func excerpt(s string) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	if len(lines) > noteMaxLines {
		lines = lines[len(lines)-noteMaxLines:]
	}
	s = strings.Join(lines, "\n")
	if len(s) > noteMaxBytes {
		i := len(s) - noteMaxBytes
		for i < len(s) && !utf8.RuneStart(s[i]) {
			i++
		}
		s = s[i:]
	}
	return s
}
