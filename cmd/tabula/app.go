package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/agent"
	"github.com/fwojciec/tabula/auth"
	tabulafs "github.com/fwojciec/tabula/fs"
	tabulajson "github.com/fwojciec/tabula/json"
	"github.com/fwojciec/tabula/python"
	"github.com/fwojciec/tabula/tabular"
	"go.uber.org/zap"
)

// options are shared by all commands. Everything the process reads from
// its environment goes through here so commands can be tested in-process.
type options struct {
	settingsPath string
	user         string

	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	getenv    func(string) string
	providers tabula.ProviderFactory
	now       func() time.Time
}

func defaultOptions() *options {
	return &options{
		settingsPath: defaultSettingsPath,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		getenv:       os.Getenv,
		providers:    newProvider,
		now:          time.Now,
	}
}

// app is the wired application.
type app struct {
	settings Settings
	logger   *zap.Logger
	layout   *tabulafs.Layout
	users    *auth.Service
	configs  *tabulajson.ModelConfigStore
	executor *python.Executor
	analyst  *agent.Analyst
	apiKey   string
	now      func() time.Time
}

// open loads settings and wires the stores, the executor and the analyst.
func (o *options) open() (*app, error) {
	explicit := o.settingsPath != defaultSettingsPath
	settings, err := loadSettings(o.settingsPath, explicit, o.getenv)
	if err != nil {
		return nil, err
	}
	layout := tabulafs.NewLayout(settings.Storage.Root)
	if err := layout.EnsureDirs(); err != nil {
		return nil, err
	}
	logger, err := newLogger(settings.Log, settings.logOutput())
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	timeout, _ := settings.timeout()

	executor := python.NewExecutor(layout.ArtifactDir(),
		python.WithInterpreter(settings.Python.Interpreter),
		python.WithTimeout(timeout),
		python.WithMaxOutput(settings.Python.MaxOutputBytes),
		python.WithLogger(logger.Named("python")),
		python.WithClock(o.now),
	)
	configs := tabulajson.NewModelConfigStore(layout.ModelConfigFile())
	analyst := agent.New(agent.Deps{
		Conversations: tabulajson.NewConversationStore(layout.ConversationsDir()),
		ModelConfigs:  configs,
		Datasets:      layout,
		Loader:        tabular.NewLoader(),
		Executor:      executor,
		Providers:     o.providers,
	}, agent.WithLogger(logger.Named("agent")), agent.WithClock(o.now))

	return &app{
		settings: settings,
		logger:   logger,
		layout:   layout,
		users:    auth.NewService(tabulajson.NewUserStore(layout.UsersFile()), auth.WithClock(o.now)),
		configs:  configs,
		executor: executor,
		analyst:  analyst,
		apiKey:   strings.TrimSpace(o.getenv("TABULA_API_KEY")),
		now:      o.now,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// login authenticates user and prunes their stale charts.
func (a *app) login(user, password string) error {
	if _, err := a.users.Authenticate(user, password); err != nil {
		return err
	}
	a.logger.Info("user logged in", zap.String("user", user))

	ttl, _ := a.settings.artifactTTL()
	if ttl == 0 {
		return nil
	}
	n, err := a.layout.PruneArtifacts(user, a.now().Add(-ttl))
	if err != nil {
		a.logger.Warn("prune artifacts failed", zap.String("user", user), zap.Error(err))
		return nil
	}
	if n > 0 {
		a.logger.Info("artifacts pruned", zap.String("user", user), zap.Int("count", n))
	}
	return nil
}

// prepare applies the TABULA_API_KEY override to a session.
func (a *app) prepare(s *tabula.Session) (*tabula.Session, error) {
	if a.apiKey == "" {
		return s, nil
	}
	cfg, err := a.configs.Load()
	if err != nil {
		a.logger.Error("load model config", zap.Error(err))
		return nil, err
	}
	cfg.APIKey = a.apiKey
	s.ModelConfig = &cfg
	return s, nil
}

// openSession opens conversation id, or starts a new one when id is empty.
func (a *app) openSession(user, id string) (*tabula.Session, error) {
	var (
		s   *tabula.Session
		err error
	)
	if id == "" {
		s, err = a.analyst.NewConversation(user)
	} else {
		s, err = a.analyst.OpenConversation(user, id)
	}
	if err != nil {
		a.logger.Error("open session", zap.String("user", user), zap.Error(err))
		return nil, err
	}
	return a.prepare(s)
}

// password returns TABULA_PASSWORD or reads one line from stdin.
func (o *options) password() (string, error) {
	if p := o.getenv("TABULA_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(o.stderr, "Password: ")
	line, err := bufio.NewReader(o.stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// authenticate opens the app and logs in the --user.
func (o *options) authenticate() (*app, error) {
	if o.user == "" {
		return nil, fmt.Errorf("--user is required: %w", tabula.ErrValidation)
	}
	a, err := o.open()
	if err != nil {
		return nil, err
	}
	password, err := o.password()
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.login(o.user, password); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// analystBackend adapts the analyst to the TUI.
type analystBackend struct {
	app *app
}

func (b *analystBackend) Ask(ctx context.Context, s *tabula.Session, text string, onEvent func(tabula.Event)) error {
	_, err := b.app.analyst.Ask(ctx, s, text, agent.WithEventHandler(onEvent))
	if err != nil {
		b.app.logger.Error("turn failed", zap.String("conversation", s.Conversation.ID), zap.Error(err))
	}
	return err
}

func (b *analystBackend) Upload(s *tabula.Session, path string) (tabula.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return tabula.Dataset{}, fmt.Errorf("upload: %w", err)
	}
	defer f.Close()
	return b.app.analyst.Upload(s, filepath.Base(path), f)
}

func (b *analystBackend) SelectDataset(s *tabula.Session, name string) (*tabula.Table, error) {
	return b.app.analyst.SelectDataset(s, name)
}

func (b *analystBackend) NewConversation(user string) (*tabula.Session, error) {
	return b.app.openSession(user, "")
}

func (b *analystBackend) ClearConversation(s *tabula.Session) error {
	return b.app.analyst.Conversations().Clear(s)
}
