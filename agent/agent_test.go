package agent_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/agent"
	"github.com/fwojciec/tabula/fs"
	"github.com/fwojciec/tabula/mock"
	"github.com/fwojciec/tabula/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory conversation store recording every save.
type memStore struct {
	mu    sync.Mutex
	saved []tabula.Conversation
	convs map[string]tabula.Conversation
	fail  error
}

func newMemStore() *memStore {
	return &memStore{convs: make(map[string]tabula.Conversation)}
}

func (m *memStore) mock() *mock.ConversationStore {
	return &mock.ConversationStore{
		SaveFn: func(c tabula.Conversation) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.fail != nil {
				return m.fail
			}
			m.saved = append(m.saved, c)
			m.convs[c.Owner+"/"+c.ID] = c
			return nil
		},
		LoadFn: func(owner, id string) (tabula.Conversation, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			c, ok := m.convs[owner+"/"+id]
			if !ok {
				return tabula.Conversation{}, tabula.ErrConversationNotFound
			}
			return c, nil
		},
	}
}

func configStore(cfg tabula.ModelConfig) *mock.ModelConfigStore {
	return &mock.ModelConfigStore{
		LoadFn: func() (tabula.ModelConfig, error) { return cfg, nil },
	}
}

func validConfig() tabula.ModelConfig {
	cfg := tabula.DefaultModelConfig()
	cfg.APIKey = "sk-test"
	return cfg
}

func providers(p tabula.Provider) tabula.ProviderFactory {
	return func(context.Context, tabula.ModelConfig) (tabula.Provider, error) { return p, nil }
}

var salesTable = tabula.NewTable(
	[]string{"region", "sales"},
	[][]string{{"north", "10"}, {"south", "20"}, {"east", ""}},
)

func staticLoader() *mock.TableLoader {
	return &mock.TableLoader{LoadFn: func(string) (*tabula.Table, error) { return salesTable, nil }}
}

// fixture wires an Analyst whose provider answers code requests with code
// and every other request with reply.
type fixture struct {
	store    *memStore
	requests []tabula.Request
	executed []string
	events   []tabula.Event
	analyst  *agent.Analyst
}

func newFixture(t *testing.T, cfg tabula.ModelConfig, result tabula.ExecutionResult) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore()}
	provider := &mock.Provider{
		CompleteFn: func(_ context.Context, req tabula.Request) (string, error) {
			f.requests = append(f.requests, req)
			if strings.Contains(req.Messages[0].Content, "User request:") {
				return "```python\nprint(df['sales'].mean())\n```", nil
			}
			return "The average sales are 15.", nil
		},
	}
	executor := &mock.Executor{
		ExecuteFn: func(_ context.Context, code string, scope tabula.Scope) (tabula.ExecutionResult, error) {
			f.executed = append(f.executed, code)
			assert.Equal(t, "ann", scope.UserID)
			assert.Equal(t, "sales.csv", scope.Dataset.Name)
			assert.NotNil(t, scope.Table)
			return result, nil
		},
	}
	datasets := &mock.DatasetStore{
		SaveDatasetFn: func(user, conversationID, name string, r io.Reader) (tabula.Dataset, error) {
			return tabula.Dataset{Name: name, Path: filepath.Join("/data", user, conversationID, name)}, nil
		},
		DatasetsFn: func(user, conversationID string) ([]tabula.Dataset, error) {
			return []tabula.Dataset{{Name: "sales.csv", Path: "/data/sales.csv"}}, nil
		},
	}
	f.analyst = agent.New(agent.Deps{
		Conversations: f.store.mock(),
		ModelConfigs:  configStore(cfg),
		Datasets:      datasets,
		Loader:        staticLoader(),
		Executor:      executor,
		Providers:     providers(provider),
	})
	return f
}

func (f *fixture) ask(s *tabula.Session, text string) (agent.Turn, error) {
	return f.analyst.Ask(context.Background(), s, text,
		agent.WithEventHandler(func(e tabula.Event) { f.events = append(f.events, e) }))
}

func TestAnalyst_AskWithDataset(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validConfig(), tabula.ExecutionResult{Output: "15.0\n"})
	s, err := f.analyst.NewConversation("ann")
	require.NoError(t, err)
	_, err = f.analyst.Upload(s, "sales.csv", strings.NewReader("region,sales\n"))
	require.NoError(t, err)

	turn, err := f.ask(s, "What is the average sales?")
	require.NoError(t, err)

	assert.Equal(t, []string{"print(df['sales'].mean())"}, f.executed)
	assert.Equal(t, tabula.RoleUser, turn.Request.Role)
	assert.Equal(t, "The average sales are 15.", turn.Reply.Content)
	assert.Equal(t, "print(df['sales'].mean())", turn.Reply.Code)
	require.NotNil(t, turn.Reply.Result)
	assert.Equal(t, "15.0\n", turn.Reply.Result.Output)

	// upload notice, request, reply
	msgs := s.Conversation.Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "Uploaded file: sales.csv", msgs[0].Content)
	assert.Equal(t, tabula.RoleSystem, msgs[0].Role)

	require.Len(t, f.requests, 2)
	code, reply := f.requests[0], f.requests[1]
	assert.Equal(t, tabula.DefaultSystemPrompt, code.SystemPrompt)
	assert.Contains(t, code.Messages[0].Content, "Shape: 3 rows, 2 columns")
	assert.Contains(t, code.Messages[0].Content, "What is the average sales?")
	require.NotNil(t, code.Temperature)
	assert.InDelta(t, 0.7, *code.Temperature, 1e-9)
	assert.Equal(t, 2000, code.MaxTokens)
	assert.Equal(t, "gpt-3.5-turbo", code.Model)

	assert.True(t, strings.HasPrefix(reply.SystemPrompt, tabula.DefaultSystemPrompt+"\n\nCurrent dataset:\nShape: 3 rows"))
	require.Len(t, reply.Messages, 2)
	assert.Equal(t, tabula.RoleUser, reply.Messages[0].Role)
	assert.Equal(t, tabula.RoleSystem, reply.Messages[1].Role)
	assert.Contains(t, reply.Messages[1].Content, "15.0")

	require.Len(t, f.events, 3)
	assert.Equal(t, tabula.EventCodeGenerated{Code: "print(df['sales'].mean())"}, f.events[0])
	assert.IsType(t, tabula.EventExecuted{}, f.events[1])
	assert.Equal(t, tabula.EventReplied{Text: "The average sales are 15."}, f.events[2])
}

func TestAnalyst_AskWithoutDataset(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validConfig(), tabula.ExecutionResult{})
	s, err := f.analyst.NewConversation("ann")
	require.NoError(t, err)

	turn, err := f.ask(s, "hello")
	require.NoError(t, err)

	assert.Empty(t, f.executed)
	require.Len(t, f.requests, 1)
	assert.Equal(t, tabula.DefaultSystemPrompt, f.requests[0].SystemPrompt)
	assert.Equal(t, []tabula.ChatMessage{{Role: tabula.RoleUser, Content: "hello"}}, f.requests[0].Messages)
	assert.Empty(t, turn.Reply.Code)
	assert.Nil(t, turn.Reply.Result)
	assert.Len(t, s.Conversation.Messages, 2)
}

func TestAnalyst_AskMissingCredential(t *testing.T) {
	t.Parallel()

	f := newFixture(t, tabula.DefaultModelConfig(), tabula.ExecutionResult{})
	s, err := f.analyst.NewConversation("ann")
	require.NoError(t, err)
	_, err = f.analyst.Upload(s, "sales.csv", strings.NewReader(""))
	require.NoError(t, err)

	turn, err := f.ask(s, "plot sales")
	require.NoError(t, err)

	assert.Empty(t, f.executed, "diagnostic code must never run")
	assert.Empty(t, f.requests)
	assert.Equal(t, "# Error: API key is not configured", turn.Reply.Code)
	require.NotNil(t, turn.Reply.Result)
	assert.Equal(t, "Error: API key is not configured\n", turn.Reply.Result.Output)
	assert.False(t, turn.Reply.Result.Failed())
	assert.Equal(t, "Error: API key is not configured. Please check the model configuration.", turn.Reply.Content)
	assert.Equal(t, tabula.EventCodeGenerated{Code: "# Error: API key is not configured", Failed: true}, f.events[0])
}

func TestAnalyst_AskFoldsExecutorFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &mock.Provider{CompleteFn: func(context.Context, tabula.Request) (string, error) { return "print(1)", nil }}
	executor := &mock.Executor{
		ExecuteFn: func(context.Context, string, tabula.Scope) (tabula.ExecutionResult, error) {
			return tabula.ExecutionResult{}, errors.New("python: start: executable file not found")
		},
	}
	a := agent.New(agent.Deps{
		Conversations: store.mock(),
		ModelConfigs:  configStore(validConfig()),
		Loader:        staticLoader(),
		Executor:      executor,
		Providers:     providers(provider),
	})
	s, err := a.NewConversation("ann")
	require.NoError(t, err)
	_, err = s.Registry.Register("sales.csv", "/data/sales.csv", true)
	require.NoError(t, err)

	turn, err := a.Ask(context.Background(), s, "count rows")
	require.NoError(t, err)
	require.NotNil(t, turn.Reply.Result)
	assert.Equal(t, "python: start: executable file not found", turn.Reply.Result.Error)
}

func TestAnalyst_AskStorageFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validConfig(), tabula.ExecutionResult{})
	s, err := f.analyst.NewConversation("ann")
	require.NoError(t, err)
	f.store.fail = errors.New("disk full")

	_, err = f.ask(s, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, s.Conversation.Messages)
}

func TestAnalyst_AskCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validConfig(), tabula.ExecutionResult{})
	s, err := f.analyst.NewConversation("ann")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.analyst.Ask(ctx, s, "hello")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Conversation.Messages)
}

func TestAnalyst_SessionModelConfigOverride(t *testing.T) {
	t.Parallel()

	f := newFixture(t, tabula.DefaultModelConfig(), tabula.ExecutionResult{})
	s, err := f.analyst.NewConversation("ann")
	require.NoError(t, err)
	override := tabula.ModelConfig{Provider: tabula.ProviderAnthropic, APIKey: "key", ModelName: "claude-test"}
	s.ModelConfig = &override

	_, err = f.ask(s, "hello")
	require.NoError(t, err)
	require.Len(t, f.requests, 1)
	assert.Equal(t, "claude-test", f.requests[0].Model)
	assert.Equal(t, 2000, f.requests[0].MaxTokens)
}

func TestAnalyst_OpenConversation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, validConfig(), tabula.ExecutionResult{})
	s, err := f.analyst.NewConversation("ann")
	require.NoError(t, err)
	_, err = f.ask(s, "hello")
	require.NoError(t, err)

	reopened, err := f.analyst.OpenConversation("ann", s.Conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Conversation, reopened.Conversation)
	assert.Nil(t, reopened.Registry.Active())
	assert.Equal(t, []tabula.Dataset{{Name: "sales.csv", Path: "/data/sales.csv"}}, reopened.Registry.Datasets())

	tbl, err := f.analyst.SelectDataset(reopened, "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())

	_, err = f.analyst.OpenConversation("ann", "missing")
	require.ErrorIs(t, err, tabula.ErrConversationNotFound)
}

func TestAnalyst_UploadLoadFailureIsNotRecorded(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	a := agent.New(agent.Deps{
		Conversations: store.mock(),
		Datasets: &mock.DatasetStore{
			SaveDatasetFn: func(_, _, name string, _ io.Reader) (tabula.Dataset, error) {
				return tabula.Dataset{Name: name, Path: "/data/" + name}, nil
			},
		},
		Loader: &mock.TableLoader{LoadFn: func(string) (*tabula.Table, error) {
			return nil, errors.New("no header row")
		}},
	})
	s, err := a.NewConversation("ann")
	require.NoError(t, err)

	_, err = a.Upload(s, "empty.csv", strings.NewReader(""))
	var loadErr *tabula.DatasetLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Empty(t, s.Conversation.Messages)
	assert.Empty(t, s.Registry.Datasets())
}

func TestAnalyst_UploadUnreadableFileOnDisk(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	a := agent.New(agent.Deps{
		Conversations: store.mock(),
		Datasets:      fs.NewLayout(t.TempDir()),
		Loader:        tabular.NewLoader(),
	})
	s, err := a.NewConversation("ann")
	require.NoError(t, err)

	_, err = a.Upload(s, "sales.csv", strings.NewReader("region,units\nnorth,3\nsouth,5\n"))
	require.NoError(t, err)

	var loadErr *tabula.DatasetLoadError
	_, err = a.Upload(s, "sales.csv", strings.NewReader(""))
	require.ErrorAs(t, err, &loadErr)
	_, err = a.Upload(s, "bad.csv", strings.NewReader(""))
	require.ErrorAs(t, err, &loadErr)
	assert.Len(t, s.Conversation.Messages, 1)

	tbl, err := a.SelectDataset(s, "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())

	reopened, err := a.OpenConversation("ann", s.Conversation.ID)
	require.NoError(t, err)
	names := make([]string, 0, 1)
	for _, d := range reopened.Registry.Datasets() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"sales.csv"}, names)

	tbl, err = a.SelectDataset(reopened, "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
}

func TestDescribeResult(t *testing.T) {
	t.Parallel()

	tbl := tabula.NewTable([]string{"a"}, [][]string{{"1"}, {"2"}})
	got := agent.DescribeResult(tabula.ExecutionResult{
		Output:   "partial\n",
		Artifact: tabula.TableArtifact{Table: tbl},
		Error:    "KeyError: 'x'",
	})
	assert.Equal(t, "The analysis code was executed.\nOutput:\npartial\nA result table with 2 rows and 1 columns was produced.\nError: KeyError: 'x'", got)

	got = agent.DescribeResult(tabula.ExecutionResult{Artifact: tabula.Figure{Path: "/tmp/a.png"}})
	assert.Equal(t, "The analysis code was executed.\nA chart was produced and is shown to the user.", got)
}

func TestDescribeResult_LongOutputKeepsTail(t *testing.T) {
	t.Parallel()

	// 3-byte runes on a single line, long enough that the cut falls
	// inside one of them.
	output := strings.Repeat("é€", 1000) + "end\n"
	got := agent.DescribeResult(tabula.ExecutionResult{Output: output})

	require.True(t, utf8.ValidString(got))
	body := strings.TrimPrefix(got, "The analysis code was executed.\nOutput:\n")
	assert.LessOrEqual(t, len(body), 4000)
	assert.Greater(t, len(body), 3990)
	assert.True(t, strings.HasSuffix(body, "€end"))

	lines := make([]string, 100)
	for i := range lines {
		lines[i] = fmt.Sprintf("row %d", i)
	}
	got = agent.DescribeResult(tabula.ExecutionResult{Output: strings.Join(lines, "\n")})
	assert.NotContains(t, got, "row 59\n")
	assert.Contains(t, got, "Output:\nrow 60\n")
	assert.True(t, strings.HasSuffix(got, "row 99"))
}

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}
