package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/agent"
	"github.com/fwojciec/tabula/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "print(1)", "print(1)"},
		{"python fence", "```python\nprint(1)\n```", "print(1)"},
		{"bare fence", "```\nx = 1\nprint(x)\n```\n", "x = 1\nprint(x)"},
		{"py tag", "  ```py\nprint(2)```  ", "print(2)"},
		{"single line", "```print(3)```", "print(3)"},
		{"first line is code", "```df.head()\nprint(4)\n```", "df.head()\nprint(4)"},
		{"only trailing", "print(5)\n```", "print(5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, agent.StripCodeFence(tt.in))
		})
	}
}

func TestCodeGenerator_Generate(t *testing.T) {
	t.Parallel()

	var got tabula.Request
	g := agent.NewCodeGenerator(providers(&mock.Provider{
		CompleteFn: func(_ context.Context, req tabula.Request) (string, error) {
			got = req
			return "```python\nresult_df = df.describe()\n```", nil
		},
	}))
	code, err := g.Generate(context.Background(), validConfig(), "summarize", "Shape: 1 rows, 1 columns\n")
	require.NoError(t, err)
	assert.Equal(t, "result_df = df.describe()", code)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, "Shape: 1 rows, 1 columns")
	assert.Contains(t, got.Messages[0].Content, "result_df")
}

func TestCodeGenerator_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		factory  tabula.ProviderFactory
		wantCode string
	}{
		{
			name: "transport error",
			factory: providers(&mock.Provider{CompleteFn: func(context.Context, tabula.Request) (string, error) {
				return "", errors.New("openai: HTTP 401:\ninvalid key")
			}}),
			wantCode: "# Error: openai: HTTP 401: invalid key",
		},
		{
			name: "empty response",
			factory: providers(&mock.Provider{CompleteFn: func(context.Context, tabula.Request) (string, error) {
				return "  ", nil
			}}),
			wantCode: "# Error: empty response",
		},
		{
			name: "factory error",
			factory: func(context.Context, tabula.ModelConfig) (tabula.Provider, error) {
				return nil, errors.New("unknown provider \"x\"")
			},
			wantCode: "# Error: unknown provider \"x\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, err := agent.NewCodeGenerator(tt.factory).Generate(context.Background(), validConfig(), "q", "p")
			var genErr *tabula.GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tabula.StageCode, genErr.Stage)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestResponder_Reply(t *testing.T) {
	t.Parallel()

	var got tabula.Request
	r := agent.NewResponder(providers(&mock.Provider{
		CompleteFn: func(_ context.Context, req tabula.Request) (string, error) {
			got = req
			return "Done.", nil
		},
	}))
	cfg := validConfig()
	cfg.SystemPrompt = "sys"
	text, err := r.Reply(context.Background(), cfg, []tabula.ChatMessage{
		{Role: tabula.RoleUser, Content: "a"},
		{Role: "tool", Content: "dropped"},
		{Role: tabula.RoleAssistant, Content: "b"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "Done.", text)
	assert.Equal(t, "sys", got.SystemPrompt)
	assert.Equal(t, []tabula.ChatMessage{
		{Role: tabula.RoleUser, Content: "a"},
		{Role: tabula.RoleAssistant, Content: "b"},
	}, got.Messages)
}

func TestResponder_ReplyFailure(t *testing.T) {
	t.Parallel()

	r := agent.NewResponder(providers(&mock.Provider{
		CompleteFn: func(context.Context, tabula.Request) (string, error) {
			return "", errors.New("connection refused")
		},
	}))
	text, err := r.Reply(context.Background(), validConfig(), nil, "")
	var genErr *tabula.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, tabula.StageReply, genErr.Stage)
	assert.Equal(t, "Error: connection refused. Please check the model configuration.", text)
}
