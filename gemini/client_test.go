package gemini_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessages(t *testing.T) {
	t.Parallel()

	system, got := gemini.ConvertMessages("Be precise.", []tabula.ChatMessage{
		{Role: tabula.RoleUser, Content: "Hello"},
		{Role: tabula.RoleSystem, Content: "Uploaded file: a.csv"},
		{Role: tabula.RoleUser, Content: "Describe it"},
		{Role: tabula.RoleAssistant, Content: "Sure."},
	})

	assert.Equal(t, "Be precise.\n\nUploaded file: a.csv", system)
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	require.Len(t, got[0].Parts, 2)
	assert.Equal(t, "Hello", got[0].Parts[0].Text)
	assert.Equal(t, "Describe it", got[0].Parts[1].Text)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, "Sure.", got[1].Parts[0].Text)
}

func TestConvertMessages_NoSystem(t *testing.T) {
	t.Parallel()

	system, got := gemini.ConvertMessages("", []tabula.ChatMessage{{Role: tabula.RoleUser, Content: "hi"}})
	assert.Empty(t, system)
	require.Len(t, got, 1)
}

func TestClient_Complete(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"result_df = df.describe()"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c, err := gemini.New(context.Background(), "test-key", gemini.WithBaseURL(srv.URL), gemini.WithModel("gemini-test"))
	require.NoError(t, err)

	temp := 0.5
	got, err := c.Complete(context.Background(), tabula.Request{
		SystemPrompt: "You write pandas.",
		Messages:     []tabula.ChatMessage{{Role: tabula.RoleUser, Content: "describe"}},
		MaxTokens:    100,
		Temperature:  &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "result_df = df.describe()", got)

	cfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(100), cfg["maxOutputTokens"])
	assert.Equal(t, 0.5, cfg["temperature"])
	_, hasSystem := body["systemInstruction"]
	assert.True(t, hasSystem)
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	c, err := gemini.New(context.Background(), "bad", gemini.WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), tabula.Request{
		Messages: []tabula.ChatMessage{{Role: tabula.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "gemini: "))
}
