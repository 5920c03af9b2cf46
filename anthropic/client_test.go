package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textResponse = `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"print(df.head())"}],"model":"m","stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)

		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(textResponse))
	}))
	defer srv.Close()

	temp := 0.7
	client := anthropic.New("test-api-key", anthropic.WithBaseURL(srv.URL))
	got, err := client.Complete(context.Background(), tabula.Request{
		Model:        "claude-opus-4-20250514",
		SystemPrompt: "You are helpful.",
		Messages: []tabula.ChatMessage{
			{Role: tabula.RoleUser, Content: "Hello"},
			{Role: tabula.RoleAssistant, Content: "Hi"},
			{Role: tabula.RoleSystem, Content: "Code ran without errors."},
			{Role: tabula.RoleUser, Content: "Thanks"},
		},
		MaxTokens:   1024,
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "print(df.head())", got)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))

	assert.Equal(t, "claude-opus-4-20250514", body["model"])
	assert.Equal(t, float64(1024), body["max_tokens"])
	assert.Equal(t, "You are helpful.\n\nCode ran without errors.", body["system"])
	assert.Equal(t, 0.7, body["temperature"])
	_, streaming := body["stream"]
	assert.False(t, streaming)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	msg0 := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg0["role"])
	assert.Equal(t, "Hello", msg0["content"])
	msg2 := msgs[2].(map[string]any)
	assert.Equal(t, "Thanks", msg2["content"])
}

func TestClient_DefaultModelAndMaxTokens(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		_, _ = w.Write([]byte(textResponse))
	}))
	defer srv.Close()

	client := anthropic.New("k", anthropic.WithBaseURL(srv.URL+"/"))
	_, err := client.Complete(context.Background(), tabula.Request{
		Messages: []tabula.ChatMessage{{Role: tabula.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
	assert.Equal(t, float64(8192), body["max_tokens"])
	_, hasSystem := body["system"]
	assert.False(t, hasSystem)
	_, hasTemp := body["temperature"]
	assert.False(t, hasTemp)
}

func TestClient_ConsecutiveRolesMerged(t *testing.T) {
	t.Parallel()

	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		_, _ = w.Write([]byte(textResponse))
	}))
	defer srv.Close()

	_, err := anthropic.New("k", anthropic.WithBaseURL(srv.URL)).Complete(context.Background(), tabula.Request{
		Messages: []tabula.ChatMessage{
			{Role: tabula.RoleUser, Content: "one"},
			{Role: tabula.RoleUser, Content: "two"},
		},
	})
	require.NoError(t, err)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "one\n\ntwo", body.Messages[0].Content)
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := anthropic.New("bad", anthropic.WithBaseURL(srv.URL)).Complete(context.Background(), tabula.Request{})
	require.Error(t, err)
	assert.Equal(t, "anthropic: authentication_error: invalid x-api-key", err.Error())
}

func TestClient_HTTPErrorNonJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	_, err := anthropic.New("k", anthropic.WithBaseURL(srv.URL)).Complete(context.Background(), tabula.Request{})
	require.Error(t, err)
	assert.Equal(t, "anthropic: HTTP 502: bad gateway", err.Error())
}

func TestClient_EmptyResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	_, err := anthropic.New("k", anthropic.WithBaseURL(srv.URL)).Complete(context.Background(), tabula.Request{})
	assert.EqualError(t, err, "anthropic: empty response")
}

func TestClient_InvalidRequest(t *testing.T) {
	t.Parallel()

	temp := 3.0
	_, err := anthropic.New("k", anthropic.WithBaseURL("http://127.0.0.1:0")).Complete(context.Background(), tabula.Request{Temperature: &temp})
	assert.ErrorIs(t, err, tabula.ErrValidation)
}
