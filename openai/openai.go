// Package openai implements [tabula.Provider] for OpenAI-compatible chat
// completion endpoints: OpenAI itself, Azure OpenAI deployments and
// self-hosted servers speaking the same protocol.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fwojciec/tabula"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

const (
	defaultModel      = "gpt-3.5-turbo"
	defaultAPIVersion = "2024-06-01"
)

// Interface compliance check.
var _ tabula.Provider = (*Client)(nil)

// Client implements [tabula.Provider] with the chat completions API.
type Client struct {
	client *sdk.Client
	model  string
}

type settings struct {
	baseURL    string
	azure      bool
	apiVersion string
	httpClient *http.Client
	maxRetries int
	model      string
}

// Option configures a [Client].
type Option func(*settings)

// WithBaseURL sets the endpoint, for example http://localhost:8080/v1.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithAzure addresses an Azure OpenAI resource at the base URL. The
// request model names the deployment.
func WithAzure(apiVersion string) Option {
	return func(s *settings) {
		s.azure = true
		if apiVersion != "" {
			s.apiVersion = apiVersion
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithMaxRetries sets how often failed requests are retried.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.maxRetries = n }
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

// New creates a [Client] authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	s := settings{apiVersion: defaultAPIVersion, maxRetries: 2, model: defaultModel}
	for _, o := range opts {
		o(&s)
	}
	var options []option.RequestOption
	switch {
	case s.azure:
		options = append(options, azure.WithEndpoint(s.baseURL, s.apiVersion), azure.WithAPIKey(apiKey))
	default:
		if s.baseURL != "" {
			options = append(options, option.WithBaseURL(s.baseURL))
		}
		options = append(options, option.WithAPIKey(apiKey))
	}
	if s.httpClient != nil {
		options = append(options, option.WithHTTPClient(s.httpClient))
	}
	options = append(options, option.WithMaxRetries(s.maxRetries))

	client := sdk.NewClient(options...)
	return &Client{client: &client, model: s.model}
}

// Complete sends req as a chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, req tabula.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	params := sdk.ChatCompletionNewParams{
		Messages: ConvertMessages(req.SystemPrompt, req.Messages),
		Model:    model,
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai: HTTP %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// ConvertMessages builds the message list: the system prompt first, then
// the chat messages in order. Exported for testing.
func ConvertMessages(systemPrompt string, msgs []tabula.ChatMessage) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, sdk.SystemMessage(systemPrompt))
	}
	for _, m := range msgs {
		switch m.Role {
		case tabula.RoleUser:
			out = append(out, sdk.UserMessage(m.Content))
		case tabula.RoleAssistant:
			out = append(out, sdk.AssistantMessage(m.Content))
		case tabula.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content))
		}
	}
	return out
}
