package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fwojciec/tabula"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ tabula.Provider = (*Client)(nil)

// Client implements [tabula.Provider] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

type settings struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*settings)

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	s := settings{model: defaultModel}
	for _, o := range opts {
		o(&s)
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Client{client: gc, model: s.model}, nil
}

// Complete sends req to the Gemini API and returns the text of the reply.
func (c *Client) Complete(ctx context.Context, req tabula.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	system, contents := ConvertMessages(req.SystemPrompt, req.Messages)
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, buildConfig(req, system))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func buildConfig(req tabula.Request, system string) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	return config
}

// ConvertMessages converts chat messages to genai Contents. System
// messages join the system prompt in the returned instruction; assistant
// turns become "model" turns; consecutive turns of one role are merged.
// Exported for testing.
func ConvertMessages(systemPrompt string, msgs []tabula.ChatMessage) (string, []*genai.Content) {
	var system []string
	if systemPrompt != "" {
		system = append(system, systemPrompt)
	}
	var result []*genai.Content
	for _, m := range msgs {
		role := "user"
		switch m.Role {
		case tabula.RoleSystem:
			system = append(system, m.Content)
			continue
		case tabula.RoleAssistant:
			role = "model"
		}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Parts = append(result[n-1].Parts, &genai.Part{Text: m.Content})
			continue
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return strings.Join(system, "\n\n"), result
}
