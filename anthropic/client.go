package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fwojciec/tabula"
)

// Interface compliance check.
var _ tabula.Provider = (*Client)(nil)

// Client implements [tabula.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends req to the Messages API and returns the text of the reply.
func (c *Client) Complete(ctx context.Context, req tabula.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseHTTPError(resp)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	var b strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic: empty response")
	}
	return b.String(), nil
}

func buildRequest(req tabula.Request) apiRequest {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	system, msgs := convertMessages(req.SystemPrompt, req.Messages)
	return apiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    msgs,
		Temperature: req.Temperature,
	}
}

// convertMessages moves system messages into the system prompt, since the
// Messages API only accepts user and assistant turns, and merges
// consecutive turns of the same role, since the API requires them to
// alternate.
func convertMessages(systemPrompt string, msgs []tabula.ChatMessage) (string, []apiMessage) {
	system := []string{}
	if systemPrompt != "" {
		system = append(system, systemPrompt)
	}
	var result []apiMessage
	for _, m := range msgs {
		if m.Role == tabula.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		if n := len(result); n > 0 && result[n-1].Role == string(m.Role) {
			result[n-1].Content += "\n\n" + m.Content
			continue
		}
		result = append(result, apiMessage{Role: string(m.Role), Content: m.Content})
	}
	return strings.Join(system, "\n\n"), result
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return fmt.Errorf("anthropic: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("anthropic: %s: %s", apiErr.Error.Type, apiErr.Error.Message)
}
