package tabula

// Provider identities accepted in ModelConfig.Provider. OpenAI, Azure and
// custom endpoints all speak the OpenAI chat completions protocol.
const (
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderCustom    = "custom"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// DefaultSystemPrompt is the system prompt seeded into a fresh model
// configuration.
const DefaultSystemPrompt = "You are a professional data analysis assistant. You interpret data " +
	"and write Python code that performs the analysis the user asks for."

// ModelConfig selects and parameterizes the language model. It is shared
// by the whole process and can be overridden per session.
type ModelConfig struct {
	Provider     string  `json:"provider"`
	BaseURL      string  `json:"base_url"`
	APIKey       string  `json:"api_key"`
	ModelName    string  `json:"model_name"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
}

// DefaultModelConfig returns the configuration used when none is stored.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:     ProviderOpenAI,
		BaseURL:      "https://api.openai.com/v1",
		ModelName:    "gpt-3.5-turbo",
		Temperature:  0.7,
		MaxTokens:    2000,
		SystemPrompt: DefaultSystemPrompt,
	}
}

// WithDefaults fills zero fields from DefaultModelConfig. The API key is
// never defaulted.
func (c ModelConfig) WithDefaults() ModelConfig {
	d := DefaultModelConfig()
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.BaseURL == "" && (c.Provider == ProviderOpenAI || c.Provider == "") {
		c.BaseURL = d.BaseURL
	}
	if c.ModelName == "" && c.Provider == ProviderOpenAI {
		c.ModelName = d.ModelName
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	return c
}

// ModelConfigStore persists the shared model configuration.
type ModelConfigStore interface {
	Load() (ModelConfig, error)
	Save(cfg ModelConfig) error
}
