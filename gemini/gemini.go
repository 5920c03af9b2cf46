// Package gemini implements [tabula.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating between tabula's
// chat messages and the Gemini API types.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192
)
