package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"snowbrief/internal/config"
	"snowbrief/internal/types"
)

// Generation parameters for briefing synthesis. Temperature is kept moderate:
// the briefing should read naturally but stay anchored to the forecast data
// in the prompt.
const (
	generationTemperature     = 0.7
	generationTopP            = 0.95
	generationTopK            = 40
	generationMaxOutputTokens = 8192
)

// --- Wire types (generativelanguage API) ---

type generateContentRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// GeminiClient calls the Google generative-language API to synthesize
// briefing text. The model is asked for a JSON response; validation of that
// JSON against the briefing contract happens downstream.
type GeminiClient struct {
	base    *BaseClient
	baseURL string
	apiKey  string
	model   string
}

// NewGeminiClient creates a GeminiClient from the AI upstream configuration.
func NewGeminiClient(cfg config.AIConfig, opts ...BaseClientOption) *GeminiClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &GeminiClient{
		base:    NewBaseClient(httpClient, "gemini", DefaultRetryPolicy(), "", opts...),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// GenerateText sends a prompt to the model and returns the raw response text
// of the first candidate.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	payload := generateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      generationTemperature,
			TopP:             generationTopP,
			TopK:             generationTopK,
			MaxOutputTokens:  generationMaxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal generation request", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build generation request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.NewAppError(
			types.ErrCodeUpstreamAI,
			fmt.Sprintf("generation request returned %d", resp.StatusCode),
			nil,
		)
	}

	var parsed generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamAI, "failed to decode generation response", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", types.NewAppError(types.ErrCodeUpstreamAI, "model returned no candidates", nil)
	}

	text := ""
	for _, part := range parsed.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", types.NewAppError(types.ErrCodeUpstreamAI, "model returned an empty response", nil)
	}

	return text, nil
}
