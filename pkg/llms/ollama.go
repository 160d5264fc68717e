package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/ollama"
)

// OllamaProvider generates text through Ollama's /api/generate endpoint.
// Streaming is never requested; only the complete response is consumed.
type OllamaProvider struct {
	config *config.LLMConfig
	client *ollama.Client
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	Error     string `json:"error,omitempty"`
}

func NewOllamaProviderFromConfig(cfg *config.LLMConfig) (*OllamaProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return &OllamaProvider{
		config: cfg,
		client: ollama.NewClient(cfg.Host, time.Duration(cfg.Timeout)*time.Second),
	}, nil
}

// Generate sends the prompt and returns the complete response text. The
// system preamble, when present, is prepended to the prompt since
// /api/generate has no separate system message slot.
func (p *OllamaProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	fullPrompt := prompt
	if system != "" {
		fullPrompt = system + "\n\n" + prompt
	}

	request := ollamaGenerateRequest{
		Model:  p.config.Model,
		Prompt: fullPrompt,
		Stream: false,
	}
	if p.config.Temperature > 0 || p.config.MaxTokens > 0 {
		request.Options = &ollamaOptions{
			Temperature: p.config.Temperature,
			NumPredict:  p.config.MaxTokens,
		}
	}

	resp, err := p.client.Post(ctx, "/api/generate", request)
	if err != nil {
		return "", fmt.Errorf("could not reach Ollama at %s: %w", p.client.BaseURL(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response ollamaGenerateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Error != "" {
		return "", fmt.Errorf("Ollama API error: %s", response.Error)
	}

	return response.Response, nil
}

func (p *OllamaProvider) GetModelName() string {
	return p.config.Model
}

func (p *OllamaProvider) Close() error {
	return nil
}
