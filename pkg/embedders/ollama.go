package embedders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/ollama"
)

// Global mutex to serialize Ollama embedding requests.
// Ollama's llama runner crashes when receiving concurrent embedding requests.
var ollamaEmbedMu sync.Mutex

// OllamaEmbedder generates embeddings through Ollama's /api/embeddings
// endpoint. Requests are retried a bounded number of times; the retriever
// treats a persistent failure at load time as "embedding backend
// unavailable" and falls back to lexical scoring for the whole load cycle.
type OllamaEmbedder struct {
	config *config.EmbedderConfig
	client *ollama.Client
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewOllamaEmbedderFromConfig(cfg *config.EmbedderConfig) (*OllamaEmbedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return &OllamaEmbedder{
		config: cfg,
		client: ollama.NewRetryingClient(cfg.Host, time.Duration(cfg.Timeout)*time.Second, cfg.MaxRetries),
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	slog.Debug("Ollama embedding request", "model", e.config.Model, "text_length", len(text))

	request := ollamaEmbedRequest{
		Model:  e.config.Model,
		Prompt: text,
	}

	resp, err := e.client.Post(ctx, "/api/embeddings", request)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding from Ollama")
	}

	return response.Embedding, nil
}

func (e *OllamaEmbedder) GetModel() string {
	return e.config.Model
}
