// Package ollama provides a shared HTTP client for the Ollama API, used by
// both the generation provider and the embedder.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/parley/internal/httpclient"
)

const DefaultBaseURL = "http://localhost:11434"

// Client provides a shared HTTP client for Ollama API interactions.
type Client struct {
	baseURL    string
	httpClient *httpclient.Client
}

// NewClient creates a new Ollama client with the given timeout. Retries are
// disabled unless requested; generation calls must not be retried, failures
// there are terminal for the query.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return newClient(baseURL, timeout, 0)
}

// NewRetryingClient creates an Ollama client that retries transient failures.
// Used by the embedder during corpus indexing.
func NewRetryingClient(baseURL string, timeout time.Duration, maxRetries int) *Client {
	return newClient(baseURL, timeout, maxRetries)
}

func newClient(baseURL string, timeout time.Duration, maxRetries int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		baseURL: baseURL,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
			httpclient.WithMaxRetries(maxRetries),
			httpclient.WithBaseDelay(2*time.Second),
		),
	}
}

// Post makes a JSON POST request to the Ollama API.
func (c *Client) Post(ctx context.Context, endpoint string, payload interface{}) (*http.Response, error) {
	url := c.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	return resp, nil
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}
