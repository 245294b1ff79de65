// Package embed converts descriptive text into fixed-dimension embedding
// vectors through an external embedding service, batching requests to stay
// under the provider's requests-per-minute ceiling.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ClientConfig holds configuration for the embedding service client.
type ClientConfig struct {
	APIKey  string
	Model   string        // default: multilingual-embed-v1
	BaseURL string        // default: https://api.openai.com
	Timeout time.Duration // default: 60s — batches of 100 texts take a while
}

// Client issues batch embedding requests against the provider's
// /v1/embeddings endpoint.
type Client struct {
	cfg    ClientConfig
	client *http.Client
}

// NewClient creates an embedding service client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = "multilingual-embed-v1"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// embeddingRequest is the request body for POST /v1/embeddings.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the response body from POST /v1/embeddings. The
// provider returns vectors in input order; Index is echoed back but there is
// no stronger correlation key.
type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch generates embeddings for the given texts, one request for the
// whole batch. The returned slice has the same length and order as texts.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	jsonData, err := json.Marshal(embeddingRequest{Model: c.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(respData.Data) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(respData.Data), len(texts))
	}

	vectors := make([][]float32, len(respData.Data))
	for i, d := range respData.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.cfg.Model
}
