// Package embedding produces fixed-dimension vectors from text via an
// external HTTP provider and enforces the dimension invariant. Grounded on
// ODSapper-CLIAIRMONITOR/internal/memory/embedding_lmstudio.go, wrapped in a
// sony/gobreaker circuit breaker so a down provider fails fast instead of
// timing out on every call.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/orbitalmind/kernel/internal/types"
	"github.com/sony/gobreaker"
)

// Client produces embeddings of a fixed dimension. Retries are the caller's
// responsibility; Client performs no silent dimension coercion.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}

// HTTPClient calls an OpenAI-embeddings-compatible HTTP endpoint.
type HTTPClient struct {
	baseURL   string
	model     string
	dimension int
	apiKey    string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
}

// NewHTTPClient builds a provider client for baseURL/model, enforcing dim.
func NewHTTPClient(baseURL, model string, dim int) *HTTPClient {
	return NewHTTPClientWithAPIKey(baseURL, model, dim, "")
}

// NewHTTPClientWithAPIKey is NewHTTPClient plus a bearer API key sent on
// every request — the key itself always comes from an environment
// variable (config.Config.System.EmbeddingAPIKey), never from YAML.
func NewHTTPClientWithAPIKey(baseURL, model string, dim int, apiKey string) *HTTPClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-provider",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &HTTPClient{
		baseURL:   baseURL,
		model:     model,
		dimension: dim,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 30 * time.Second},
		breaker:   cb,
	}
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns a vector of exactly Dimension() floats or an EmbeddingError.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.embedOnce(ctx, text)
	})
	if err != nil {
		return nil, types.NewError(types.KindEmbeddingError, "embed request failed", err)
	}
	return result.([]float32), nil
}

func (c *HTTPClient) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: text, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding provider error: %s - %s", resp.Status, string(respBody))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vectors")
	}

	vec := parsed.Data[0].Embedding
	if len(vec) != c.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: provider returned %d, configured %d", len(vec), c.dimension)
	}
	return vec, nil
}

// Model returns the configured embedding model identifier.
func (c *HTTPClient) Model() string { return c.model }

// Dimension returns the configured embedding dimension.
func (c *HTTPClient) Dimension() int { return c.dimension }
