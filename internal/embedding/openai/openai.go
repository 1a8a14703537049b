package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"vecbench/internal/embedding"
)

// Client is an OpenAI-compatible embeddings client. It batches inputs
// per request and truncates over-long texts to the model's input budget.
type Client struct {
	baseURL    string
	apiKey     string
	spec       embedding.ModelSpec
	client     *http.Client
	maxRetries int
	log        *zap.Logger

	// EmbedBatch may run from several workers at once
	truncated atomic.Int64
}

// Config configures the OpenAI-compatible embeddings client. APIKey is
// already resolved by the caller; this package never reads the env.
type Config struct {
	BaseURL string
	APIKey  string
	Spec    embedding.ModelSpec
	Timeout time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if err := cfg.Spec.Validate(); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, errors.New("missing embeddings API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		spec:       cfg.Spec,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
		log:        log,
	}, nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.spec.Dimension }

// ModelInfo returns the pinned model identifier.
func (c *Client) ModelInfo() string { return c.spec.Name }

// Truncated reports how many inputs were cut to the model's input budget
// so far.
func (c *Client) Truncated() int { return int(c.truncated.Load()) }

// EmbedBatch returns one vector per input text, in input order. Inputs
// over the model's token budget are truncated, warned about, and still
// embedded, never dropped.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	inputs := make([]string, len(texts))
	for i, t := range texts {
		cut, wasCut := c.spec.Truncate(t)
		if wasCut {
			c.truncated.Add(1)
			c.log.Warn("input truncated to model budget",
				zap.Int("index", i),
				zap.Int("original_chars", len(t)),
				zap.Int("kept_chars", len(cut)))
		}
		inputs[i] = cut
	}

	body := struct {
		Input      []string `json:"input"`
		Model      string   `json:"model"`
		Dimensions int      `json:"dimensions,omitempty"`
	}{Input: inputs, Model: c.spec.Name, Dimensions: c.spec.Dimension}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, fmt.Errorf("embeddings request failed: %s", resp.Status)
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings request failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			if attempt < c.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, err
		}

		var out struct {
			Data []struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, err
		}
		if len(out.Data) != len(inputs) {
			return nil, fmt.Errorf("embeddings response returned %d vectors for %d inputs", len(out.Data), len(inputs))
		}
		vectors := make([][]float32, len(inputs))
		for _, d := range out.Data {
			if d.Index < 0 || d.Index >= len(vectors) {
				return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
			}
			if len(d.Embedding) != c.spec.Dimension {
				return nil, fmt.Errorf("embeddings response dimension %d, want %d", len(d.Embedding), c.spec.Dimension)
			}
			vectors[d.Index] = d.Embedding
		}
		for i, v := range vectors {
			if v == nil {
				return nil, fmt.Errorf("embeddings response missing vector for input %d", i)
			}
		}
		return vectors, nil
	}
	return nil, errors.New("no embedding returned")
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
