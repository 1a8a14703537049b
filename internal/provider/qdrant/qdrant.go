// Package qdrant is a minimal REST adapter to a Qdrant collection,
// using the service's defaults (cosine distance, no tuning).
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vecbench/internal/domain"
)

const upsertBatchSize = 100

// Provider talks to one Qdrant collection over its HTTP API.
type Provider struct {
	url        string
	apiKey     string
	collection string
	timeout    time.Duration
	client     *http.Client
}

// Config carries already-resolved connection details.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		timeout:    timeout,
		client:     &http.Client{},
	}
}

func (p *Provider) Name() string { return "qdrant" }

// Init creates the collection if missing. Qdrant answers 200 for an
// existing collection with the same schema.
func (p *Provider) Init(ctx context.Context, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := p.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", p.url, p.collection), body, nil); err != nil {
		return err
	}
	return nil
}

// Ingest upserts records in fixed-size batches. A failed batch is
// recorded and the remaining batches still run.
func (p *Provider) Ingest(ctx context.Context, records []domain.EmbeddingRecord) (domain.IngestReport, error) {
	report := domain.IngestReport{Provider: p.Name(), Attempted: len(records)}
	for off := 0; off < len(records); off += upsertBatchSize {
		end := off + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[off:end]
		points := make([]map[string]any, len(batch))
		for i, rec := range batch {
			points[i] = map[string]any{
				"id":     pointID(rec.ChunkID),
				"vector": rec.Vector,
				"payload": map[string]any{
					"chunk_id": rec.ChunkID,
					"doc_id":   rec.DocID,
					"title":    rec.Title,
					"text":     rec.Text,
				},
			}
		}
		body := map[string]any{"points": points}
		url := fmt.Sprintf("%s/collections/%s/points?wait=true", p.url, p.collection)
		if err := p.doJSON(ctx, http.MethodPut, url, body, nil); err != nil {
			report.Failed += len(batch)
			for _, rec := range batch {
				report.FailedIDs = append(report.FailedIDs, rec.ChunkID)
			}
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Succeeded += len(batch)
	}
	return report, nil
}

func (p *Provider) Search(ctx context.Context, queryID string, vector []float32, k int) (domain.SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": []string{"chunk_id"},
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	start := time.Now()
	err := p.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", p.url, p.collection), req, &resp)
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return domain.SearchResult{QueryID: queryID, LatencyMs: latency, Err: err}, err
	}
	ranked := make([]string, 0, len(resp.Result))
	for _, r := range resp.Result {
		if id, ok := r.Payload["chunk_id"].(string); ok {
			ranked = append(ranked, id)
		}
	}
	return domain.SearchResult{QueryID: queryID, RankedChunkIDs: ranked, LatencyMs: latency}, nil
}

func (p *Provider) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("api-key", p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return domain.NewProviderError(p.Name(), method+" "+url, 0, true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return domain.NewProviderError(p.Name(), method+" "+url, resp.StatusCode, retryable,
			fmt.Errorf("unexpected status %s", resp.Status))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// pointID maps a chunk id onto Qdrant's id space. Qdrant only accepts
// unsigned ints or UUIDs, so the chunk id is folded into a stable UUID.
func pointID(chunkID string) string {
	return uuidFrom(chunkID)
}
