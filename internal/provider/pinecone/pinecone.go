// Package pinecone is a REST adapter to a Pinecone serverless index,
// created with the service defaults (cosine metric, aws/us-east-1).
package pinecone

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode"

	"vecbench/internal/domain"
)

// Pinecone recommends 100 vectors per upsert.
const upsertBatchSize = 100

// Provider talks to one Pinecone serverless index.
type Provider struct {
	controlURL string
	indexName  string
	apiKey     string
	timeout    time.Duration
	client     *http.Client

	// host of the index data plane, resolved by Init
	dataURL string
}

// Config carries already-resolved connection details.
type Config struct {
	ControlURL string // defaults to https://api.pinecone.io
	APIKey     string
	IndexName  string
	Timeout    time.Duration
}

func New(cfg Config) *Provider {
	if cfg.ControlURL == "" {
		cfg.ControlURL = "https://api.pinecone.io"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		controlURL: cfg.ControlURL,
		indexName:  cfg.IndexName,
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		client:     &http.Client{},
	}
}

func (p *Provider) Name() string { return "pinecone" }

// Init creates the serverless index if it does not exist and resolves
// the index host for data-plane calls.
func (p *Provider) Init(ctx context.Context, dimension int) error {
	host, err := p.describeHost(ctx)
	if err == nil && host != "" {
		p.dataURL = "https://" + host
		return nil
	}

	body := map[string]any{
		"name":      p.indexName,
		"dimension": dimension,
		"metric":    "cosine",
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  "aws",
				"region": "us-east-1",
			},
		},
	}
	var created struct {
		Host string `json:"host"`
	}
	if err := p.doJSON(ctx, http.MethodPost, p.controlURL+"/indexes", body, &created); err != nil {
		return err
	}
	if created.Host == "" {
		// creation is async; poll the describe endpoint
		for i := 0; i < 30; i++ {
			host, err := p.describeHost(ctx)
			if err == nil && host != "" {
				p.dataURL = "https://" + host
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
		return domain.NewProviderError(p.Name(), "init", 0, false,
			fmt.Errorf("index %q never became ready", p.indexName))
	}
	p.dataURL = "https://" + created.Host
	return nil
}

func (p *Provider) describeHost(ctx context.Context) (string, error) {
	var desc struct {
		Host string `json:"host"`
	}
	err := p.doJSON(ctx, http.MethodGet, p.controlURL+"/indexes/"+p.indexName, nil, &desc)
	if err != nil {
		return "", err
	}
	return desc.Host, nil
}

// Ingest upserts records in batches of 100. Ids must be ASCII for
// Pinecone, so unsafe ids are replaced by a stable md5 form and the
// original kept in metadata.
func (p *Provider) Ingest(ctx context.Context, records []domain.EmbeddingRecord) (domain.IngestReport, error) {
	report := domain.IngestReport{Provider: p.Name(), Attempted: len(records)}
	if p.dataURL == "" {
		err := domain.NewProviderError(p.Name(), "ingest", 0, false, fmt.Errorf("index host not resolved, call Init first"))
		report.Failed = len(records)
		report.Errors = append(report.Errors, err.Error())
		return report, err
	}
	for off := 0; off < len(records); off += upsertBatchSize {
		end := off + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[off:end]
		vectors := make([]map[string]any, len(batch))
		for i, rec := range batch {
			vectors[i] = map[string]any{
				"id":     sanitizeID(rec.ChunkID),
				"values": rec.Vector,
				"metadata": map[string]any{
					"original_id": rec.ChunkID,
					"doc_id":      rec.DocID,
					"title":       rec.Title,
					"text":        rec.Text,
					"chunk_index": rec.ChunkIndex,
					"text_length": rec.TextLength,
				},
			}
		}
		body := map[string]any{"vectors": vectors}
		if err := p.doJSON(ctx, http.MethodPost, p.dataURL+"/vectors/upsert", body, nil); err != nil {
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
		"vector":          vector,
		"topK":            k,
		"includeMetadata": true,
	}
	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	start := time.Now()
	err := p.doJSON(ctx, http.MethodPost, p.dataURL+"/query", req, &resp)
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return domain.SearchResult{QueryID: queryID, LatencyMs: latency, Err: err}, err
	}
	ranked := make([]string, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		id := m.ID
		if orig, ok := m.Metadata["original_id"].(string); ok && orig != "" {
			id = orig
		}
		ranked = append(ranked, id)
	}
	return domain.SearchResult{QueryID: queryID, RankedChunkIDs: ranked, LatencyMs: latency}, nil
}

func (p *Provider) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)
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

// sanitizeID keeps ASCII ids as-is and replaces the rest with a stable
// hashed form, matching how the batch files were originally ingested.
func sanitizeID(id string) string {
	for _, r := range id {
		if r > unicode.MaxASCII {
			sum := md5.Sum([]byte(id))
			return "doc_" + hex.EncodeToString(sum[:])
		}
	}
	return id
}
