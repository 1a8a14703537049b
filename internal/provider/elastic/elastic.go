// Package elastic is a REST adapter to an Elasticsearch index with a
// dense_vector mapping (cosine similarity, index defaults otherwise).
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vecbench/internal/domain"
)

const bulkBatchSize = 1000

// Provider talks to one Elasticsearch index over the REST API.
type Provider struct {
	endpoint  string
	apiKey    string
	indexName string
	dimension int
	timeout   time.Duration
	client    *http.Client
}

// Config carries already-resolved connection details. Index names must
// be lowercase for Elasticsearch.
type Config struct {
	Endpoint  string
	APIKey    string
	IndexName string
	Timeout   time.Duration
}

func New(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:    cfg.APIKey,
		indexName: strings.ToLower(cfg.IndexName),
		timeout:   timeout,
		client:    &http.Client{},
	}
}

func (p *Provider) Name() string { return "elasticsearch" }

// Init creates the index with a dense_vector mapping if missing. Ingest
// turns replicas and refresh off around the bulk load and puts the
// index's prior settings back when it finishes.
func (p *Provider) Init(ctx context.Context, dimension int) error {
	p.dimension = dimension

	exists, err := p.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":          map[string]any{"type": "keyword"},
				"doc_id":      map[string]any{"type": "keyword"},
				"title":       map[string]any{"type": "text"},
				"text":        map[string]any{"type": "text"},
				"chunk_index": map[string]any{"type": "integer"},
				"text_length": map[string]any{"type": "integer"},
				"embedding": map[string]any{
					"type":       "dense_vector",
					"dims":       dimension,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
	return p.doJSON(ctx, http.MethodPut, p.endpoint+"/"+p.indexName, body, nil)
}

// Ingest bulk-indexes records with `index` actions, so re-ingesting a
// chunk id replaces the document. Per-item failures are collected from
// the bulk response instead of aborting the batch. Replicas and refresh
// are disabled for the load and restored to whatever the index had
// before.
func (p *Provider) Ingest(ctx context.Context, records []domain.EmbeddingRecord) (domain.IngestReport, error) {
	report := domain.IngestReport{Provider: p.Name()}
	saved, err := p.currentSettings(ctx)
	if err != nil {
		return report, err
	}
	if err := p.updateSettings(ctx, "0", "-1"); err != nil {
		return report, err
	}
	for off := 0; off < len(records); off += bulkBatchSize {
		end := off + bulkBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[off:end]
		succeeded, failedIDs, err := p.bulkIndex(ctx, batch)
		report.Attempted += len(batch)
		report.Succeeded += succeeded
		report.Failed += len(batch) - succeeded
		report.FailedIDs = append(report.FailedIDs, failedIDs...)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
		}
	}
	// put serving settings back after the load
	if err := p.restoreSettings(ctx, saved); err != nil {
		report.Errors = append(report.Errors, err.Error())
	}
	return report, nil
}

func (p *Provider) bulkIndex(ctx context.Context, batch []domain.EmbeddingRecord) (int, []string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range batch {
		action := map[string]any{"index": map[string]any{"_index": p.indexName, "_id": rec.ChunkID}}
		if err := enc.Encode(action); err != nil {
			return 0, nil, err
		}
		if err := enc.Encode(rec); err != nil {
			return 0, nil, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.endpoint+"/_bulk", &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	p.authorize(req)
	resp, err := p.client.Do(req)
	if err != nil {
		ids := make([]string, len(batch))
		for i, rec := range batch {
			ids[i] = rec.ChunkID
		}
		return 0, ids, domain.NewProviderError(p.Name(), "bulk", 0, true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		ids := make([]string, len(batch))
		for i, rec := range batch {
			ids[i] = rec.ChunkID
		}
		return 0, ids, domain.NewProviderError(p.Name(), "bulk", resp.StatusCode, resp.StatusCode >= 500,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, nil, domain.NewProviderError(p.Name(), "bulk", 0, false, err)
	}
	succeeded := 0
	var failedIDs []string
	var firstErr error
	for _, item := range out.Items {
		for _, res := range item {
			if res.Status < 300 {
				succeeded++
			} else {
				failedIDs = append(failedIDs, res.ID)
				if firstErr == nil && res.Error != nil {
					firstErr = domain.NewProviderError(p.Name(), "bulk item", res.Status, res.Status >= 500,
						fmt.Errorf("%s", res.Error.Reason))
				}
			}
		}
	}
	return succeeded, failedIDs, firstErr
}

// indexSettings is the pair of serving settings toggled around a bulk
// load.
type indexSettings struct {
	replicas string
	refresh  string
}

// currentSettings reads the index settings so restoreSettings can put
// back exactly what was there before the load.
func (p *Provider) currentSettings(ctx context.Context) (indexSettings, error) {
	var out map[string]struct {
		Settings struct {
			Index struct {
				NumberOfReplicas string `json:"number_of_replicas"`
				RefreshInterval  string `json:"refresh_interval"`
			} `json:"index"`
		} `json:"settings"`
	}
	if err := p.doJSON(ctx, http.MethodGet, p.endpoint+"/"+p.indexName+"/_settings", nil, &out); err != nil {
		return indexSettings{}, err
	}
	// settings still at their defaults are omitted from the response
	saved := indexSettings{replicas: "1", refresh: "1s"}
	for _, idx := range out {
		if v := idx.Settings.Index.NumberOfReplicas; v != "" {
			saved.replicas = v
		}
		if v := idx.Settings.Index.RefreshInterval; v != "" {
			saved.refresh = v
		}
	}
	return saved, nil
}

func (p *Provider) updateSettings(ctx context.Context, replicas, refresh string) error {
	settings := map[string]any{
		"index": map[string]any{
			"number_of_replicas": replicas,
			"refresh_interval":   refresh,
		},
	}
	return p.doJSON(ctx, http.MethodPut, p.endpoint+"/"+p.indexName+"/_settings", settings, nil)
}

func (p *Provider) restoreSettings(ctx context.Context, saved indexSettings) error {
	if err := p.updateSettings(ctx, saved.replicas, saved.refresh); err != nil {
		return err
	}
	return p.doJSON(ctx, http.MethodPost, p.endpoint+"/"+p.indexName+"/_refresh", nil, nil)
}

func (p *Provider) Search(ctx context.Context, queryID string, vector []float32, k int) (domain.SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	req := map[string]any{
		"knn": map[string]any{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"size":    k,
		"_source": false,
	}
	var resp struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	start := time.Now()
	err := p.doJSON(ctx, http.MethodPost, p.endpoint+"/"+p.indexName+"/_search", req, &resp)
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return domain.SearchResult{QueryID: queryID, LatencyMs: latency, Err: err}, err
	}
	ranked := make([]string, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		ranked = append(ranked, h.ID)
	}
	return domain.SearchResult{QueryID: queryID, RankedChunkIDs: ranked, LatencyMs: latency}, nil
}

func (p *Provider) indexExists(ctx context.Context) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodHead, p.endpoint+"/"+p.indexName, nil)
	if err != nil {
		return false, err
	}
	p.authorize(req)
	resp, err := p.client.Do(req)
	if err != nil {
		return false, domain.NewProviderError(p.Name(), "head index", 0, true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, domain.NewProviderError(p.Name(), "head index", resp.StatusCode, resp.StatusCode >= 500,
			fmt.Errorf("unexpected status %s", resp.Status))
	}
	return true, nil
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
	p.authorize(req)
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

func (p *Provider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+p.apiKey)
	}
}
