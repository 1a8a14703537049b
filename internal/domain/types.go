package domain

import "context"

// Document is a single article from the source dump.
type Document struct {
	DocID string `json:"doc_id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Chunk is a contiguous substring of a document, the unit of embedding
// and retrieval. ChunkID is derived from (DocID, StartOffset) so
// re-chunking the same document yields the same ids.
type Chunk struct {
	ChunkID     string
	DocID       string
	Index       int
	Text        string
	StartOffset int
	EndOffset   int
}

// EmbeddingRecord is one persisted chunk embedding. JSON field names
// match the batch file layout shared by every provider adapter.
type EmbeddingRecord struct {
	ChunkID    string    `json:"id"`
	DocID      string    `json:"doc_id"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	ChunkIndex int       `json:"chunk_index"`
	TextLength int       `json:"text_length"`
	Vector     []float32 `json:"embedding"`
	Dim        int       `json:"dim"`
}

// QueryJudgment is externally supplied ground truth for one query.
type QueryJudgment struct {
	QueryID          string              `json:"query_id"`
	QueryText        string              `json:"query_text"`
	RelevantChunkIDs map[string]struct{} `json:"-"`
}

// SearchResult is the outcome of one query against one provider.
// Failed calls produce a result with Err set rather than aborting the run.
type SearchResult struct {
	QueryID        string   `json:"query_id"`
	RankedChunkIDs []string `json:"ranked_chunk_ids"`
	LatencyMs      float64  `json:"latency_ms"`
	Err            error    `json:"-"`
}

// IngestReport accounts for every record offered to a provider, so a
// partial failure shows up as "N of M succeeded" instead of vanishing.
type IngestReport struct {
	Provider  string   `json:"provider"`
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ProviderReport is the per-provider aggregate for one benchmark run.
// Derived once, never mutated afterwards.
type ProviderReport struct {
	ProviderName     string   `json:"provider_name"`
	MAP              float64  `json:"map"`
	P50LatencyMs     float64  `json:"p50_latency_ms"`
	P95LatencyMs     float64  `json:"p95_latency_ms"`
	EstimatedCostUSD float64  `json:"estimated_cost_usd"`
	QueriesEvaluated int      `json:"queries_evaluated"`
	ExcludedQueryIDs []string `json:"excluded_query_ids,omitempty"`
	FailedQueries    int      `json:"failed_queries"`
	RecordsIngested  int      `json:"records_ingested"`
	RecordsAttempted int      `json:"records_attempted"`
}

// Chunker splits documents into chunks suitable for embedding.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts batches of text into fixed-dimension vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// Provider is one managed vector database under benchmark. Adapters
// receive already-resolved configuration; they never read credential
// storage themselves.
type Provider interface {
	Name() string
	Init(ctx context.Context, dimension int) error
	Ingest(ctx context.Context, records []EmbeddingRecord) (IngestReport, error)
	Search(ctx context.Context, queryID string, vector []float32, k int) (SearchResult, error)
}
