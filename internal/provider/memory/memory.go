// Package memory is an in-process brute-force provider. It is the
// zero-cost baseline every managed vendor is compared against, and the
// test double for the pipeline.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"vecbench/internal/domain"
)

type entry struct {
	id     string
	vector []float32
}

// Provider stores vectors in memory and searches by exact cosine
// similarity.
type Provider struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
	index     map[string]int
}

func New() *Provider { return &Provider{index: make(map[string]int)} }

func (p *Provider) Name() string { return "memory" }

func (p *Provider) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.NewProviderError(p.Name(), "init", 0, false,
			domain.ErrInvalidConfig)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dimension = dimension
	p.entries = nil
	p.index = make(map[string]int)
	return nil
}

// Ingest upserts records by chunk id, last write wins. Records with the
// wrong dimension are rejected individually and counted in the report.
func (p *Provider) Ingest(_ context.Context, records []domain.EmbeddingRecord) (domain.IngestReport, error) {
	report := domain.IngestReport{Provider: p.Name(), Attempted: len(records)}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dimension == 0 {
		report.Failed = len(records)
		return report, domain.NewProviderError(p.Name(), "ingest", 0, false,
			errors.New("store not initialized"))
	}
	for _, rec := range records {
		if len(rec.Vector) != p.dimension {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, rec.ChunkID)
			report.Errors = append(report.Errors, "vector dimension mismatch: "+rec.ChunkID)
			continue
		}
		if i, ok := p.index[rec.ChunkID]; ok {
			p.entries[i].vector = rec.Vector
		} else {
			p.index[rec.ChunkID] = len(p.entries)
			p.entries = append(p.entries, entry{id: rec.ChunkID, vector: rec.Vector})
		}
		report.Succeeded++
	}
	return report, nil
}

func (p *Provider) Search(_ context.Context, queryID string, vector []float32, k int) (domain.SearchResult, error) {
	start := time.Now()
	p.mu.RLock()
	defer p.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	type scored struct {
		id    string
		score float64
	}
	scores := make([]scored, len(p.entries))
	for i, e := range p.entries {
		scores[i] = scored{id: e.id, score: cosine(vector, e.vector)}
	}
	// stable keeps insertion order on equal scores
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	ranked := make([]string, 0, k)
	for i := 0; i < k; i++ {
		ranked = append(ranked, scores[i].id)
	}
	return domain.SearchResult{
		QueryID:        queryID,
		RankedChunkIDs: ranked,
		LatencyMs:      float64(time.Since(start)) / float64(time.Millisecond),
	}, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
