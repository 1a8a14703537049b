package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vecbench/internal/domain"
)

func record(id string, vec ...float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{ChunkID: id, Vector: vec, Dim: len(vec)}
}

func TestIngest_BeforeInitIsRejected(t *testing.T) {
	p := New()
	// a zero-length vector must not slip past an uninitialized store
	report, err := p.Ingest(context.Background(), []domain.EmbeddingRecord{{ChunkID: "c1"}})
	require.Error(t, err)
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Succeeded)
}

func TestIngestAndSearch(t *testing.T) {
	p := New()
	ctx := context.Background()
	require.NoError(t, p.Init(ctx, 2))

	report, err := p.Ingest(ctx, []domain.EmbeddingRecord{
		record("c1", 1, 0),
		record("c2", 0, 1),
		record("c3", 0.7, 0.7),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	res, err := p.Search(ctx, "q1", []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "q1", res.QueryID)
	require.Len(t, res.RankedChunkIDs, 2)
	assert.Equal(t, "c1", res.RankedChunkIDs[0])
	assert.Equal(t, "c3", res.RankedChunkIDs[1])
	assert.GreaterOrEqual(t, res.LatencyMs, 0.0)
}

func TestIngest_ReportsDimensionRejects(t *testing.T) {
	p := New()
	ctx := context.Background()
	require.NoError(t, p.Init(ctx, 2))

	report, err := p.Ingest(ctx, []domain.EmbeddingRecord{
		record("ok", 1, 0),
		record("bad", 1, 0, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"bad"}, report.FailedIDs)
}

func TestIngest_UpsertIsLastWriteWins(t *testing.T) {
	p := New()
	ctx := context.Background()
	require.NoError(t, p.Init(ctx, 2))

	_, err := p.Ingest(ctx, []domain.EmbeddingRecord{record("c1", 1, 0)})
	require.NoError(t, err)
	// re-ingest the same id pointing the other way
	_, err = p.Ingest(ctx, []domain.EmbeddingRecord{record("c1", 0, 1), record("c2", 1, 0)})
	require.NoError(t, err)

	res, err := p.Search(ctx, "q", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res.RankedChunkIDs, 1)
	assert.Equal(t, "c1", res.RankedChunkIDs[0])
}

func TestSearch_KLargerThanStore(t *testing.T) {
	p := New()
	ctx := context.Background()
	require.NoError(t, p.Init(ctx, 2))
	_, err := p.Ingest(ctx, []domain.EmbeddingRecord{record("c1", 1, 0)})
	require.NoError(t, err)

	res, err := p.Search(ctx, "q", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, res.RankedChunkIDs, 1)
}
