package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vecbench/internal/embedding"
)

func testSpec() embedding.ModelSpec {
	return embedding.ModelSpec{Name: "hash-test", Dimension: 384, MaxInputTokens: 256}
}

func TestEmbedBatch_Deterministic(t *testing.T) {
	e, err := NewEmbedder(testSpec())
	require.NoError(t, err)

	texts := []string{"alpha", "beta", "alpha"}
	v1, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	v2, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, v1, 3)
	assert.Equal(t, v1, v2)
	assert.Equal(t, v1[0], v1[2], "same text must embed identically")
	assert.NotEqual(t, v1[0], v1[1], "different texts should differ")
}

func TestEmbedBatch_DimensionAndNorm(t *testing.T) {
	e, err := NewEmbedder(testSpec())
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"some article text"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Len(t, vecs[0], 384)

	var sq float64
	for _, v := range vecs[0] {
		sq += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sq), 1e-5)
}

func TestNewEmbedder_RejectsBadSpec(t *testing.T) {
	_, err := NewEmbedder(embedding.ModelSpec{Name: "x", Dimension: 0, MaxInputTokens: 10})
	assert.Error(t, err)
	_, err = NewEmbedder(embedding.ModelSpec{Dimension: 8, MaxInputTokens: 10})
	assert.Error(t, err)
}
