package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vecbench/internal/domain"
)

func TestNewFixedChunker_RejectsBadParams(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 1},
		{"zero overlap", 100, 0},
		{"negative overlap", 100, -5},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFixedChunker(tc.size, tc.overlap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
		})
	}
}

func TestChunk_ReferenceWindows(t *testing.T) {
	c, err := NewFixedChunker(100, 20)
	require.NoError(t, err)

	doc := domain.Document{DocID: "d1", Text: strings.Repeat("x", 250)}
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	starts := []int{0, 80, 160, 240}
	for i, ch := range chunks {
		assert.Equal(t, starts[i], ch.StartOffset)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "d1", ch.DocID)
		assert.LessOrEqual(t, ch.EndOffset-ch.StartOffset, 100)
	}
	// last chunk is the short tail
	assert.Equal(t, 240, chunks[3].StartOffset)
	assert.Equal(t, 250, chunks[3].EndOffset)
	assert.Equal(t, 10, len(chunks[3].Text))
}

func TestChunk_OverlapAndCoverage(t *testing.T) {
	c, err := NewFixedChunker(64, 16)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 37) // 370 chars, not a multiple of the stride
	chunks, err := c.Chunk(domain.Document{DocID: "d2", Text: text})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(text), chunks[len(chunks)-1].EndOffset)
	for i := 0; i+1 < len(chunks); i++ {
		cur, next := chunks[i], chunks[i+1]
		if i+2 < len(chunks) {
			assert.Equal(t, 16, cur.EndOffset-next.StartOffset, "overlap between chunks %d and %d", i, i+1)
		}
		// no gaps regardless of position
		assert.LessOrEqual(t, next.StartOffset, cur.EndOffset)
		assert.Equal(t, text[cur.StartOffset:cur.EndOffset], cur.Text)
	}
}

func TestChunk_Idempotent(t *testing.T) {
	c, err := NewFixedChunker(50, 10)
	require.NoError(t, err)

	doc := domain.Document{DocID: "d3", Text: strings.Repeat("wiki ", 60)}
	first, err := c.Chunk(doc)
	require.NoError(t, err)
	second, err := c.Chunk(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunk_EdgeCases(t *testing.T) {
	c, err := NewFixedChunker(100, 20)
	require.NoError(t, err)

	empty, err := c.Chunk(domain.Document{DocID: "e", Text: ""})
	require.NoError(t, err)
	assert.Empty(t, empty)

	short, err := c.Chunk(domain.Document{DocID: "s", Text: "tiny"})
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, "tiny", short[0].Text)
	assert.Equal(t, 0, short[0].StartOffset)
	assert.Equal(t, 4, short[0].EndOffset)
	assert.Equal(t, "s:0", short[0].ChunkID)
}
