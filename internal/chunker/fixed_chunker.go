package chunker

import (
	"fmt"
	"strconv"

	"vecbench/internal/domain"
)

// FixedChunker splits text into fixed-size character windows with overlap.
type FixedChunker struct {
	chunkSize int
	overlap   int
}

// NewFixedChunker validates the window parameters up front. Bad
// parameters abort before any document is touched.
func NewFixedChunker(chunkSize, overlap int) (*FixedChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap <= 0 {
		return nil, fmt.Errorf("%w: overlap %d must be positive", domain.ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidConfig, overlap, chunkSize)
	}
	return &FixedChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk emits windows [off, min(off+size, len)) with stride size-overlap.
// The final chunk may be shorter than chunkSize; an empty document yields
// no chunks. Re-running on the same input produces byte-identical output.
func (c *FixedChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	text := document.Text
	if len(text) == 0 {
		return nil, nil
	}
	stride := c.chunkSize - c.overlap
	var chunks []domain.Chunk
	idx := 0
	for off := 0; off < len(text); off += stride {
		end := off + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, domain.Chunk{
			ChunkID:     document.DocID + ":" + strconv.Itoa(off),
			DocID:       document.DocID,
			Index:       idx,
			Text:        text[off:end],
			StartOffset: off,
			EndOffset:   end,
		})
		idx++
	}
	return chunks, nil
}
