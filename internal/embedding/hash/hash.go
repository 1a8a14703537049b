package hash

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"vecbench/internal/embedding"
)

// Embedder produces deterministic, L2-normalized vectors derived from a
// hash of the input text. It lets the full pipeline run offline; the
// vectors carry no semantic signal.
type Embedder struct {
	spec embedding.ModelSpec
}

// NewEmbedder creates a hash embedder for the given model spec.
func NewEmbedder(spec embedding.ModelSpec) (*Embedder, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Embedder{spec: spec}, nil
}

func (e *Embedder) Dimension() int    { return e.spec.Dimension }
func (e *Embedder) ModelInfo() string { return e.spec.Name }

// EmbedBatch returns one vector per input, in input order.
func (e *Embedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		cut, _ := e.spec.Truncate(t)
		vectors[i] = e.embed(cut)
	}
	return vectors, nil
}

func (e *Embedder) embed(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, e.spec.Dimension)
	for i := range vec {
		// stretch the digest over the vector by rehashing a counter
		word := binary.LittleEndian.Uint32(sum[(i*4)%(len(sum)-4):])
		if i > 0 && i%(len(sum)/4) == 0 {
			sum = sha256.Sum256(sum[:])
		}
		vec[i] = float32(word%2000)/1000.0 - 1.0
	}
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sq float64
	for _, v := range vec {
		sq += float64(v) * float64(v)
	}
	if sq == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sq))
	for i := range vec {
		vec[i] *= inv
	}
}
