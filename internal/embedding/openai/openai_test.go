package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vecbench/internal/embedding"
)

func testSpec() embedding.ModelSpec {
	return embedding.ModelSpec{Name: "text-embedding-3-small", Dimension: 3, MaxInputTokens: 4}
}

func embeddingsHandler(t *testing.T, fail *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fail != nil && fail.Add(-1) >= 0 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		type datum struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		out := struct {
			Data []datum `json:"data"`
		}{}
		// answer out of order to prove index-based reassembly
		for i := len(req.Input) - 1; i >= 0; i-- {
			out.Data = append(out.Data, datum{Index: i, Embedding: []float32{float32(i), 0, 1}})
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

func TestEmbedBatch_OrderAndDimension(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, nil))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Spec: testSpec()}, nil)
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, []float32{float32(i), 0, 1}, v)
	}
}

func TestEmbedBatch_TruncatesOverLongInput(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = req.Input
		out := map[string]any{"data": []map[string]any{{"index": 0, "embedding": []float32{1, 0, 0}}}}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Spec: testSpec()}, nil)
	require.NoError(t, err)

	// 4 tokens * 4 chars = 16 char budget
	long := strings.Repeat("x", 100)
	_, err = c.EmbedBatch(context.Background(), []string{long})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Len(t, seen[0], 16)
	assert.Equal(t, 1, c.Truncated())
}

func TestEmbedBatch_RetriesServerErrors(t *testing.T) {
	var fail atomic.Int32
	fail.Store(2)
	srv := httptest.NewServer(embeddingsHandler(t, &fail))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Spec: testSpec()}, nil)
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k", Spec: embedding.ModelSpec{}}, nil)
	require.Error(t, err)
	_, err = NewClient(Config{Spec: testSpec()}, nil)
	require.Error(t, err)
}
