package recordio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"vecbench/internal/domain"
)

// judgmentLine is the wire form of a QueryJudgment; relevant ids are a
// JSON array on disk and a set in memory.
type judgmentLine struct {
	QueryID          string   `json:"query_id"`
	QueryText        string   `json:"query_text"`
	RelevantChunkIDs []string `json:"relevant_chunk_ids"`
}

// ReadJudgments loads a judgment file keyed by query id. A query id may
// appear only once.
func ReadJudgments(path string) (map[string]domain.QueryJudgment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]domain.QueryJudgment)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var jl judgmentLine
		if err := json.Unmarshal(raw, &jl); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if jl.QueryID == "" {
			return nil, fmt.Errorf("%s:%d: judgment without query_id", path, line)
		}
		if _, ok := out[jl.QueryID]; ok {
			return nil, fmt.Errorf("%w: duplicate judgment for query %q", domain.ErrDataIntegrity, jl.QueryID)
		}
		rel := make(map[string]struct{}, len(jl.RelevantChunkIDs))
		for _, id := range jl.RelevantChunkIDs {
			rel[id] = struct{}{}
		}
		out[jl.QueryID] = domain.QueryJudgment{
			QueryID:          jl.QueryID,
			QueryText:        jl.QueryText,
			RelevantChunkIDs: rel,
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// ReadDocuments loads the source corpus, one document per line.
func ReadDocuments(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []domain.Document
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if doc.DocID == "" {
			return nil, fmt.Errorf("%s:%d: document without doc_id", path, line)
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}
