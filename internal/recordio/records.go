// Package recordio reads and writes the newline-delimited batch files
// shared by every provider adapter: embedding record batches, query
// judgments, and the source corpus.
package recordio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"vecbench/internal/domain"
)

// scanBufSize bounds a single JSONL line; article chunks plus a 384-dim
// vector stay well under this.
const scanBufSize = 4 << 20

// ReadRecords loads one batch file.
func ReadRecords(path string) ([]domain.EmbeddingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []domain.EmbeddingRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec domain.EmbeddingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if rec.Dim == 0 {
			rec.Dim = len(rec.Vector)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadRecordSet loads and concatenates several batch files into one
// logical record set, then validates it: every vector must have the same
// dimension, and a chunk id may only repeat with byte-identical content.
func ReadRecordSet(paths []string) ([]domain.EmbeddingRecord, error) {
	var all []domain.EmbeddingRecord
	for _, p := range paths {
		records, err := ReadRecords(p)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	if err := Validate(all); err != nil {
		return nil, err
	}
	return all, nil
}

// Validate enforces the batch integrity rules.
func Validate(records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim := records[0].Dim
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		if len(rec.Vector) != rec.Dim {
			return fmt.Errorf("%w: record %q declares dim %d but carries %d values",
				domain.ErrDataIntegrity, rec.ChunkID, rec.Dim, len(rec.Vector))
		}
		if rec.Dim != dim {
			return fmt.Errorf("%w: record %q has dim %d, batch dim is %d",
				domain.ErrDataIntegrity, rec.ChunkID, rec.Dim, dim)
		}
		if j, ok := seen[rec.ChunkID]; ok {
			if rec.Text != records[j].Text {
				return fmt.Errorf("%w: duplicate chunk id %q with differing content",
					domain.ErrDataIntegrity, rec.ChunkID)
			}
			continue
		}
		seen[rec.ChunkID] = i
	}
	return nil
}

// WriteRecords writes one batch file, one JSON record per line.
func WriteRecords(path string, records []domain.EmbeddingRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

// BatchPath names the n-th batch file for a prefix, matching the
// converted-dump layout (prefix_batch_0000.jsonl).
func BatchPath(dir, prefix string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_batch_%04d.jsonl", prefix, n))
}

// ListBatchFiles returns the batch files under dir for a prefix, in
// lexical (= batch number) order.
func ListBatchFiles(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_batch_*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
