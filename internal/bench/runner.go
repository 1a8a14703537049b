// Package bench orchestrates the benchmark pipeline: chunk the corpus,
// embed in parallel batches, ingest the shared record set into each
// provider, and run the query workload while collecting timings.
package bench

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vecbench/internal/domain"
	"vecbench/internal/recordio"
)

// Runner drives one benchmark run. Providers share the identical record
// set; that is the fairness invariant of the whole comparison.
type Runner struct {
	chunker       domain.Chunker
	embedder      domain.Embedder
	log           *zap.Logger
	embedWorkers  int
	searchWorkers int
	batchSize     int
}

// Options bounds the worker pools and embedding batch size.
type Options struct {
	EmbedWorkers  int
	SearchWorkers int
	BatchSize     int
}

func NewRunner(chunker domain.Chunker, embedder domain.Embedder, log *zap.Logger, opts Options) *Runner {
	if opts.EmbedWorkers <= 0 {
		opts.EmbedWorkers = 4
	}
	if opts.SearchWorkers <= 0 {
		opts.SearchWorkers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		chunker:       chunker,
		embedder:      embedder,
		log:           log,
		embedWorkers:  opts.EmbedWorkers,
		searchWorkers: opts.SearchWorkers,
		batchSize:     opts.BatchSize,
	}
}

// ChunkCorpus chunks every document in order. Chunking is deterministic,
// so re-running yields byte-identical output.
func (r *Runner) ChunkCorpus(docs []domain.Document) ([]domain.Chunk, map[string]domain.Document, error) {
	byDoc := make(map[string]domain.Document, len(docs))
	var chunks []domain.Chunk
	for _, doc := range docs {
		cs, err := r.chunker.Chunk(doc)
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, cs...)
		byDoc[doc.DocID] = doc
	}
	r.log.Info("corpus chunked", zap.Int("documents", len(docs)), zap.Int("chunks", len(chunks)))
	return chunks, byDoc, nil
}

// EmbedSummary accounts for the embedding step.
type EmbedSummary struct {
	Batches       int
	FailedBatches int
	Errors        []string
}

// EmbedChunks embeds chunks through a bounded worker pool. Batches share
// no state, so workers need no locking; a failed batch is logged and
// skipped without aborting its siblings. Output preserves chunk order.
func (r *Runner) EmbedChunks(ctx context.Context, chunks []domain.Chunk, docs map[string]domain.Document) ([]domain.EmbeddingRecord, EmbedSummary, error) {
	type batch struct {
		start, end int
	}
	var batches []batch
	for off := 0; off < len(chunks); off += r.batchSize {
		end := off + r.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, batch{start: off, end: end})
	}

	summary := EmbedSummary{Batches: len(batches)}
	vectors := make([][]float32, len(chunks))
	failed := make([]bool, len(batches))
	errs := make([]error, len(batches))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.embedWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bi := range jobs {
				b := batches[bi]
				texts := make([]string, b.end-b.start)
				for i := b.start; i < b.end; i++ {
					texts[i-b.start] = chunks[i].Text
				}
				vecs, err := r.embedder.EmbedBatch(ctx, texts)
				if err != nil {
					failed[bi] = true
					errs[bi] = err
					r.log.Warn("embedding batch failed", zap.Int("batch", bi), zap.Error(err))
					continue
				}
				for i, v := range vecs {
					vectors[b.start+i] = v
				}
			}
		}()
	}
	for bi := range batches {
		jobs <- bi
	}
	close(jobs)
	wg.Wait()

	dim := r.embedder.Dimension()
	var records []domain.EmbeddingRecord
	for bi, b := range batches {
		if failed[bi] {
			summary.FailedBatches++
			summary.Errors = append(summary.Errors, errs[bi].Error())
			continue
		}
		for i := b.start; i < b.end; i++ {
			ch := chunks[i]
			records = append(records, domain.EmbeddingRecord{
				ChunkID:    ch.ChunkID,
				DocID:      ch.DocID,
				Title:      docs[ch.DocID].Title,
				Text:       ch.Text,
				ChunkIndex: ch.Index,
				TextLength: len(ch.Text),
				Vector:     vectors[i],
				Dim:        dim,
			})
		}
	}
	r.log.Info("chunks embedded",
		zap.Int("records", len(records)),
		zap.Int("batches", summary.Batches),
		zap.Int("failed_batches", summary.FailedBatches))
	return records, summary, nil
}

// WriteRecordFiles persists records as numbered batch files.
func WriteRecordFiles(dir, prefix string, records []domain.EmbeddingRecord, perFile int) ([]string, error) {
	if perFile <= 0 {
		perFile = 1000
	}
	var paths []string
	n := 0
	for off := 0; off < len(records); off += perFile {
		end := off + perFile
		if end > len(records) {
			end = len(records)
		}
		path := recordio.BatchPath(dir, prefix, n)
		if err := recordio.WriteRecords(path, records[off:end]); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		n++
	}
	return paths, nil
}

// IngestFiles feeds batch files to one provider, skipping files already
// listed in the provider's progress file so interrupted runs resume
// instead of re-ingesting. The progress file records each batch's
// counts, and skipped batches roll those counts into the returned
// report, so the totals always cover every run against this progress
// file. Stops adding once maxVectors is reached.
func (r *Runner) IngestFiles(ctx context.Context, p domain.Provider, files []string, progressPath string, maxVectors int) (domain.IngestReport, error) {
	total := domain.IngestReport{Provider: p.Name()}

	done, err := loadCompleted(progressPath)
	if err != nil {
		return total, err
	}
	for _, file := range files {
		name := filepath.Base(file)
		if prior, ok := done[name]; ok {
			total.Attempted += prior.succeeded + prior.failed
			total.Succeeded += prior.succeeded
			total.Failed += prior.failed
			r.log.Debug("batch already ingested", zap.String("provider", p.Name()), zap.String("file", name))
			continue
		}
		if maxVectors > 0 && total.Succeeded >= maxVectors {
			r.log.Info("vector cap reached", zap.String("provider", p.Name()), zap.Int("cap", maxVectors))
			break
		}
		records, err := recordio.ReadRecords(file)
		if err != nil {
			// fatal for this batch only
			total.Errors = append(total.Errors, err.Error())
			r.log.Warn("skipping unreadable batch", zap.String("file", name), zap.Error(err))
			continue
		}
		if maxVectors > 0 && total.Succeeded+len(records) > maxVectors {
			records = records[:maxVectors-total.Succeeded]
		}
		report, err := p.Ingest(ctx, records)
		total.Attempted += report.Attempted
		total.Succeeded += report.Succeeded
		total.Failed += report.Failed
		total.FailedIDs = append(total.FailedIDs, report.FailedIDs...)
		total.Errors = append(total.Errors, report.Errors...)
		if err != nil {
			r.log.Warn("batch ingest failed", zap.String("provider", p.Name()), zap.String("file", name), zap.Error(err))
			continue
		}
		if err := markCompleted(progressPath, name, report.Succeeded, report.Failed); err != nil {
			return total, err
		}
		r.log.Info("batch ingested",
			zap.String("provider", p.Name()),
			zap.String("file", name),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed))
	}
	return total, nil
}

// RunQueries embeds every query once, then issues searches through a
// bounded worker pool. Latency is end to end from submission, so time
// spent waiting for a worker slot counts. Each result carries its own
// query id; completion order is irrelevant.
func (r *Runner) RunQueries(ctx context.Context, p domain.Provider, judgments map[string]domain.QueryJudgment, k int) ([]domain.SearchResult, error) {
	ids := make([]string, 0, len(judgments))
	for id := range judgments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	texts := make([]string, len(ids))
	for i, id := range ids {
		texts[i] = judgments[id].QueryText
	}
	queryVectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, len(ids))
	jobs := make(chan int)
	submitted := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < r.searchWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := p.Search(ctx, ids[i], queryVectors[i], k)
				res.QueryID = ids[i]
				res.LatencyMs = float64(time.Since(submitted)) / float64(time.Millisecond)
				if err != nil {
					res.Err = err
					r.log.Warn("query failed", zap.String("provider", p.Name()), zap.String("query", ids[i]), zap.Error(err))
				}
				results[i] = res
			}
		}()
	}
	for i := range ids {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results, nil
}

// batchTally is one ledger line's counts for a completed batch file.
type batchTally struct {
	succeeded int
	failed    int
}

func loadCompleted(path string) (map[string]batchTally, error) {
	done := make(map[string]batchTally)
	if path == "" {
		return done, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return done, nil
		}
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 {
			continue
		}
		succeeded, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		failed, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		done[fields[0]] = batchTally{succeeded: succeeded, failed: failed}
	}
	return done, sc.Err()
}

func markCompleted(path, name string, succeeded, failed int) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s %d %d\n", name, succeeded, failed)
	return err
}
