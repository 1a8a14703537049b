package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"vecbench/internal/bench"
	"vecbench/internal/chunker"
	"vecbench/internal/config"
	"vecbench/internal/domain"
	"vecbench/internal/embedding"
	"vecbench/internal/embedding/hash"
	"vecbench/internal/embedding/openai"
	"vecbench/internal/eval"
	"vecbench/internal/provider"
	"vecbench/internal/provider/elastic"
	"vecbench/internal/provider/memory"
	"vecbench/internal/provider/pinecone"
	"vecbench/internal/provider/qdrant"
)

func buildRunner(cfg *config.AppConfig, logger *zap.Logger) (*bench.Runner, error) {
	ch, err := chunker.NewFixedChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}
	emb, err := buildEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	batchSize := 32
	if cfg.Embedder.OpenAI != nil {
		batchSize = cfg.Embedder.OpenAI.BatchSize
	}
	return bench.NewRunner(ch, emb, logger, bench.Options{
		EmbedWorkers:  cfg.Run.EmbedWorkers,
		SearchWorkers: cfg.Run.SearchWorkers,
		BatchSize:     batchSize,
	}), nil
}

func buildEmbedder(cfg *config.AppConfig, logger *zap.Logger) (domain.Embedder, error) {
	spec := embedding.ModelSpec{
		Name:           cfg.Embedder.Model.Name,
		Dimension:      cfg.Embedder.Model.Dimension,
		MaxInputTokens: cfg.Embedder.Model.MaxInputTokens,
	}
	switch cfg.Embedder.Type {
	case "hash":
		return hash.NewEmbedder(spec)
	case "openai":
		oc := cfg.Embedder.OpenAI
		return openai.NewClient(openai.Config{
			BaseURL: oc.BaseURL,
			APIKey:  os.Getenv(oc.APIKeyEnv),
			Spec:    spec,
			Timeout: time.Duration(oc.TimeoutSecs) * time.Second,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, cfg.Embedder.Type)
	}
}

// buildProviders resolves credentials from the environment here, at the
// composition root, and hands adapters ready-to-use configuration.
func buildProviders(cfg *config.AppConfig) (*provider.Registry, map[string]eval.Pricing, error) {
	registry := provider.NewRegistry()
	pricing := make(map[string]eval.Pricing)
	for _, pc := range cfg.Providers {
		timeout := time.Duration(pc.TimeoutSecs) * time.Second
		var p domain.Provider
		switch pc.Type {
		case "memory":
			p = memory.New()
		case "qdrant":
			p = qdrant.New(qdrant.Config{
				URL:        pc.Qdrant.URL,
				APIKey:     os.Getenv(pc.Qdrant.APIKeyEnv),
				Collection: pc.Qdrant.Collection,
				Timeout:    timeout,
			})
		case "pinecone":
			p = pinecone.New(pinecone.Config{
				ControlURL: pc.Pinecone.ControlURL,
				APIKey:     os.Getenv(pc.Pinecone.APIKeyEnv),
				IndexName:  pc.Pinecone.IndexName,
				Timeout:    timeout,
			})
		case "elasticsearch":
			p = elastic.New(elastic.Config{
				Endpoint:  pc.Elastic.Endpoint,
				APIKey:    os.Getenv(pc.Elastic.APIKeyEnv),
				IndexName: pc.Elastic.IndexName,
				Timeout:   timeout,
			})
		default:
			return nil, nil, fmt.Errorf("%w: unknown provider type %q", domain.ErrInvalidConfig, pc.Type)
		}
		if err := registry.Register(p); err != nil {
			return nil, nil, err
		}
		pricing[p.Name()] = pc.Pricing
	}
	return registry, pricing, nil
}

func ingestReportPath(dir, provider string) string {
	return filepath.Join(dir, "ingest_"+provider+"_report.json")
}

func writeIngestReport(dir string, rep domain.IngestReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ingestReportPath(dir, rep.Provider), data, 0o644)
}

func readIngestReport(dir, provider string) (domain.IngestReport, error) {
	var rep domain.IngestReport
	data, err := os.ReadFile(ingestReportPath(dir, provider))
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(data, &rep)
	return rep, err
}
