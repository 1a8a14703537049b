package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vecbench/internal/domain"
	"vecbench/internal/eval"
)

// ChunkerConfig configures the fixed-size character chunker.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// ModelConfig pins the embedding model for the run.
type ModelConfig struct {
	Name           string `yaml:"name"`
	Dimension      int    `yaml:"dimension"`
	MaxInputTokens int    `yaml:"max_input_tokens"`
}

// OpenAIEmbedderConfig holds settings for the OpenAI-compatible
// embedder. The API key itself comes from the named env var, resolved in
// main, never stored here or in any artifact.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"` // "openai" or "hash"
	Model  ModelConfig           `yaml:"model"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
}

// PineconeConfig contains connection details for a Pinecone index.
type PineconeConfig struct {
	ControlURL string `yaml:"control_url,omitempty"`
	APIKeyEnv  string `yaml:"api_key_env"`
	IndexName  string `yaml:"index_name"`
}

// ElasticConfig contains connection details for an Elasticsearch index.
type ElasticConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
	IndexName string `yaml:"index_name"`
}

// ProviderConfig configures one provider under benchmark. Exactly one of
// the vendor sections matches Type; Pricing feeds the cost estimate.
type ProviderConfig struct {
	Type        string          `yaml:"type"` // memory, qdrant, pinecone, elasticsearch
	TimeoutSecs int             `yaml:"timeout_secs"`
	Pricing     eval.Pricing    `yaml:"pricing"`
	Qdrant      *QdrantConfig   `yaml:"qdrant,omitempty"`
	Pinecone    *PineconeConfig `yaml:"pinecone,omitempty"`
	Elastic     *ElasticConfig  `yaml:"elastic,omitempty"`
}

// RunConfig holds pipeline-wide knobs.
type RunConfig struct {
	DataDir        string `yaml:"data_dir"`
	BatchPrefix    string `yaml:"batch_prefix"`
	RecordsPerFile int    `yaml:"records_per_file"`
	MaxVectors     int    `yaml:"max_vectors"`
	TopK           int    `yaml:"top_k"`
	EmbedWorkers   int    `yaml:"embed_workers"`
	SearchWorkers  int    `yaml:"search_workers"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Chunker   ChunkerConfig    `yaml:"chunker"`
	Embedder  EmbedderConfig   `yaml:"embedder"`
	Providers []ProviderConfig `yaml:"providers"`
	Run       RunConfig        `yaml:"run"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Chunker: ChunkerConfig{ChunkSize: 1000, Overlap: 200},
		Embedder: EmbedderConfig{
			Type:  "hash",
			Model: ModelConfig{Name: "all-MiniLM-L6-v2", Dimension: 384, MaxInputTokens: 256},
		},
		Providers: []ProviderConfig{{Type: "memory"}},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 200
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hash"
	}
	if cfg.Embedder.Model.Name == "" {
		cfg.Embedder.Model.Name = "all-MiniLM-L6-v2"
	}
	if cfg.Embedder.Model.Dimension == 0 {
		cfg.Embedder.Model.Dimension = 384
	}
	if cfg.Embedder.Model.MaxInputTokens == 0 {
		cfg.Embedder.Model.MaxInputTokens = 256
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.TimeoutSecs == 0 {
			p.TimeoutSecs = 30
		}
		if p.Qdrant != nil && p.Qdrant.APIKeyEnv == "" {
			p.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
		}
		if p.Pinecone != nil && p.Pinecone.APIKeyEnv == "" {
			p.Pinecone.APIKeyEnv = "PINECONE_API_KEY"
		}
		if p.Elastic != nil && p.Elastic.APIKeyEnv == "" {
			p.Elastic.APIKeyEnv = "ELASTICSEARCH_API_KEY"
		}
	}
	if cfg.Run.DataDir == "" {
		cfg.Run.DataDir = "data/converted"
	}
	if cfg.Run.BatchPrefix == "" {
		cfg.Run.BatchPrefix = "wiki"
	}
	if cfg.Run.RecordsPerFile == 0 {
		cfg.Run.RecordsPerFile = 1000
	}
	if cfg.Run.MaxVectors == 0 {
		cfg.Run.MaxVectors = 10000
	}
	if cfg.Run.TopK == 0 {
		cfg.Run.TopK = 10
	}
	if cfg.Run.EmbedWorkers == 0 {
		cfg.Run.EmbedWorkers = 4
	}
	if cfg.Run.SearchWorkers == 0 {
		cfg.Run.SearchWorkers = 4
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Chunker.ChunkSize <= 0 || cfg.Chunker.Overlap <= 0 || cfg.Chunker.Overlap >= cfg.Chunker.ChunkSize {
		return fmt.Errorf("%w: chunker size %d / overlap %d", domain.ErrInvalidConfig, cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	}
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("%w: no providers configured", domain.ErrInvalidConfig)
	}
	for _, p := range cfg.Providers {
		switch p.Type {
		case "memory":
		case "qdrant":
			if p.Qdrant == nil || p.Qdrant.URL == "" || p.Qdrant.Collection == "" {
				return fmt.Errorf("%w: qdrant provider needs url and collection", domain.ErrInvalidConfig)
			}
		case "pinecone":
			if p.Pinecone == nil || p.Pinecone.IndexName == "" {
				return fmt.Errorf("%w: pinecone provider needs index_name", domain.ErrInvalidConfig)
			}
		case "elasticsearch":
			if p.Elastic == nil || p.Elastic.Endpoint == "" || p.Elastic.IndexName == "" {
				return fmt.Errorf("%w: elasticsearch provider needs endpoint and index_name", domain.ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("%w: unknown provider type %q", domain.ErrInvalidConfig, p.Type)
		}
	}
	return nil
}
