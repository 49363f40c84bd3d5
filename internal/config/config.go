// Package config loads build/query configuration from a YAML file with
// environment variable overrides, following the precedence CLI flags >
// environment variables > config file > hardcoded defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete docsearch configuration: chunking, embedding,
// HNSW graph parameters, and remote (vLLM) endpoint settings.
type Config struct {
	Chunk  ChunkConfig  `yaml:"chunk" json:"chunk"`
	Embed  EmbedConfig  `yaml:"embed" json:"embed"`
	HNSW   HNSWConfig   `yaml:"hnsw" json:"hnsw"`
	Build  BuildConfig  `yaml:"build" json:"build"`
	Fusion FusionConfig `yaml:"fusion" json:"fusion"`
}

// ChunkConfig configures the size+overlap splitter.
type ChunkConfig struct {
	Size     int  `yaml:"size" json:"size"`
	Overlap  int  `yaml:"overlap" json:"overlap"`
	Disabled bool `yaml:"disabled" json:"disabled"`
}

// EmbedConfig configures the embedding driver.
type EmbedConfig struct {
	Model  string `yaml:"model" json:"model"`
	Dims   int    `yaml:"dims" json:"dims"`
	UseVLLM     bool   `yaml:"use_vllm" json:"use_vllm"`
	VLLMURL     string `yaml:"vllm_url" json:"vllm_url"`
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
	BatchSize   int    `yaml:"batch_size" json:"batch_size"`
}

// HNSWConfig configures the graph builder and searcher.
type HNSWConfig struct {
	M              int `yaml:"m" json:"m"`
	EfConstruction int `yaml:"ef_construction" json:"ef_construction"`
	EfDefault      int `yaml:"ef_default" json:"ef_default"`
}

// BuildConfig configures the manifest/shard writer.
type BuildConfig struct {
	OutDir        string `yaml:"out_dir" json:"out_dir"`
	ShardSizeRows int    `yaml:"shard_size_rows" json:"shard_size_rows"`
}

// FusionConfig holds the RRF constant, per-mode fusion weights, title
// boost and result count. Only TopN is read by the query CLI;
// internal/fusion uses its own RRFConstant, 1.5 title boost and
// WeightsForMode values, so the other fields do not change ranking.
type FusionConfig struct {
	RRFConstant  int     `yaml:"rrf_constant" json:"rrf_constant"`
	LexicalModeLexWeight float64 `yaml:"lexical_mode_lex_weight" json:"lexical_mode_lex_weight"`
	LexicalModeSemWeight float64 `yaml:"lexical_mode_sem_weight" json:"lexical_mode_sem_weight"`
	SemanticModeLexWeight float64 `yaml:"semantic_mode_lex_weight" json:"semantic_mode_lex_weight"`
	SemanticModeSemWeight float64 `yaml:"semantic_mode_sem_weight" json:"semantic_mode_sem_weight"`
	TitleBoost   float64 `yaml:"title_boost" json:"title_boost"`
	TopN         int     `yaml:"top_n" json:"top_n"`
}

// Default returns the configuration's hardcoded defaults, matching the
// reference values named throughout the component design.
func Default() *Config {
	return &Config{
		Chunk: ChunkConfig{
			Size:     512,
			Overlap:  128,
			Disabled: false,
		},
		Embed: EmbedConfig{
			Model:       "e5-small",
			Dims:        384,
			UseVLLM:     false,
			VLLMURL:     "",
			Concurrency: 4,
			BatchSize:   32,
		},
		HNSW: HNSWConfig{
			M:              16,
			EfConstruction: 200,
			EfDefault:      64,
		},
		Build: BuildConfig{
			OutDir:        "./dist/search",
			ShardSizeRows: 4096,
		},
		Fusion: FusionConfig{
			RRFConstant:           60,
			LexicalModeLexWeight:  1.0,
			LexicalModeSemWeight:  0.3,
			SemanticModeLexWeight: 0.3,
			SemanticModeSemWeight: 1.0,
			TitleBoost:            1.5,
			TopN:                  10,
		},
	}
}

// Load reads configuration from dir/docsearch.yaml (if present), merges
// it over the defaults, then applies environment variable overrides.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	path := filepath.Join(dir, "docsearch.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil // no config file is fine, defaults apply
	}
	return c.loadYAML(path)
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Chunk.Size != 0 {
		c.Chunk.Size = other.Chunk.Size
	}
	if other.Chunk.Overlap != 0 {
		c.Chunk.Overlap = other.Chunk.Overlap
	}
	c.Chunk.Disabled = other.Chunk.Disabled

	if other.Embed.Model != "" {
		c.Embed.Model = other.Embed.Model
	}
	if other.Embed.Dims != 0 {
		c.Embed.Dims = other.Embed.Dims
	}
	c.Embed.UseVLLM = c.Embed.UseVLLM || other.Embed.UseVLLM
	if other.Embed.VLLMURL != "" {
		c.Embed.VLLMURL = other.Embed.VLLMURL
	}
	if other.Embed.Concurrency != 0 {
		c.Embed.Concurrency = other.Embed.Concurrency
	}
	if other.Embed.BatchSize != 0 {
		c.Embed.BatchSize = other.Embed.BatchSize
	}

	if other.HNSW.M != 0 {
		c.HNSW.M = other.HNSW.M
	}
	if other.HNSW.EfConstruction != 0 {
		c.HNSW.EfConstruction = other.HNSW.EfConstruction
	}
	if other.HNSW.EfDefault != 0 {
		c.HNSW.EfDefault = other.HNSW.EfDefault
	}

	if other.Build.OutDir != "" {
		c.Build.OutDir = other.Build.OutDir
	}
	if other.Build.ShardSizeRows != 0 {
		c.Build.ShardSizeRows = other.Build.ShardSizeRows
	}

	if other.Fusion.RRFConstant != 0 {
		c.Fusion.RRFConstant = other.Fusion.RRFConstant
	}
	if other.Fusion.LexicalModeLexWeight != 0 {
		c.Fusion.LexicalModeLexWeight = other.Fusion.LexicalModeLexWeight
	}
	if other.Fusion.LexicalModeSemWeight != 0 {
		c.Fusion.LexicalModeSemWeight = other.Fusion.LexicalModeSemWeight
	}
	if other.Fusion.SemanticModeLexWeight != 0 {
		c.Fusion.SemanticModeLexWeight = other.Fusion.SemanticModeLexWeight
	}
	if other.Fusion.SemanticModeSemWeight != 0 {
		c.Fusion.SemanticModeSemWeight = other.Fusion.SemanticModeSemWeight
	}
	if other.Fusion.TitleBoost != 0 {
		c.Fusion.TitleBoost = other.Fusion.TitleBoost
	}
	if other.Fusion.TopN != 0 {
		c.Fusion.TopN = other.Fusion.TopN
	}
}

// applyEnvOverrides applies the remote-embed environment variables named
// in the external interfaces design: VLLM_URL/VLLM_EMBED_URL,
// VLLM_CONCURRENCY, VLLM_BATCH_SIZE, USE_VLLM.
func (c *Config) applyEnvOverrides() {
	if v := firstNonEmpty(os.Getenv("VLLM_URL"), os.Getenv("VLLM_EMBED_URL")); v != "" {
		c.Embed.VLLMURL = v
	}
	if v := os.Getenv("VLLM_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embed.Concurrency = n
		}
	}
	if v := os.Getenv("VLLM_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embed.BatchSize = n
		}
	}
	if v := os.Getenv("USE_VLLM"); v != "" {
		c.Embed.UseVLLM = strings.EqualFold(v, "true") || v == "1"
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Validate checks the configuration for obviously invalid values.
// ConfigError conditions (missing model id, invalid dims) are the
// caller's responsibility to raise from this.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if !c.Chunk.Disabled {
		if c.Chunk.Overlap <= 0 || c.Chunk.Overlap >= c.Chunk.Size {
			return fmt.Errorf("chunk.overlap must satisfy 0 < overlap < size, got overlap=%d size=%d", c.Chunk.Overlap, c.Chunk.Size)
		}
	}
	if c.Embed.Model == "" {
		return fmt.Errorf("embed.model must be set")
	}
	if c.Embed.Dims <= 0 {
		return fmt.Errorf("embed.dims must be positive, got %d", c.Embed.Dims)
	}
	if c.HNSW.M <= 0 {
		return fmt.Errorf("hnsw.m must be positive, got %d", c.HNSW.M)
	}
	if c.HNSW.EfConstruction <= 0 {
		return fmt.Errorf("hnsw.ef_construction must be positive, got %d", c.HNSW.EfConstruction)
	}
	if c.Build.ShardSizeRows <= 0 {
		return fmt.Errorf("build.shard_size_rows must be positive, got %d", c.Build.ShardSizeRows)
	}
	return nil
}

// WriteYAML writes the configuration to path as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
