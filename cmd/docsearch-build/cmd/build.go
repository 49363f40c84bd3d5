package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mia-cx/docsearch/internal/buildpipeline"
	"github.com/mia-cx/docsearch/internal/buildui"
	"github.com/mia-cx/docsearch/internal/chunk"
	"github.com/mia-cx/docsearch/internal/config"
	"github.com/mia-cx/docsearch/internal/embed"
	"github.com/mia-cx/docsearch/internal/hnsw"
	"github.com/mia-cx/docsearch/internal/output"
)

// buildFlags holds the build command's flag surface, named exactly as
// spec'd: --jsonl --model --out --dtype --dims --shard-size
// --chunk-size --chunk-overlap --no-chunking --use-vllm --vllm-url
// --concurrency --batch-size.
type buildFlags struct {
	jsonl        string
	model        string
	out          string
	dtype        string
	dims         int
	shardSize    int
	chunkSize    int
	chunkOverlap int
	noChunking   bool
	useVLLM      bool
	vllmURL      string
	concurrency  int
	batchSize    int
	noTUI        bool
}

func newBuildCmd() *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a manifest, shards, and HNSW graph from a JSONL corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.jsonl, "jsonl", "", "Path to the JSONL document corpus (required)")
	cmd.Flags().StringVar(&f.model, "model", "", "Embedding model id")
	cmd.Flags().StringVar(&f.out, "out", "", "Output directory for the manifest, shards, and graph")
	cmd.Flags().StringVar(&f.dtype, "dtype", "fp32", "Vector dtype (only fp32 is supported)")
	cmd.Flags().IntVar(&f.dims, "dims", 0, "Embedding dimensionality")
	cmd.Flags().IntVar(&f.shardSize, "shard-size", 0, "Rows per vector shard")
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 0, "Chunk window size in runes")
	cmd.Flags().IntVar(&f.chunkOverlap, "chunk-overlap", 0, "Chunk window overlap in runes")
	cmd.Flags().BoolVar(&f.noChunking, "no-chunking", false, "Treat each document body as a single chunk")
	cmd.Flags().BoolVar(&f.useVLLM, "use-vllm", false, "Embed via a remote vLLM-compatible endpoint instead of the local hash embedder")
	cmd.Flags().StringVar(&f.vllmURL, "vllm-url", "", "vLLM embeddings endpoint URL")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Concurrent embedding batches in flight")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Chunks per embedding batch")
	cmd.Flags().BoolVar(&f.noTUI, "no-tui", false, "Disable the TUI progress bar, use plain text output")

	return cmd
}

func runBuild(cmd *cobra.Command, f buildFlags) error {
	out := output.New(cmd.OutOrStdout())

	if f.jsonl == "" {
		return fmt.Errorf("--jsonl is required")
	}
	if f.dtype != "" && f.dtype != "fp32" {
		return fmt.Errorf("unsupported --dtype %q: only fp32 is supported", f.dtype)
	}

	cfg, err := resolveBuildConfig(f)
	if err != nil {
		return err
	}

	lock := embed.NewFileLock(cfg.Build.OutDir)
	if err := lock.LockContext(cmd.Context(), 250*time.Millisecond); err != nil {
		return fmt.Errorf("acquire build lock: %w", err)
	}
	defer lock.Unlock()

	embedder, closeEmbedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	splitter := chunk.NewSizeOverlapSplitter(chunk.Options{
		Size:     cfg.Chunk.Size,
		Overlap:  cfg.Chunk.Overlap,
		Disabled: cfg.Chunk.Disabled,
	})

	tracker := buildui.NewTracker()
	renderer := buildui.New(tracker, stdoutFile(cmd), f.noTUI)
	renderer.Start()

	runner, err := buildpipeline.NewRunner(buildpipeline.Dependencies{
		Tracker:  tracker,
		Splitter: splitter,
		Embedder: embedder,
		HNSW: hnsw.BuilderConfig{
			M:              cfg.HNSW.M,
			EfConstruction: cfg.HNSW.EfConstruction,
		},
	})
	if err != nil {
		renderer.Finish()
		return fmt.Errorf("configure build runner: %w", err)
	}

	result, err := runner.Run(cmd.Context(), buildpipeline.Config{
		JSONLPath:      f.jsonl,
		OutDir:         cfg.Build.OutDir,
		ShardSizeRows:  cfg.Build.ShardSizeRows,
		EmbedBatchSize: cfg.Embed.BatchSize,
	})
	renderer.Finish()
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	out.Successf("built %d documents (%d chunks) into %s in %s",
		result.Documents, result.Chunks, cfg.Build.OutDir, result.Duration.Round(time.Millisecond))
	return nil
}

// resolveBuildConfig loads docsearch.yaml (if present) plus environment
// overrides, then overlays non-zero CLI flags on top, matching the
// CLI-flags > env-vars > config-file > defaults precedence.
func resolveBuildConfig(f buildFlags) (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}

	if f.model != "" {
		cfg.Embed.Model = f.model
	}
	if f.out != "" {
		cfg.Build.OutDir = f.out
	}
	if f.dims > 0 {
		cfg.Embed.Dims = f.dims
	}
	if f.shardSize > 0 {
		cfg.Build.ShardSizeRows = f.shardSize
	}
	if f.chunkSize > 0 {
		cfg.Chunk.Size = f.chunkSize
	}
	if f.chunkOverlap > 0 {
		cfg.Chunk.Overlap = f.chunkOverlap
	}
	if f.noChunking {
		cfg.Chunk.Disabled = true
	}
	if f.useVLLM {
		cfg.Embed.UseVLLM = true
	}
	if f.vllmURL != "" {
		cfg.Embed.VLLMURL = f.vllmURL
	}
	if f.concurrency > 0 {
		cfg.Embed.Concurrency = f.concurrency
	}
	if f.batchSize > 0 {
		cfg.Embed.BatchSize = f.batchSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildEmbedder constructs the embedding driver cfg describes: a
// cached remote vLLM embedder when enabled, the deterministic local
// hash embedder otherwise.
func buildEmbedder(cfg *config.Config) (embed.Embedder, func(), error) {
	if cfg.Embed.UseVLLM {
		if cfg.Embed.VLLMURL == "" {
			return nil, nil, fmt.Errorf("--use-vllm requires --vllm-url or VLLM_URL/VLLM_EMBED_URL")
		}
		remote := embed.NewRemoteEmbedder(embed.RemoteConfig{
			URL:         cfg.Embed.VLLMURL,
			Model:       cfg.Embed.Model,
			Dims:        cfg.Embed.Dims,
			Concurrency: cfg.Embed.Concurrency,
			BatchSize:   cfg.Embed.BatchSize,
		})
		cached := embed.NewCachedEmbedderWithDefaults(remote)
		return cached, func() { _ = cached.Close() }, nil
	}

	local := embed.NewLocalEmbedder(cfg.Embed.Dims)
	return local, func() { _ = local.Close() }, nil
}

func stdoutFile(cmd *cobra.Command) *os.File {
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return f
	}
	return os.Stdout
}
