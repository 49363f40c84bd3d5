package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mia-cx/docsearch/internal/output"
	"github.com/mia-cx/docsearch/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the manifest whenever the JSONL corpus changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, f)
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
	cmd.Flags().BoolVar(&f.noTUI, "no-tui", true, "Disable the TUI progress bar, use plain text output")

	return cmd
}

func runWatch(cmd *cobra.Command, f buildFlags) error {
	out := output.New(cmd.OutOrStdout())
	if f.jsonl == "" {
		return fmt.Errorf("--jsonl is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, werr := watch.New(f.jsonl, watch.DefaultDebounce)
	if werr != nil {
		return werr
	}
	defer w.Stop()
	go w.Run(ctx)

	out.Status("👀", "watching "+f.jsonl+" for changes")
	if buildErr := runBuild(cmd, f); buildErr != nil {
		out.Errorf("initial build failed: %v", buildErr)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changes():
			out.Status("🔁", "corpus changed, rebuilding")
			if buildErr := runBuild(cmd, f); buildErr != nil {
				out.Errorf("rebuild failed: %v", buildErr)
				slog.Error("rebuild failed", slog.String("error", buildErr.Error()))
				continue
			}
			out.Success("rebuild complete")
		case watchErr := <-w.Errors():
			slog.Warn("watch error", slog.String("error", watchErr.Error()))
		}
	}
}

