package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mia-cx/docsearch/internal/chunk"
	"github.com/mia-cx/docsearch/internal/config"
	"github.com/mia-cx/docsearch/internal/embed"
	"github.com/mia-cx/docsearch/internal/fusion"
	"github.com/mia-cx/docsearch/internal/ingest"
	"github.com/mia-cx/docsearch/internal/lexical"
	"github.com/mia-cx/docsearch/internal/output"
	"github.com/mia-cx/docsearch/internal/queryengine"
	"github.com/mia-cx/docsearch/internal/scheduler"
	"github.com/mia-cx/docsearch/internal/workerproto"
)

// lexicalFieldOrder mirrors the union order internal/lexical indexes
// in (title, content, tags, aliases); the package keeps its own order
// slice unexported, so the fusion caller supplies an equivalent one
// built from the package's exported field-name constants.
var lexicalFieldOrder = []string{
	lexical.FieldTitle,
	lexical.FieldContent,
	lexical.FieldTags,
	lexical.FieldAliases,
}

type searchFlags struct {
	manifest     string
	baseURL      string
	corpus       string
	cachePath    string
	statePath    string
	disableCache bool
	mode         string
	topN         int
	k            int
	model        string
	dims         int
	useVLLM      bool
	vllmURL      string
	concurrency  int
	batchSize    int
}

func newSearchCmd() *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Load a manifest and run an interactive hybrid search REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.manifest, "manifest", "", "Manifest directory or manifest.json URL (required)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Base URL for shard/graph fetches (defaults to the manifest's directory)")
	cmd.Flags().StringVar(&f.corpus, "corpus", "", "JSONL corpus, to build the lexical index (same file used at build time)")
	cmd.Flags().StringVar(&f.cachePath, "cache", defaultStatePath("cache.db"), "Path to the persistent asset cache (bbolt)")
	cmd.Flags().StringVar(&f.statePath, "state", defaultStatePath("state.db"), "Path to the persisted UI mode store (bbolt)")
	cmd.Flags().BoolVar(&f.disableCache, "disable-cache", false, "Skip the persistent asset cache")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Initial mode: lexical or semantic (defaults to the persisted value, then lexical)")
	cmd.Flags().IntVar(&f.topN, "top-n", 0, "Number of fused results to print per query")
	cmd.Flags().IntVar(&f.k, "k", 20, "Semantic candidates to request per query before fusion")
	cmd.Flags().StringVar(&f.model, "model", "", "Embedding model id (must match the build)")
	cmd.Flags().IntVar(&f.dims, "dims", 0, "Embedding dimensionality (must match the build)")
	cmd.Flags().BoolVar(&f.useVLLM, "use-vllm", false, "Embed queries via a remote vLLM-compatible endpoint")
	cmd.Flags().StringVar(&f.vllmURL, "vllm-url", "", "vLLM embeddings endpoint URL")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Concurrent embedding batches in flight")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Chunks per embedding batch")

	return cmd
}

func defaultStatePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".docsearch", name)
	}
	return filepath.Join(home, ".docsearch", name)
}

func runSearch(cmd *cobra.Command, f searchFlags) error {
	out := output.New(cmd.OutOrStdout())
	if f.manifest == "" {
		return fmt.Errorf("--manifest is required")
	}

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if f.model != "" {
		cfg.Embed.Model = f.model
	}
	if f.dims > 0 {
		cfg.Embed.Dims = f.dims
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
	topN := f.topN
	if topN <= 0 {
		topN = cfg.Fusion.TopN
	}

	if err := os.MkdirAll(filepath.Dir(f.cachePath), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.statePath), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	cache, err := queryengine.OpenAssetCache(f.cachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	modeStore, err := queryengine.OpenModeStore(f.statePath)
	if err != nil {
		return err
	}
	defer modeStore.Close()

	initialMode := f.mode
	if initialMode == "" {
		initialMode = modeStore.Mode("lexical")
	}

	var idx *lexical.Index
	if f.corpus != "" {
		docs, err := ingest.ReadDocuments(f.corpus, chunk.NewSizeOverlapSplitter(chunk.Options{Disabled: true}))
		if err != nil {
			return fmt.Errorf("load corpus for lexical index: %w", err)
		}
		idx = lexical.Build(docs)
	} else {
		out.Warning("no --corpus given: lexical matching, tag filters, and title boost are unavailable this session")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	worker := queryengine.NewWorker(queryengine.NewHTTPFetcher(nil), cache, embedderFactory(cfg))
	go worker.Run(ctx)

	worker.In <- workerproto.NewInit(f.manifest, f.baseURL, f.disableCache)
	if err := awaitReady(out, worker); err != nil {
		return err
	}

	return runREPL(cmd, out, worker, idx, modeStore, initialMode, topN, f.k)
}

// embedderFactory returns a queryengine.EmbedderFactory matching the
// build-time embedder selection, so query vectors land in the same
// space as the corpus vectors they're compared against.
func embedderFactory(cfg *config.Config) queryengine.EmbedderFactory {
	return func() (embed.Embedder, error) {
		if cfg.Embed.UseVLLM {
			if cfg.Embed.VLLMURL == "" {
				return nil, fmt.Errorf("--use-vllm requires --vllm-url or VLLM_URL/VLLM_EMBED_URL")
			}
			remote := embed.NewRemoteEmbedder(embed.RemoteConfig{
				URL:         cfg.Embed.VLLMURL,
				Model:       cfg.Embed.Model,
				Dims:        cfg.Embed.Dims,
				Concurrency: cfg.Embed.Concurrency,
				BatchSize:   cfg.Embed.BatchSize,
			})
			return embed.NewCachedEmbedderWithDefaults(remote), nil
		}
		return embed.NewLocalEmbedder(cfg.Embed.Dims), nil
	}
}

// awaitReady drains Progress/Error messages from the worker until
// Ready arrives or Init fails.
func awaitReady(out *output.Writer, worker *queryengine.Worker) error {
	for msg := range worker.Out {
		switch m := msg.(type) {
		case workerproto.Progress:
			out.Progress(m.LoadedRows, m.TotalRows, "loading manifest assets")
		case workerproto.Ready:
			return nil
		case workerproto.Error:
			return fmt.Errorf("load manifest: %s", m.Message)
		}
	}
	return fmt.Errorf("worker closed before becoming ready")
}

// runREPL reads one query per line from stdin until EOF, ":quit", or
// ":exit". ":mode lexical"/":mode semantic" switches and persists the
// active mode. Each submitted line drives scheduler.Scheduler exactly
// like a single keystroke edit would in an interactive UI; there is no
// raw-terminal per-keystroke input here, so ClassifyEdit instead
// compares successive submitted lines.
func runREPL(cmd *cobra.Command, out *output.Writer, worker *queryengine.Worker, idx *lexical.Index, modeStore *queryengine.ModeStore, initialMode string, topN, k int) error {
	mode := parseMode(initialMode)
	done := make(chan struct{}, 1)

	var sched *scheduler.Scheduler
	sched = scheduler.New(func(term string, token int) {
		defer func() { done <- struct{}{} }()
		if !sched.IsCurrent(token) {
			return
		}
		runQuery(out, worker, idx, mode, term, token, topN, k)
	})
	sched.SetMode(mode)

	out.Statusf("🔎", "ready (mode=%s). Type a query, \"#tag term\" to filter, \":mode lexical|semantic\", or \":quit\".", modeName(mode))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ":quit" || line == ":exit" {
			worker.In <- workerproto.NewReset()
			return nil
		}
		if strings.HasPrefix(line, ":mode ") {
			next := strings.TrimSpace(strings.TrimPrefix(line, ":mode "))
			mode = parseMode(next)
			sched.SetMode(mode)
			if err := modeStore.SetMode(modeName(mode)); err != nil {
				out.Errorf("persist mode: %v", err)
			}
			out.Statusf("⚙️ ", "mode set to %s", modeName(mode))
			continue
		}

		sched.Schedule(line)
		<-done
	}
	return scanner.Err()
}

func parseMode(s string) scheduler.Mode {
	if strings.EqualFold(s, "semantic") {
		return scheduler.ModeSemantic
	}
	return scheduler.ModeLexical
}

func modeName(m scheduler.Mode) string {
	if m == scheduler.ModeSemantic {
		return "semantic"
	}
	return "lexical"
}

func fusionMode(m scheduler.Mode) fusion.Mode {
	if m == scheduler.ModeSemantic {
		return fusion.ModeSemantic
	}
	return fusion.ModeLexical
}

// runQuery evaluates term against the lexical index (if loaded) and
// the semantic worker, fuses the two, and prints the ranked results.
func runQuery(out *output.Writer, worker *queryengine.Worker, idx *lexical.Index, mode scheduler.Mode, term string, token, topN, k int) {
	pq := lexical.ParseQuery(term)

	var lexRanks []fusion.LexicalRank
	if idx != nil {
		if pq.Tag != "" {
			for i, slug := range idx.QueryTag(pq) {
				lexRanks = append(lexRanks, fusion.LexicalRank{Doc: slug, Rank: i})
			}
		} else {
			lexRanks = fusion.AggregateLexical(idx.Query(pq.Term), lexicalFieldOrder)
		}
	}

	chunkHits := searchSemantic(worker, pq.Term, k, token)
	semantic := fusion.AggregateSemantic(chunkHits, parentSlug)

	titleBoost := func(doc string) bool {
		if idx == nil {
			return false
		}
		return idx.TitleMatchesQuery(doc, pq.Term)
	}

	weights := fusion.WeightsForMode(fusionMode(mode), len(semantic) > 0)
	results := fusion.Final(lexRanks, semantic, titleBoost, weights, topN)

	if len(results) == 0 {
		out.Status("", "no results")
		return
	}
	for i, r := range results {
		label := r.Doc
		if idx != nil {
			if title := idx.Title(r.Doc); title != "" {
				label = fmt.Sprintf("%s (%s)", title, r.Doc)
			}
		}
		if r.HasSemanticHit {
			out.Statusf("", "%2d. %-40s score=%.4f sem=%.1f%%", i+1, label, r.Final, r.MaxSemPercent)
		} else {
			out.Statusf("", "%2d. %-40s score=%.4f", i+1, label, r.Final)
		}
	}
}

// parentSlug recovers a chunk's parent document slug from its wire
// identity "<parentSlug>#<chunkID>" without needing the manifest's
// chunkMetadata map, which the worker keeps private.
func parentSlug(chunkID string) string {
	if i := strings.LastIndex(chunkID, "#"); i >= 0 {
		return chunkID[:i]
	}
	return chunkID
}

// searchSemantic sends term to the worker and waits for the matching
// SearchResult, ignoring stale responses to superseded tokens. An
// empty term skips the round trip entirely (a bare tag filter has no
// semantic side).
func searchSemantic(worker *queryengine.Worker, term string, k, token int) []fusion.ChunkHit {
	if term == "" {
		return nil
	}

	worker.In <- workerproto.NewSearch(term, k, token)
	timeout := time.NewTimer(10 * time.Second)
	defer timeout.Stop()

	for {
		select {
		case msg := <-worker.Out:
			switch m := msg.(type) {
			case workerproto.SearchResult:
				if m.Seq != token {
					continue
				}
				hits := make([]fusion.ChunkHit, len(m.Semantic))
				for i, s := range m.Semantic {
					hits[i] = fusion.ChunkHit{ChunkID: s.ID, Score: s.Score}
				}
				return hits
			case workerproto.Error:
				if m.Seq != token {
					continue
				}
				return nil
			}
		case <-timeout.C:
			return nil
		}
	}
}
