// Package buildpipeline wires ingestion, chunking, embedding, HNSW
// graph construction, and manifest writing into the single build
// operation `cmd/docsearch-build` drives. Grounded on the teacher's
// internal/index.Runner: injected dependencies for testability, a
// RunnerConfig/RunnerResult pair, and stage-by-stage progress
// reporting through a renderer — narrowed here to buildui.Tracker and
// this domain's fixed four stages instead of the teacher's generic
// scan/chunk/embed/persist pipeline over a filesystem tree.
package buildpipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mia-cx/docsearch/internal/buildui"
	"github.com/mia-cx/docsearch/internal/chunk"
	"github.com/mia-cx/docsearch/internal/docmodel"
	"github.com/mia-cx/docsearch/internal/embed"
	"github.com/mia-cx/docsearch/internal/hnsw"
	"github.com/mia-cx/docsearch/internal/ingest"
	"github.com/mia-cx/docsearch/internal/manifest"
)

// Dependencies are the injected collaborators for a Runner.
type Dependencies struct {
	// Tracker receives stage/progress updates; required.
	Tracker *buildui.Tracker

	// Splitter chunks each document's body; required.
	Splitter chunk.Splitter

	// Embedder embeds chunk text into vectors; required.
	Embedder embed.Embedder

	// HNSW parameterizes the graph builder.
	HNSW hnsw.BuilderConfig
}

// Config configures one build run.
type Config struct {
	JSONLPath     string
	OutDir        string
	ShardSizeRows int
	// EmbedBatchSize bounds how many chunk texts are embedded per
	// EmbedBatch call, so progress can be reported incrementally
	// instead of blocking until every chunk in the corpus is embedded.
	EmbedBatchSize int
}

// Result summarizes a completed build.
type Result struct {
	Documents int
	Chunks    int
	Duration  time.Duration
}

// Runner executes a build with injected dependencies.
type Runner struct {
	deps Dependencies
}

// NewRunner validates deps and returns a Runner.
func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.Tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if deps.Splitter == nil {
		return nil, fmt.Errorf("splitter is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.HNSW.M <= 0 {
		deps.HNSW.M = 16
	}
	if deps.HNSW.EfConstruction <= 0 {
		deps.HNSW.EfConstruction = 200
	}
	return &Runner{deps: deps}, nil
}

// Run ingests cfg.JSONLPath, chunks, embeds, builds the HNSW graph,
// and writes the manifest to cfg.OutDir.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()

	r.deps.Tracker.SetStage(buildui.StageChunking, 1)
	docs, err := ingest.ReadDocuments(cfg.JSONLPath, r.deps.Splitter)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	r.deps.Tracker.Update(1)

	rows := docmodel.Rows(docs)
	totalChunks := len(rows)

	vectors, err := r.embedRows(ctx, rows, cfg.EmbedBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}

	r.deps.Tracker.SetStage(buildui.StageGraphBuild, totalChunks)
	graph := hnsw.Build(flatVectors{rows: vectors}, r.deps.HNSW)
	r.deps.Tracker.Update(totalChunks)

	r.deps.Tracker.SetStage(buildui.StageWriting, 1)
	ids := make([]string, totalChunks)
	titles := make([]string, totalChunks)
	chunkMeta := make(map[string]manifest.ChunkMeta, totalChunks)
	row := 0
	for _, doc := range docs {
		for _, c := range doc.Chunks {
			slug := c.Slug()
			ids[row] = slug
			titles[row] = doc.Title
			chunkMeta[slug] = manifest.ChunkMeta{ParentSlug: c.ParentSlug, ChunkID: c.ChunkID}
			row++
		}
	}

	if err := manifest.Write(cfg.OutDir, manifest.WriteInput{
		Dims:          r.deps.Embedder.Dimensions(),
		Vectors:       vectors,
		IDs:           ids,
		Titles:        titles,
		ChunkMetadata: chunkMeta,
		Graph:         graph,
		ShardSizeRows: cfg.ShardSizeRows,
	}); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	r.deps.Tracker.Update(1)

	return &Result{
		Documents: len(docs),
		Chunks:    totalChunks,
		Duration:  time.Since(start),
	}, nil
}

// embedRows embeds every chunk's text in batches of batchSize (or all
// at once if batchSize <= 0), reporting progress after each batch.
func (r *Runner) embedRows(ctx context.Context, rows []docmodel.Chunk, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(rows)
		if batchSize == 0 {
			batchSize = 1
		}
	}

	r.deps.Tracker.SetStage(buildui.StageEmbedding, len(rows))
	vectors := make([][]float32, 0, len(rows))
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = rows[i].Text
		}

		vecs, err := r.deps.Embedder.EmbedBatch(ctx, texts, false)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vecs...)
		r.deps.Tracker.Update(len(vectors))
	}
	return vectors, nil
}

// flatVectors adapts a [][]float32 to hnsw.VectorSource.
type flatVectors struct {
	rows [][]float32
}

func (v flatVectors) Vector(row int) []float32 { return v.rows[row] }
func (v flatVectors) Len() int                 { return len(v.rows) }

var _ hnsw.VectorSource = flatVectors{}
