package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mia-cx/docsearch/internal/buildui"
	"github.com/mia-cx/docsearch/internal/chunk"
	"github.com/mia-cx/docsearch/internal/embed"
	"github.com/mia-cx/docsearch/internal/hnsw"
	"github.com/mia-cx/docsearch/internal/manifest"
)

func writeCorpus(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "corpus.jsonl")
	data := `{"slug":"cats","title":"Intro to Cats","tags":["pets"],"body":"Cats are independent, low-maintenance pets that sleep most of the day."}
{"slug":"dogs","title":"Dog Training Basics","body":"Dogs need consistent training, exercise, and socialization from an early age."}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestRunner_RunWritesReadableManifest(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := writeCorpus(t, dir)
	outDir := filepath.Join(dir, "out")

	embedder := embed.NewLocalEmbedder(32)
	runner, err := NewRunner(Dependencies{
		Tracker:  buildui.NewTracker(),
		Splitter: chunk.NewSizeOverlapSplitter(chunk.Options{Disabled: true}),
		Embedder: embedder,
		HNSW:     hnsw.BuilderConfig{M: 8, EfConstruction: 32, Seed: 1},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	result, err := runner.Run(context.Background(), Config{
		JSONLPath:      jsonlPath,
		OutDir:         outDir,
		ShardSizeRows:  1,
		EmbedBatchSize: 1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Documents != 2 {
		t.Errorf("Documents = %d, want 2", result.Documents)
	}
	if result.Chunks != 2 {
		t.Errorf("Chunks = %d, want 2", result.Chunks)
	}

	m, err := manifest.Read(outDir)
	if err != nil {
		t.Fatalf("manifest.Read: %v", err)
	}
	if m.Rows != 2 || m.Dims != 32 {
		t.Errorf("manifest rows/dims = %d/%d, want 2/32", m.Rows, m.Dims)
	}
	if len(m.IDs) != 2 || m.IDs[0] != "cats#0" || m.IDs[1] != "dogs#0" {
		t.Errorf("manifest IDs = %v", m.IDs)
	}
	if len(m.Titles) != 2 || m.Titles[0] != "Intro to Cats" || m.Titles[1] != "Dog Training Basics" {
		t.Errorf("manifest Titles = %v", m.Titles)
	}
	if _, ok := m.ChunkMetadata["cats#0"]; !ok {
		t.Errorf("chunkMetadata missing cats#0: %v", m.ChunkMetadata)
	}

	vectors, err := manifest.LoadVectors(outDir, m)
	if err != nil {
		t.Fatalf("LoadVectors: %v", err)
	}
	if len(vectors) != m.Rows*m.Dims {
		t.Errorf("len(vectors) = %d, want %d", len(vectors), m.Rows*m.Dims)
	}

	graph, err := manifest.LoadGraph(outDir, m)
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if len(graph.Levels) == 0 {
		t.Error("graph has no levels")
	}
}

func TestRunner_RunRejectsMissingCorpus(t *testing.T) {
	dir := t.TempDir()
	runner, err := NewRunner(Dependencies{
		Tracker:  buildui.NewTracker(),
		Splitter: chunk.NewSizeOverlapSplitter(chunk.Options{Disabled: true}),
		Embedder: embed.NewLocalEmbedder(16),
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	_, err = runner.Run(context.Background(), Config{
		JSONLPath: filepath.Join(dir, "missing.jsonl"),
		OutDir:    filepath.Join(dir, "out"),
	})
	if err == nil {
		t.Fatal("expected error for missing corpus file")
	}
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	if _, err := NewRunner(Dependencies{}); err == nil {
		t.Fatal("expected error for empty dependencies")
	}
	if _, err := NewRunner(Dependencies{
		Tracker: buildui.NewTracker(),
	}); err == nil {
		t.Fatal("expected error when splitter and embedder are missing")
	}
}
