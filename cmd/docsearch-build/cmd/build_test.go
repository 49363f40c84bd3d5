package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mia-cx/docsearch/internal/embed"
)

func TestResolveBuildConfig_AppliesFlagOverlay(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	f := buildFlags{
		model:     "custom-model",
		out:       filepath.Join(dir, "out"),
		dims:      64,
		shardSize: 10,
	}

	cfg, err := resolveBuildConfig(f)
	if err != nil {
		t.Fatalf("resolveBuildConfig: %v", err)
	}
	if cfg.Embed.Model != "custom-model" {
		t.Errorf("Embed.Model = %q, want custom-model", cfg.Embed.Model)
	}
	if cfg.Embed.Dims != 64 {
		t.Errorf("Embed.Dims = %d, want 64", cfg.Embed.Dims)
	}
	if cfg.Build.OutDir != f.out {
		t.Errorf("Build.OutDir = %q, want %q", cfg.Build.OutDir, f.out)
	}
	if cfg.Build.ShardSizeRows != 10 {
		t.Errorf("Build.ShardSizeRows = %d, want 10", cfg.Build.ShardSizeRows)
	}
}

func TestResolveBuildConfig_DefaultsWithNoFlags(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := resolveBuildConfig(buildFlags{})
	if err != nil {
		t.Fatalf("resolveBuildConfig: %v", err)
	}
	if cfg.Embed.Model == "" {
		t.Error("expected a default model id")
	}
	if cfg.Embed.Dims <= 0 {
		t.Error("expected a positive default dims")
	}
}

func TestResolveBuildConfig_RejectsInvalidOverlay(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	_, err = resolveBuildConfig(buildFlags{chunkSize: 1, chunkOverlap: 5})
	if err == nil {
		t.Fatal("expected an error for overlap >= size")
	}
}

func TestBuildEmbedder_LocalByDefault(t *testing.T) {
	cfg, err := resolveBuildConfig(buildFlags{})
	if err != nil {
		t.Fatal(err)
	}

	embedder, closeFn, err := buildEmbedder(cfg)
	if err != nil {
		t.Fatalf("buildEmbedder: %v", err)
	}
	defer closeFn()

	if _, ok := embedder.(*embed.LocalEmbedder); !ok {
		t.Errorf("expected *embed.LocalEmbedder, got %T", embedder)
	}
	if embedder.Dimensions() != cfg.Embed.Dims {
		t.Errorf("Dimensions() = %d, want %d", embedder.Dimensions(), cfg.Embed.Dims)
	}
}

func TestBuildEmbedder_RemoteRequiresURL(t *testing.T) {
	cfg, err := resolveBuildConfig(buildFlags{})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Embed.UseVLLM = true
	cfg.Embed.VLLMURL = ""

	_, _, err = buildEmbedder(cfg)
	if err == nil {
		t.Fatal("expected an error when --use-vllm is set without a URL")
	}
}

func TestBuildEmbedder_RemoteWrapsCached(t *testing.T) {
	cfg, err := resolveBuildConfig(buildFlags{})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Embed.UseVLLM = true
	cfg.Embed.VLLMURL = "http://127.0.0.1:0/v1/embeddings"

	embedder, closeFn, err := buildEmbedder(cfg)
	if err != nil {
		t.Fatalf("buildEmbedder: %v", err)
	}
	defer closeFn()

	if _, ok := embedder.(*embed.CachedEmbedder); !ok {
		t.Errorf("expected *embed.CachedEmbedder, got %T", embedder)
	}
}
