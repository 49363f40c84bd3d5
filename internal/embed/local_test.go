package embed

import (
	"context"
	"math"
	"testing"
)

func TestLocalEmbedder_Dimensions(t *testing.T) {
	e := NewLocalEmbedder(256)
	if e.Dimensions() != 256 {
		t.Errorf("Dimensions() = %d, want 256", e.Dimensions())
	}
}

func TestLocalEmbedder_DefaultsDimensions(t *testing.T) {
	e := NewLocalEmbedder(0)
	if e.Dimensions() != LocalDimensions {
		t.Errorf("Dimensions() = %d, want %d", e.Dimensions(), LocalDimensions)
	}
}

func TestLocalEmbedder_EmptyTextYieldsZeroVector(t *testing.T) {
	e := NewLocalEmbedder(64)
	vecs, err := e.EmbedBatch(context.Background(), []string{""}, false)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	for _, x := range vecs[0] {
		if x != 0 {
			t.Fatalf("expected zero vector for empty text, got %v", vecs[0])
		}
	}
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(128)
	ctx := context.Background()
	v1, err := e.EmbedBatch(ctx, []string{"setting up the build pipeline"}, false)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	v2, err := e.EmbedBatch(ctx, []string{"setting up the build pipeline"}, false)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	for i := range v1[0] {
		if v1[0][i] != v2[0][i] {
			t.Fatalf("embedding is not deterministic at index %d: %v != %v", i, v1[0][i], v2[0][i])
		}
	}
}

func TestLocalEmbedder_L2Normalized(t *testing.T) {
	e := NewLocalEmbedder(128)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a document about testing search quality"}, false)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	var sumSq float64
	for _, x := range vecs[0] {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-4 {
		t.Errorf("expected unit-norm vector, got norm %f", norm)
	}
}

func TestLocalEmbedder_SimilarTextsAreCloserThanUnrelated(t *testing.T) {
	e := NewLocalEmbedder(256)
	ctx := context.Background()
	vecs, err := e.EmbedBatch(ctx, []string{
		"how to configure the build pipeline",
		"configuring the build pipeline step by step",
		"a recipe for baking sourdough bread",
	}, false)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	simRelated := dot(vecs[0], vecs[1])
	simUnrelated := dot(vecs[0], vecs[2])
	if simRelated <= simUnrelated {
		t.Errorf("expected related texts to score higher: related=%f unrelated=%f", simRelated, simUnrelated)
	}
}

func TestLocalEmbedder_QueryAndPassageFormsDiffer(t *testing.T) {
	e := NewLocalEmbedder(128)
	e.model = "e5-small" // force a model with an asymmetric prefix table entry
	ctx := context.Background()

	queryVec, err := e.EmbedBatch(ctx, []string{"search"}, true)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	passageVec, err := e.EmbedBatch(ctx, []string{"search"}, false)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	if dot(queryVec[0], passageVec[0]) >= 1-1e-9 {
		t.Error("query and passage embeddings of the same text should not be identical")
	}
}

func TestLocalEmbedder_CloseRejectsFurtherCalls(t *testing.T) {
	e := NewLocalEmbedder(64)
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := e.EmbedBatch(context.Background(), []string{"x"}, false); err == nil {
		t.Error("expected error after Close")
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
