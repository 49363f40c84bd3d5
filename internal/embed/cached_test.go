package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder is a test double that counts EmbedBatch calls.
type mockEmbedder struct {
	batchCalls     atomic.Int64
	dimensions     int
	modelName      string
	returnedVector []float32
}

func newMockEmbedder(dims int) *mockEmbedder {
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}
	return &mockEmbedder{
		dimensions:     dims,
		modelName:      "mock-model",
		returnedVector: vec,
	}
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string, isQuery bool) ([][]float32, error) {
	m.batchCalls.Add(1)
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.returnedVector
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dimensions }

func (m *mockEmbedder) ModelName() string { return m.modelName }

func (m *mockEmbedder) Close() error { return nil }

func embedOne(ctx context.Context, e Embedder, text string, isQuery bool) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text}, isQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func TestCachedEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	var _ Embedder = cached
}

func TestCachedEmbedder_CacheHit_ReturnsWithoutCallingInner(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	text := "installing the command-line tool"

	result1, err1 := embedOne(ctx, cached, text, false)
	result2, err2 := embedOne(ctx, cached, text, false)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, int64(1), inner.batchCalls.Load(), "inner should be called once")
	assert.Equal(t, result1, result2)
}

func TestCachedEmbedder_QueryAndPassageFormsDoNotCollide(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	text := "installing the command-line tool"

	_, err1 := embedOne(ctx, cached, text, true)
	_, err2 := embedOne(ctx, cached, text, false)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, int64(2), inner.batchCalls.Load(), "query and passage forms are cached separately")
}

func TestCachedEmbedder_CacheMiss_CallsInnerForNewText(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	_, err1 := embedOne(ctx, cached, "text one", false)
	_, err2 := embedOne(ctx, cached, "text two", false)
	_, err3 := embedOne(ctx, cached, "text three", false)

	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	assert.Equal(t, int64(3), inner.batchCalls.Load())
}

func TestCachedEmbedder_Dimensions_ReturnsInnerDimensions(t *testing.T) {
	inner := newMockEmbedder(1024)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	assert.Equal(t, 1024, cached.Dimensions())
}

func TestCachedEmbedder_ModelName_ReturnsInnerModelName(t *testing.T) {
	inner := newMockEmbedder(384)
	inner.modelName = "custom-model-v2"
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	assert.Equal(t, "custom-model-v2", cached.ModelName())
}

func TestCachedEmbedder_EmbedBatch_CachesIndividualResults(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	texts := []string{"text1", "text2", "text3"}

	_, err1 := cached.EmbedBatch(ctx, texts, false)
	require.NoError(t, err1)

	inner.batchCalls.Store(0)
	_, err2 := embedOne(ctx, cached, "text1", false)

	require.NoError(t, err2)
	assert.Equal(t, int64(0), inner.batchCalls.Load(), "individual lookup should hit the batch cache")
}

func TestCachedEmbedder_Close_ClosesInner(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)

	assert.NoError(t, cached.Close())
}

func TestNewCachedEmbedderWithDefaults_UsesDefaultCacheSize(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedderWithDefaults(inner)
	defer func() { _ = cached.Close() }()

	_, err := embedOne(context.Background(), cached, "test", false)
	require.NoError(t, err)
}

func TestCachedEmbedder_CacheEviction_OldestEvictedFirst(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 3)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	_, _ = embedOne(ctx, cached, "text1", false)
	_, _ = embedOne(ctx, cached, "text2", false)
	_, _ = embedOne(ctx, cached, "text3", false)
	_, _ = embedOne(ctx, cached, "text4", false) // forces eviction of text1

	inner.batchCalls.Store(0)
	_, err := embedOne(ctx, cached, "text1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.batchCalls.Load(), "evicted text should require a new embedding")

	inner.batchCalls.Store(0)
	_, _ = embedOne(ctx, cached, "text3", false)
	_, _ = embedOne(ctx, cached, "text4", false)
	assert.Equal(t, int64(0), inner.batchCalls.Load(), "recent texts should stay cached")
}

func TestCachedEmbedder_Inner_ReturnsUnderlyingEmbedder(t *testing.T) {
	inner := newMockEmbedder(384)
	inner.modelName = "test-model-for-inner"
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	gotInner := cached.Inner()
	assert.NotNil(t, gotInner)
	assert.Equal(t, inner, gotInner)
	assert.Equal(t, "test-model-for-inner", gotInner.ModelName())
}

func TestCachedEmbedder_ConcurrentAccess_NoRace(t *testing.T) {
	inner := newMockEmbedder(384)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	texts := []string{"a", "b", "c", "d", "e"}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				text := texts[j%len(texts)]
				_, _ = embedOne(ctx, cached, text, j%2 == 0)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
