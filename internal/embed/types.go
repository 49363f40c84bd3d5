// Package embed implements the embedding driver: local and remote
// backends behind a single Embedder interface, the query/passage
// asymmetry table, retry with backoff, an LRU memoization layer, and a
// cross-process file lock guarding concurrent build runs.
package embed

import (
	"context"
	"errors"
	"math"
)

// errClosed is returned by EmbedBatch after Close.
var errClosed = errors.New("embed: embedder closed")

// Embedder exposes embedBatch(texts) -> vectors[] per the component
// design. isQuery selects which half of the asymmetric prefix table
// applies: true prepends the query prefix, false the passage prefix.
// Implementations L2-normalize every returned vector.
type Embedder interface {
	// EmbedBatch embeds texts in order, returning one vector per input.
	// An empty input slice returns an empty, non-nil result.
	EmbedBatch(ctx context.Context, texts []string, isQuery bool) ([][]float32, error)

	// Dimensions returns d, the fixed output vector length.
	Dimensions() int

	// ModelName returns the model identifier used for prefix-table
	// lookups and cache keys.
	ModelName() string

	// Close releases any resources (connections, file handles) held by
	// the embedder.
	Close() error
}

// normalizeVector L2-normalizes v in place and returns it. A zero
// vector is left unchanged rather than divided by zero.
func normalizeVector(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= norm
	}
	return v
}
