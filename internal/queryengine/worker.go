// Package queryengine implements the query-side worker: the asset
// loader, the persistent shard/graph cache, and the single background
// goroutine that owns the vector buffer, the HNSW graph, and the lazy
// embedder, communicating with the caller purely through
// internal/workerproto messages over channels. Grounded on the
// teacher's internal/async.BackgroundIndexer goroutine lifecycle
// (Start/Stop/stopCh/doneCh) generalized from "run once to
// completion" to "run forever, dispatching on message kind."
package queryengine

import (
	"context"
	"sync"

	"github.com/mia-cx/docsearch/internal/embed"
	"github.com/mia-cx/docsearch/internal/hnsw"
	"github.com/mia-cx/docsearch/internal/workerproto"

	searcherrors "github.com/mia-cx/docsearch/internal/errors"
)

// EmbedderFactory lazily constructs the query-time embedder on first
// search, matching the shared-resource policy: "the model instance is
// lazily constructed on first query and reused." The manifest's
// wire format (§6) carries no model identifier, so the caller supplies
// one out of band — typically the same --model value used at build
// time, passed through to cmd/docsearch-query as a flag.
type EmbedderFactory func() (embed.Embedder, error)

// Worker owns every piece of mutable query-time state: the loaded
// manifest, the contiguous vector buffer, the HNSW graph, and the
// embedder. It runs in its own goroutine and is driven entirely by
// messages sent on In; replies go out on Out.
type Worker struct {
	In  chan any
	Out chan any

	fetcher         Fetcher
	cache           *AssetCache
	embedderFactory EmbedderFactory

	mu               sync.Mutex
	assets           *LoadedAssets
	embedder         embed.Embedder
	semanticDisabled bool

	cancel context.CancelFunc
}

// NewWorker creates a worker; call Run in its own goroutine to start
// processing messages from In.
func NewWorker(fetcher Fetcher, cache *AssetCache, embedderFactory EmbedderFactory) *Worker {
	return &Worker{
		In:              make(chan any, 8),
		Out:             make(chan any, 8),
		fetcher:         fetcher,
		cache:           cache,
		embedderFactory: embedderFactory,
	}
}

// Run processes messages from w.In until ctx is cancelled or In is
// closed. It is the worker's entire run loop: one goroutine, no
// shared-mutable state touched concurrently, matching the single
// background execution context the concurrency model requires.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.In:
			if !ok {
				return
			}
			w.dispatch(ctx, msg)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case workerproto.Init:
		w.handleInit(ctx, m)
	case workerproto.Search:
		w.handleSearch(ctx, m)
	case workerproto.Reset:
		w.handleReset()
	}
}

func (w *Worker) handleInit(parent context.Context, m workerproto.Init) {
	ctx, cancel := context.WithCancel(parent)
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.cancel = cancel
	w.mu.Unlock()

	assets, err := Load(ctx, w.fetcher, cacheOrNil(w.cache, m.DisableCache), m.ManifestURL, func(loaded, total int) {
		w.Out <- workerproto.NewProgress(loaded, total)
	})
	if err != nil {
		w.Out <- workerproto.NewError(0, err.Error())
		return
	}

	w.mu.Lock()
	w.assets = assets
	w.mu.Unlock()

	w.Out <- workerproto.NewReady()
}

func cacheOrNil(c *AssetCache, disable bool) *AssetCache {
	if disable {
		return nil
	}
	return c
}

func (w *Worker) handleSearch(ctx context.Context, m workerproto.Search) {
	w.mu.Lock()
	assets := w.assets
	disabled := w.semanticDisabled
	w.mu.Unlock()

	if assets == nil {
		w.Out <- workerproto.NewError(m.Seq, "worker not initialized")
		return
	}
	if disabled {
		w.Out <- workerproto.NewSearchResult(m.Seq, nil)
		return
	}

	embedder, err := w.ensureEmbedder()
	if err != nil {
		w.mu.Lock()
		w.semanticDisabled = true
		w.mu.Unlock()
		w.Out <- workerproto.NewError(m.Seq, searcherrors.Embed("embed query", err).Error())
		return
	}

	vecs, err := embedder.EmbedBatch(ctx, []string{m.Text}, true)
	if err != nil {
		w.mu.Lock()
		w.semanticDisabled = true
		w.mu.Unlock()
		w.Out <- workerproto.NewError(m.Seq, searcherrors.Embed("embed query", err).Error())
		return
	}

	source := vectorSource{flat: assets.Vectors, dims: assets.Manifest.Dims}
	hits := assets.Graph.Search(source, vecs[0], m.K)

	results := make([]workerproto.ScoredID, len(hits))
	for i, h := range hits {
		id := ""
		if h.Row >= 0 && h.Row < len(assets.Manifest.IDs) {
			id = assets.Manifest.IDs[h.Row]
		}
		results[i] = workerproto.ScoredID{ID: id, Score: h.Score}
	}
	w.Out <- workerproto.NewSearchResult(m.Seq, results)
}

func (w *Worker) handleReset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.assets = nil
	if w.embedder != nil {
		_ = w.embedder.Close()
		w.embedder = nil
	}
	w.semanticDisabled = false
}

func (w *Worker) ensureEmbedder() (embed.Embedder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.embedder != nil {
		return w.embedder, nil
	}
	if w.embedderFactory == nil {
		return nil, searcherrors.Embed("no embedder factory configured", nil)
	}
	e, err := w.embedderFactory()
	if err != nil {
		return nil, err
	}
	w.embedder = e
	return e, nil
}

// vectorSource adapts the flat row-major buffer to hnsw.VectorSource.
type vectorSource struct {
	flat []float32
	dims int
}

func (v vectorSource) Vector(row int) []float32 {
	return v.flat[row*v.dims : (row+1)*v.dims]
}

func (v vectorSource) Len() int {
	if v.dims == 0 {
		return 0
	}
	return len(v.flat) / v.dims
}

var _ hnsw.VectorSource = vectorSource{}
