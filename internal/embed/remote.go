package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	searcherrors "github.com/mia-cx/docsearch/internal/errors"
)

// RemoteEmbedder calls an OpenAI-compatible POST /v1/embeddings
// endpoint (vLLM's embeddings server speaks this protocol). Batches
// are split to BatchSize and dispatched across Concurrency workers via
// errgroup, each batch retried with exponential backoff, all guarded
// by a circuit breaker so a dead endpoint fails fast instead of
// retrying every batch to exhaustion.
type RemoteEmbedder struct {
	url         string
	model       string
	dims        int
	concurrency int
	batchSize   int

	client  *http.Client
	breaker *searcherrors.CircuitBreaker
	retry   searcherrors.RetryConfig

	mu     sync.RWMutex
	closed bool
}

// RemoteConfig configures a RemoteEmbedder.
type RemoteConfig struct {
	URL         string
	Model       string
	Dims        int
	Concurrency int
	BatchSize   int
	Timeout     time.Duration
}

// NewRemoteEmbedder constructs a RemoteEmbedder from cfg, filling in
// defaults for zero-valued Concurrency/BatchSize/Timeout.
func NewRemoteEmbedder(cfg RemoteConfig) *RemoteEmbedder {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RemoteEmbedder{
		url:         cfg.URL,
		model:       cfg.Model,
		dims:        cfg.Dims,
		concurrency: cfg.Concurrency,
		batchSize:   cfg.BatchSize,
		client:      &http.Client{Timeout: cfg.Timeout},
		breaker:     searcherrors.NewCircuitBreaker("embed-remote", searcherrors.WithMaxFailures(5), searcherrors.WithResetTimeout(30*time.Second)),
		retry:       searcherrors.DefaultRetryConfig(),
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string, isQuery bool) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errClosed
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = applyPrefix(e.model, t, isQuery)
	}

	batches := chunkTexts(prefixed, e.batchSize)
	results := make([][][]float32, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			vecs, err := e.embedOneBatch(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = vecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, searcherrors.Embed("remote embedding request failed", err)
	}

	out := make([][]float32, 0, len(texts))
	for _, batch := range results {
		out = append(out, batch...)
	}
	return out, nil
}

func (e *RemoteEmbedder) embedOneBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if !e.breaker.Allow() {
		return nil, searcherrors.ErrCircuitOpen
	}

	var vecs [][]float32
	err := searcherrors.Retry(ctx, e.retry, func() error {
		v, err := e.postEmbeddings(ctx, batch)
		if err != nil {
			return err
		}
		vecs = v
		return nil
	})
	if err != nil {
		e.breaker.RecordFailure()
		return nil, err
	}
	e.breaker.RecordSuccess()
	return vecs, nil
}

func (e *RemoteEmbedder) postEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("embeddings endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// A 4xx means the request itself is wrong (bad model name,
			// malformed input). Retrying an identical request only
			// burns the backoff budget for the same rejection.
			return nil, searcherrors.Permanent(statusErr)
		}
		return nil, statusErr
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			continue
		}
		vecs[d.Index] = normalizeVector(d.Embedding)
	}

	for i, v := range vecs {
		if len(v) != e.dims {
			return nil, searcherrors.Permanent(fmt.Errorf("embeddings endpoint returned vector of length %d at index %d, want %d", len(v), i, e.dims))
		}
	}

	return vecs, nil
}

func chunkTexts(texts []string, size int) [][]string {
	var batches [][]string
	for i := 0; i < len(texts); i += size {
		end := i + size
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[i:end])
	}
	return batches
}

func (e *RemoteEmbedder) Dimensions() int { return e.dims }

func (e *RemoteEmbedder) ModelName() string { return e.model }

func (e *RemoteEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
