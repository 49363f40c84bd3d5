package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
)

// LocalDimensions is the fixed output width of LocalEmbedder.
const LocalDimensions = 384

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

var proseStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"as": true, "at": true, "by": true, "this": true, "that": true, "it": true,
}

// LocalEmbedder is a deterministic, dependency-free embedder: no model
// weights, no network. It hashes tokens and character n-grams into
// fixed-size buckets, so semantically similar prose lands on
// overlapping buckets without any learned representation. It exists
// as a zero-setup default and a fast path for tests; it is not a
// substitute for a trained bi-encoder's recall quality.
type LocalEmbedder struct {
	mu     sync.RWMutex
	closed bool
	dims   int
	model  string
}

// NewLocalEmbedder returns a LocalEmbedder with the given output
// width. dims <= 0 selects LocalDimensions.
func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = LocalDimensions
	}
	return &LocalEmbedder{dims: dims, model: "local-hash"}
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string, isQuery bool) ([][]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, errClosed
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		prefixed := applyPrefix(e.model, text, isQuery)
		out[i] = e.embedOne(prefixed)
	}
	return out, nil
}

func (e *LocalEmbedder) embedOne(text string) []float32 {
	text = strings.TrimSpace(text)
	v := make([]float32, e.dims)
	if text == "" {
		return v
	}

	for _, tok := range filterStopWords(tokenize(text)) {
		idx := hashToIndex(tok, e.dims)
		v[idx] += tokenWeight
	}
	for _, gram := range extractNgrams(normalizeForNgrams(text), ngramSize) {
		idx := hashToIndex(gram, e.dims)
		v[idx] += ngramWeight
	}
	return normalizeVector(v)
}

// tokenize splits text on whitespace/punctuation and lowercases. Prose
// doesn't carry camelCase/snake_case identifiers, so unlike a
// code-oriented tokenizer this is a single regex pass.
func tokenize(text string) []string {
	matches := wordRegex.FindAllString(text, -1)
	tokens := make([]string, len(matches))
	for i, m := range matches {
		tokens[i] = strings.ToLower(m)
	}
	return tokens
}

func filterStopWords(tokens []string) []string {
	out := tokens[:0:0]
	for _, tok := range tokens {
		if !proseStopWords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// normalizeForNgrams lowercases text and strips everything but letters
// and digits, so n-grams are comparable across punctuation/spacing.
func normalizeForNgrams(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractNgrams(s string, n int) []string {
	if len(s) < n {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	grams := make([]string, 0, len(s)-n+1)
	for i := 0; i+n <= len(s); i++ {
		grams = append(grams, s[i:i+n])
	}
	return grams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func (e *LocalEmbedder) Dimensions() int { return e.dims }

func (e *LocalEmbedder) ModelName() string { return e.model }

func (e *LocalEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
