// Package fusion aggregates chunk-granularity semantic hits up to
// document granularity, combines them with lexical field hits, and
// produces the final ranked result list. Reciprocal Rank Fusion (RRF)
// is the aggregation primitive throughout, grounded on the same k=60
// smoothing constant and sorted-slice-with-tiebreak shape used for
// BM25/vector fusion in the teacher's retrieval layer, generalized
// here to chunk-to-document aggregation and mode-weighted lexical/
// semantic combination instead of flat two-list RRF.
package fusion

import "sort"

// RRFConstant is the smoothing constant k in Σ 1/(k+rank).
const RRFConstant = 60

// Mode selects which side of the hybrid search the user favors.
type Mode int

const (
	ModeLexical Mode = iota
	ModeSemantic
)

// Weights holds the lexical/semantic combination weights for Final.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// WeightsForMode returns the paper-default weights for mode.
// hasSemanticHits controls whether lexical mode still gives semantic
// hits a minor (0.3) contribution, or zero when there are none to mix in.
func WeightsForMode(mode Mode, hasSemanticHits bool) Weights {
	switch mode {
	case ModeSemantic:
		return Weights{Lexical: 0.3, Semantic: 1.0}
	default:
		sem := 0.0
		if hasSemanticHits {
			sem = 0.3
		}
		return Weights{Lexical: 1.0, Semantic: sem}
	}
}

// ChunkHit is one raw semantic search result at chunk granularity.
type ChunkHit struct {
	ChunkID string
	Score   float64
}

// docAccumulator collects a document's chunk hits before aggregation.
type docAccumulator struct {
	scores []float64 // chunk scores for this doc, appended as encountered
}

// AggregateSemantic groups chunk hits by parent document, computes
// rrf_sem(doc) = Σ 1/(60+r) over per-document chunk ranks r=0,1,…
// (ranked by score descending within the document), and records
// max_sem(doc) as the top chunk's raw score.
func AggregateSemantic(hits []ChunkHit, parentOf func(chunkID string) string) map[string]DocSemantic {
	byDoc := make(map[string]*docAccumulator)
	for _, h := range hits {
		doc := parentOf(h.ChunkID)
		acc, ok := byDoc[doc]
		if !ok {
			acc = &docAccumulator{}
			byDoc[doc] = acc
		}
		acc.scores = append(acc.scores, h.Score)
	}

	out := make(map[string]DocSemantic, len(byDoc))
	for doc, acc := range byDoc {
		sort.Sort(sort.Reverse(sort.Float64Slice(acc.scores)))
		var rrf float64
		for r := range acc.scores {
			rrf += 1.0 / float64(RRFConstant+r)
		}
		out[doc] = DocSemantic{
			RRF:    rrf,
			MaxSem: acc.scores[0],
		}
	}
	return out
}

// DocSemantic is one document's aggregated semantic score.
type DocSemantic struct {
	RRF    float64
	MaxSem float64
}

// DisplayPercent maps a raw cosine similarity in [-1,1] to a 0-100
// display percentage via the affine map p = (clamp(s,-1,1)+1)/2 * 100.
func DisplayPercent(s float64) float64 {
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	return (s + 1) / 2 * 100
}

// LexicalRank is one document's insertion-order rank within the
// lexical union, before the title boost is applied.
type LexicalRank struct {
	Doc  string
	Rank int // 0-indexed insertion position
}

// AggregateLexical unions document ids across every field's hit list,
// preserving per-field order, and assigns rank = insertion position in
// the union.
func AggregateLexical(fieldHits map[string][]string, fieldOrder []string) []LexicalRank {
	seen := make(map[string]bool)
	var ranks []LexicalRank
	for _, field := range fieldOrder {
		for _, doc := range fieldHits[field] {
			if seen[doc] {
				continue
			}
			seen[doc] = true
			ranks = append(ranks, LexicalRank{Doc: doc, Rank: len(ranks)})
		}
	}
	return ranks
}

// Result is one final, fused, document-level search result.
type Result struct {
	Doc            string
	Final          float64
	MaxSemPercent  float64
	HasSemanticHit bool
}

// Final computes final(doc) = w_lex * Σ 1/(1+rank_lex) * titleBoost +
// w_sem * rrf_sem(doc), sorts descending (ties broken by doc id for
// determinism), and returns the top n results.
func Final(
	lexRanks []LexicalRank,
	semantic map[string]DocSemantic,
	titleBoost func(doc string) bool,
	weights Weights,
	n int,
) []Result {
	scores := make(map[string]float64)
	hasSem := make(map[string]bool)

	for _, lr := range lexRanks {
		boost := 1.0
		if titleBoost(lr.Doc) {
			boost = 1.5
		}
		scores[lr.Doc] += weights.Lexical * (1.0 / float64(1+lr.Rank)) * boost
	}

	for doc, sem := range semantic {
		scores[doc] += weights.Semantic * sem.RRF
		hasSem[doc] = true
	}

	results := make([]Result, 0, len(scores))
	for doc, final := range scores {
		r := Result{Doc: doc, Final: final}
		if sem, ok := semantic[doc]; ok {
			r.MaxSemPercent = DisplayPercent(sem.MaxSem)
			r.HasSemanticHit = true
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Final != results[j].Final {
			return results[i].Final > results[j].Final
		}
		return results[i].Doc < results[j].Doc
	})

	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results
}
