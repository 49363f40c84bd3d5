package hnsw

import "sort"

// Hit is one search result: a row id and its cosine similarity to the
// query vector.
type Hit struct {
	Row   int
	Score float64
}

// EfDefault returns max(64, 4M), the default base-layer beam width.
func EfDefault(m int) int {
	if d := 4 * m; d > 64 {
		return d
	}
	return 64
}

// Ef returns the query-time beam width max(efDefault, 10k). M here is
// the graph's construction parameter, unrelated to k; both are kept
// configurable per the design notes' open-question decision.
func Ef(efDefault, k int) int {
	if want := 10 * k; want > efDefault {
		return want
	}
	return efDefault
}

// Search returns the top k rows by cosine similarity to q. When the
// graph has no entry point (empty or never built), it falls back to
// exhaustive brute force, which is also this package's correctness
// oracle for tests.
func (g *Graph) Search(vectors VectorSource, q []float32, k int) []Hit {
	if g.EntryPoint < 0 || len(g.Levels) == 0 {
		return BruteForce(vectors, q, k)
	}

	ef := Ef(EfDefault(g.M), k)

	ep := g.EntryPoint
	epScore := score(q, vectors.Vector(ep))

	for l := g.MaxLevel; l > 0; l-- {
		if l >= len(g.Levels) {
			continue
		}
		for {
			improved := false
			for _, neighbor := range g.Levels[l].Neighbors(ep) {
				s := score(q, vectors.Vector(int(neighbor)))
				if s > epScore {
					ep, epScore = int(neighbor), s
					improved = true
				}
			}
			if !improved {
				break
			}
		}
	}

	results := beamSearchBaseLayer(vectors, g.Levels[0], q, ep, epScore, ef)
	if len(results) > k {
		results = results[:k]
	}
	hits := make([]Hit, len(results))
	for i, c := range results {
		hits[i] = Hit{Row: c.row, Score: c.score}
	}
	return hits
}

// beamSearchBaseLayer runs the level-0 beam search described in the
// component design: pop the best candidate, stop once it can no
// longer improve a full result list, otherwise expand its neighbors.
func beamSearchBaseLayer(vectors VectorSource, base Level, q []float32, ep int, epScore float64, ef int) []candidate {
	visited := map[int]bool{ep: true}
	candidates := []candidate{{ep, epScore}}
	results := []candidate{{ep, epScore}}

	for len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
		best := candidates[0]
		candidates = candidates[1:]

		sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })
		if len(results) >= ef && best.score < results[len(results)-1].score {
			break
		}

		for _, neighbor := range base.Neighbors(best.row) {
			row := int(neighbor)
			if visited[row] {
				continue
			}
			visited[row] = true
			s := score(q, vectors.Vector(row))
			candidates = append(candidates, candidate{row, s})
			results = append(results, candidate{row, s})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].row < results[j].row
	})
	return results
}

// BruteForce scores every row against q and returns the top k. It is
// the fallback when no graph is available and the recall oracle used
// to validate the approximate searcher in tests.
func BruteForce(vectors VectorSource, q []float32, k int) []Hit {
	n := vectors.Len()
	hits := make([]Hit, n)
	for row := 0; row < n; row++ {
		hits[row] = Hit{Row: row, Score: score(q, vectors.Vector(row))}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Row < hits[j].Row
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}
