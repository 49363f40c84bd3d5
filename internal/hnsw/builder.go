package hnsw

import (
	"math"
	"math/rand"
	"sort"
)

// BuilderConfig parameterizes Build, mirroring the HNSW builder design:
// M neighbors per node per level (M0 = 2M at level 0) and efConstruction
// candidates examined during each insertion's beam search.
type BuilderConfig struct {
	M              int
	EfConstruction int
	Seed           int64
}

// candidate is a row scored against the node currently being inserted
// or searched for.
type candidate struct {
	row   int
	score float64
}

// Build inserts every row of vectors into a fresh graph in row order,
// following the standard HNSW insertion algorithm: random level
// assignment, greedy descent from the entry point down to the
// assigned level, then a beam search plus heuristic neighbor selection
// and pruning at each level from the assigned level down to 0.
func Build(vectors VectorSource, cfg BuilderConfig) *Graph {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = 200
	}
	n := vectors.Len()
	g := &Graph{M: cfg.M, EfConstruction: cfg.EfConstruction, EntryPoint: -1, MaxLevel: -1, Rows: n}
	if n == 0 {
		return g
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	factor := mL(cfg.M)

	// adjacency[level][row] = neighbor set, built incrementally then
	// frozen into CSR once every row is inserted.
	var adjacency []map[int]map[int]bool

	nodeLevel := make([]int, n)

	for row := 0; row < n; row++ {
		level := assignLevel(rng, factor)
		nodeLevel[row] = level

		for len(adjacency) <= level {
			adjacency = append(adjacency, make(map[int]map[int]bool, n))
		}
		for l := 0; l <= level; l++ {
			adjacency[l][row] = make(map[int]bool)
		}

		if g.EntryPoint < 0 {
			g.EntryPoint = row
			g.MaxLevel = level
			continue
		}

		ep := g.EntryPoint
		epScore := score(vectors.Vector(row), vectors.Vector(ep))

		for l := g.MaxLevel; l > level; l-- {
			if l >= len(adjacency) {
				continue
			}
			ep, epScore = greedyDescend(vectors, adjacency[l], row, ep, epScore)
		}

		for l := min(level, g.MaxLevel); l >= 0; l-- {
			candidates := searchLayer(vectors, adjacency[l], row, ep, cfg.EfConstruction)
			budget := cfg.M
			if l == 0 {
				budget = 2 * cfg.M
			}
			selected := selectNeighbors(vectors, candidates, budget)

			for _, c := range selected {
				connect(adjacency[l], row, c.row)
				connect(adjacency[l], c.row, row)
				pruneIfOverConnected(vectors, adjacency[l], c.row, neighborBudget(l, cfg.M))
			}
			if len(candidates) > 0 {
				ep = candidates[0].row
				epScore = candidates[0].score
			}
		}

		if level > g.MaxLevel {
			g.EntryPoint = row
			g.MaxLevel = level
		}
	}

	g.Levels = make([]Level, len(adjacency))
	for l, members := range adjacency {
		g.Levels[l] = freezeLevel(members, n)
	}
	return g
}

func neighborBudget(level, m int) int {
	if level == 0 {
		return 2 * m
	}
	return m
}

// assignLevel draws the random insertion level l = floor(-ln(U(0,1)) * mL).
func assignLevel(rng *rand.Rand, factor float64) int {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * factor))
}

// greedyDescend walks from ep toward row's nearest neighbor at this
// level, stopping when no neighbor improves on the current best score.
func greedyDescend(vectors VectorSource, level map[int]map[int]bool, row, ep int, epScore float64) (int, float64) {
	for {
		improved := false
		for neighbor := range level[ep] {
			s := score(vectors.Vector(row), vectors.Vector(neighbor))
			if s > epScore {
				ep, epScore = neighbor, s
				improved = true
			}
		}
		if !improved {
			return ep, epScore
		}
	}
}

// searchLayer runs an ef-bounded beam search for row's nearest
// neighbors at this level, starting from ep.
func searchLayer(vectors VectorSource, level map[int]map[int]bool, row, ep int, ef int) []candidate {
	visited := map[int]bool{ep: true}
	epScore := score(vectors.Vector(row), vectors.Vector(ep))

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

		for neighbor := range level[best.row] {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			s := score(vectors.Vector(row), vectors.Vector(neighbor))
			candidates = append(candidates, candidate{neighbor, s})
			results = append(results, candidate{neighbor, s})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].row < results[j].row // tie-break: lower row id first
	})
	if len(results) > ef {
		results = results[:ef]
	}
	return results
}

// selectNeighbors picks up to budget candidates, preferring ones not
// already close to a previously selected neighbor (the standard HNSW
// heuristic: avoid redundant edges when a closer intermediate exists).
func selectNeighbors(vectors VectorSource, candidates []candidate, budget int) []candidate {
	if len(candidates) <= budget {
		return candidates
	}
	selected := make([]candidate, 0, budget)
	for _, c := range candidates {
		if len(selected) >= budget {
			break
		}
		redundant := false
		for _, s := range selected {
			if score(vectors.Vector(c.row), vectors.Vector(s.row)) > c.score {
				redundant = true
				break
			}
		}
		if !redundant {
			selected = append(selected, c)
		}
	}
	return selected
}

func connect(level map[int]map[int]bool, a, b int) {
	if level[a] == nil {
		level[a] = make(map[int]bool)
	}
	level[a][b] = true
}

// pruneIfOverConnected trims row's neighbor list back to budget,
// keeping its highest-scoring neighbors. Scoring requires a vector
// source, so similarity is recomputed rather than cached.
func pruneIfOverConnected(vectors VectorSource, level map[int]map[int]bool, row int, budget int) {
	neighbors := level[row]
	if len(neighbors) <= budget {
		return
	}
	scored := make([]candidate, 0, len(neighbors))
	for n := range neighbors {
		scored = append(scored, candidate{n, score(vectors.Vector(row), vectors.Vector(n))})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].row < scored[j].row
	})
	level[row] = make(map[int]bool, budget)
	for i := 0; i < len(scored); i++ {
		if i < budget {
			level[row][scored[i].row] = true
			continue
		}
		delete(level[scored[i].row], row) // keep edges symmetric
	}
}

// freezeLevel converts a level's adjacency map into CSR arrays indexed
// by global row id, with undirected edges deduplicated on each side.
func freezeLevel(members map[int]map[int]bool, n int) Level {
	indptr := make([]uint32, n+1)
	var indices []uint32

	for row := 0; row < n; row++ {
		neighbors, ok := members[row]
		indptr[row] = uint32(len(indices))
		if !ok {
			continue
		}
		sorted := make([]int, 0, len(neighbors))
		for neighbor := range neighbors {
			sorted = append(sorted, neighbor)
		}
		sort.Ints(sorted)
		for _, neighbor := range sorted {
			indices = append(indices, uint32(neighbor))
		}
	}
	indptr[n] = uint32(len(indices))
	return Level{Indptr: indptr, Indices: indices}
}
