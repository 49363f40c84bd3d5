package hnsw

import "fmt"

// Validate checks the structural invariants the component design
// requires of every level: indptr monotone non-decreasing, every
// index within [0, rows), edges symmetric, no self-loops, and no
// duplicate entries within a single neighbor list.
func (g *Graph) Validate() error {
	for level, l := range g.Levels {
		if len(l.Indptr) != g.Rows+1 {
			return fmt.Errorf("level %d: indptr length %d, want %d", level, len(l.Indptr), g.Rows+1)
		}
		for i := 0; i < g.Rows; i++ {
			if l.Indptr[i+1] < l.Indptr[i] {
				return fmt.Errorf("level %d: indptr not monotone at row %d", level, i)
			}
		}
		for _, idx := range l.Indices {
			if int(idx) >= g.Rows {
				return fmt.Errorf("level %d: index %d out of range [0,%d)", level, idx, g.Rows)
			}
		}

		for row := 0; row < g.Rows; row++ {
			seen := make(map[uint32]bool)
			for _, n := range l.Neighbors(row) {
				if int(n) == row {
					return fmt.Errorf("level %d: self-loop at row %d", level, row)
				}
				if seen[n] {
					return fmt.Errorf("level %d: duplicate neighbor %d at row %d", level, n, row)
				}
				seen[n] = true
				if !hasNeighbor(l, int(n), row) {
					return fmt.Errorf("level %d: asymmetric edge %d -> %d", level, row, n)
				}
			}
		}
	}
	if g.Rows > 0 {
		if g.EntryPoint < 0 || g.EntryPoint >= g.Rows {
			return fmt.Errorf("entryPoint %d out of range [0,%d)", g.EntryPoint, g.Rows)
		}
	}
	return nil
}

func hasNeighbor(l Level, row, target int) bool {
	for _, n := range l.Neighbors(row) {
		if int(n) == target {
			return true
		}
	}
	return false
}
