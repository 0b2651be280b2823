// Package outlet selects the drainage outlet cells consumed by the solver
// and the drainage accountant, either from the lowest-elevation percentile
// of the DEM boundary or from a caller-supplied list of pixel coordinates.
package outlet

import "sort"

import "github.com/maseology/overlandflow/grid"

// DefaultPercentile is used when manual selection falls back to Operation A
// (spec §4.2, Operation B's final sentence).
const DefaultPercentile = 0.1

const maxOutlets = 50

// Set is an ordered, deduplicated collection of outlet cell indices.
type Set struct {
	indices []int
}

// Indices returns the outlet cell indices in selection order.
func (s *Set) Indices() []int { return s.indices }

// Len returns the number of outlets.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.indices)
}

type boundaryCell struct {
	elevation float64
	index     int
}

// ByPercentile runs Operation A of spec §4.2: boundary cells are sorted by
// elevation ascending (ties broken by 1-D index), and the lowest
// clamp(1, min(floor(p*|boundary|), floor(0.1*|boundary|), 50)) are kept.
// If the grid has no boundary cells with valid elevation, the selector falls
// back to the single globally lowest non-no-data cell.
func ByPercentile(g *grid.Grid, p float64) *Set {
	boundary := boundaryCells(g)
	if len(boundary) == 0 {
		if k, ok := globalLowest(g); ok {
			return &Set{indices: []int{k}}
		}
		return &Set{}
	}
	sort.Slice(boundary, func(a, b int) bool {
		if boundary[a].elevation != boundary[b].elevation {
			return boundary[a].elevation < boundary[b].elevation
		}
		return boundary[a].index < boundary[b].index
	})
	n := outletCount(p, len(boundary))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = boundary[i].index
	}
	return &Set{indices: out}
}

// Manual runs Operation B of spec §4.2: keeps in-bounds, non-no-data
// coordinates from coords, deduplicated while preserving first occurrence.
// If every candidate is rejected, it falls back to ByPercentile with
// fallbackPercentile.
func Manual(g *grid.Grid, coords [][2]int, fallbackPercentile float64) *Set {
	seen := make(map[int]bool, len(coords))
	var out []int
	for _, rc := range coords {
		i, j := rc[0], rc[1]
		if i < 0 || i >= g.NX || j < 0 || j >= g.NY {
			continue
		}
		k := g.Idx(i, j)
		if g.IsNoData(k) {
			continue
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	if len(out) == 0 {
		return ByPercentile(g, fallbackPercentile)
	}
	return &Set{indices: out}
}

func boundaryCells(g *grid.Grid) []boundaryCell {
	var cells []boundaryCell
	for i := 0; i < g.NX; i++ {
		for j := 0; j < g.NY; j++ {
			if i != 0 && i != g.NX-1 && j != 0 && j != g.NY-1 {
				continue
			}
			k := g.Idx(i, j)
			if g.IsNoData(k) {
				continue
			}
			cells = append(cells, boundaryCell{elevation: g.Z(k), index: k})
		}
	}
	return cells
}

func globalLowest(g *grid.Grid) (int, bool) {
	best := -1
	bestZ := 0.0
	found := false
	for k := 0; k < g.NumCells(); k++ {
		if g.IsNoData(k) {
			continue
		}
		if !found || g.Z(k) < bestZ {
			bestZ = g.Z(k)
			best = k
			found = true
		}
	}
	return best, found
}

// outletCount implements the triple cap of spec §4.2 step 4:
// clamp(1, min(floor(p*|boundary|), floor(0.1*|boundary|), 50)).
func outletCount(p float64, boundaryLen int) int {
	byPercentile := int(p * float64(boundaryLen))
	byTenPercent := int(0.1 * float64(boundaryLen))
	n := min3(byPercentile, byTenPercent, maxOutlets)
	if n < 1 {
		n = 1
	}
	if n > boundaryLen {
		n = boundaryLen
	}
	return n
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
