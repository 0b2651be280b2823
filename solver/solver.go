// Package solver implements the hot-path per-step update: forcing,
// Manning-formula flux computation between active cells, mass-conservative
// scaling, the net depth update, and active-cell-set maintenance (spec §4.5).
package solver

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/maseology/overlandflow/grid"
)

// Params holds the simulation scalars the solver needs on every step.
type Params struct {
	Manning  float64 // Manning's roughness, unitless
	Ks       float64 // infiltration rate, m/s
	MinDepth float64 // wet/dry threshold, m
	Dt       float64 // fixed step size, s
}

// activeBuffer is one half of the two-buffer active-cell set: a dense
// bitmap for O(1) membership and a sorted list for iteration, kept
// consistent with each other (spec §3 Active-cell set).
type activeBuffer struct {
	bitmap []bool
	list   []int
}

func (b *activeBuffer) add(k int) {
	if !b.bitmap[k] {
		b.bitmap[k] = true
		b.list = append(b.list, k)
	}
}

func (b *activeBuffer) reset() {
	for _, k := range b.list {
		b.bitmap[k] = false
	}
	b.list = b.list[:0]
}

// Solver owns the scratch arrays and active-set buffers for one grid. It
// borrows the grid's h[] mutably during Step and leaves it consistent with
// the grid's invariants (h >= 0) on return.
type Solver struct {
	g      *grid.Grid
	params Params
	nprocs int

	cur  activeBuffer
	next activeBuffer

	// Per-cell scratch, reused across steps. q[k][d] is cell k's outflow
	// toward neighbor direction d (m^3/s); c[k] is its mass-conservative
	// scale factor. touched holds the indices whose scratch entries may be
	// non-zero from the previous step and must be cleared before reuse.
	q       [][4]float64
	c       []float64
	touched []int
}

// New allocates a Solver bound to g with no active cells.
func New(g *grid.Grid, p Params) *Solver {
	n := g.NumCells()
	s := &Solver{
		g:      g,
		params: p,
		nprocs: runtime.GOMAXPROCS(0),
		cur:    activeBuffer{bitmap: make([]bool, n)},
		next:   activeBuffer{bitmap: make([]bool, n)},
		q:      make([][4]float64, n),
		c:      make([]float64, n),
	}
	for i := range s.c {
		s.c[i] = 1
	}
	return s
}

// Activate seeds k into the active-cell set, e.g. for a non-zero initial
// depth at initialize() time. Per spec §3, the active-cell set is closed
// under "neighbor of an active cell", so k's halo is seeded too -- a dry
// neighbor must already be a set member the first time it receives inflow,
// or that inflow would have nowhere to land this step.
func (s *Solver) Activate(k int) { s.addWithHalo(k) }

func (s *Solver) addWithHalo(k int) {
	s.cur.add(k)
	for d := 0; d < 4; d++ {
		if nb := s.g.Neighbor(k, d); nb >= 0 {
			s.cur.add(nb)
		}
	}
}

// ActiveCells returns the current active-cell list (not a copy; callers
// must not mutate it).
func (s *Solver) ActiveCells() []int { return s.cur.list }

// TotalActiveVolume returns the sum of h[k]*cellArea over the active-cell
// list, a cheap running estimate of system water used by the drainage
// accountant's adaptive factor (spec §4.6 "total system water").
func (s *Solver) TotalActiveVolume() float64 {
	area := s.g.CellArea()
	total := 0.0
	for _, k := range s.cur.list {
		total += s.g.H(k) * area
	}
	return total
}

// Step advances the grid's water depths by one dt under rainfall rate and
// applies the four sweeps of spec §4.5 in strict order. The forcing, flux,
// and depth-update sweeps split their disjoint per-cell work across a fixed
// worker pool, mirroring the teacher's Calculations/sync.WaitGroup
// worker-pool pattern; active-set maintenance runs on a single goroutine.
func (s *Solver) Step(rate float64) {
	newlyActive := s.forcing(rate)

	combined := append([]int{}, s.cur.list...)
	addCombined := func(k int) {
		if !s.cur.bitmap[k] {
			s.cur.add(k)
			combined = append(combined, k)
		}
	}
	for _, k := range newlyActive {
		addCombined(k)
		for d := 0; d < 4; d++ {
			if nb := s.g.Neighbor(k, d); nb >= 0 {
				addCombined(nb)
			}
		}
	}

	s.resetScratch()
	s.computeFlux(combined)
	s.applyDepthChange(combined)
	s.maintainActiveSet(combined)

	s.touched = combined
}

// forcing applies (r-Ks)*dt uniformly to every non-no-data cell in parallel
// (spec §4.5a) and returns the cells that crossed the wet threshold.
func (s *Solver) forcing(rate float64) []int {
	net := (rate - s.params.Ks) * s.params.Dt
	n := s.g.NumCells()

	var mu sync.Mutex
	var newlyActive []int
	var wg sync.WaitGroup
	wg.Add(s.nprocs)
	for pp := 0; pp < s.nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			var local []int
			for k := pp; k < n; k += s.nprocs {
				if s.g.IsNoData(k) {
					continue
				}
				s.g.AddH(k, net)
				if s.g.H(k) > s.params.MinDepth {
					local = append(local, k)
				}
			}
			if len(local) > 0 {
				mu.Lock()
				newlyActive = append(newlyActive, local...)
				mu.Unlock()
			}
		}(pp)
	}
	wg.Wait()
	return newlyActive
}

// resetScratch clears q/c for every cell touched by the previous step,
// maintaining the invariant that any cell with non-zero scratch state is a
// member of the set about to be recomputed.
func (s *Solver) resetScratch() {
	for _, k := range s.touched {
		s.q[k] = [4]float64{}
		s.c[k] = 1
	}
}

// computeFlux runs spec §4.5(b)-(c): Manning outflow into each of the 4
// neighbors for every active, sufficiently wet cell, then the
// mass-conservative scale factor c[k].
func (s *Solver) computeFlux(combined []int) {
	cellArea := s.g.CellArea()
	s.parallelOver(combined, func(k int) {
		h := s.g.H(k)
		if h < s.params.MinDepth {
			return
		}
		z := s.g.Z(k)
		head := z + h
		var qTotal float64
		var q [4]float64
		for d := 0; d < 4; d++ {
			nb := s.g.Neighbor(k, d)
			if nb < 0 {
				continue
			}
			dH := head - (s.g.Z(nb) + s.g.H(nb))
			if dH <= 0 {
				continue
			}
			slope := dH / s.g.Resolution
			a := h * s.g.Resolution
			r := h
			flow := (a * math.Pow(r, 2.0/3.0) * math.Sqrt(slope)) / s.params.Manning
			q[d] = flow
			qTotal += flow
		}
		s.q[k] = q
		if qTotal*s.params.Dt <= h*cellArea {
			s.c[k] = 1
		} else {
			s.c[k] = (h * cellArea) / (qTotal * s.params.Dt)
		}
	})
}

// applyDepthChange runs spec §4.5(d): net depth change from the cell's own
// scaled outflow and the scaled inflow from each neighbor's flux toward it.
func (s *Solver) applyDepthChange(combined []int) {
	cellArea := s.g.CellArea()
	dt := s.params.Dt
	s.parallelOver(combined, func(k int) {
		q := s.q[k]
		outflow := s.c[k] * (q[0] + q[1] + q[2] + q[3])
		var inflow float64
		for d := 0; d < 4; d++ {
			nb := s.g.Neighbor(k, d)
			if nb < 0 {
				continue
			}
			opp := grid.Opposite(d)
			inflow += s.c[nb] * s.q[nb][opp]
		}
		delta := (dt / cellArea) * (inflow - outflow)
		s.g.AddH(k, delta)
	})
}

// maintainActiveSet runs spec §4.5(e): wet cells stay active and activate
// their neighbors so the wetting front can advance next step; cells at or
// below min_depth are dropped unless a wet neighbor re-adds them. Writes
// into the shared next-step buffer are serialized, per spec §5.
func (s *Solver) maintainActiveSet(combined []int) {
	for _, k := range combined {
		if s.g.H(k) > s.params.MinDepth {
			s.next.add(k)
			for d := 0; d < 4; d++ {
				if nb := s.g.Neighbor(k, d); nb >= 0 {
					s.next.add(nb)
				}
			}
		} else {
			s.g.SetH(k, 0)
		}
	}
	sort.Ints(s.next.list)

	s.cur.reset()
	s.cur, s.next = s.next, s.cur
}

// parallelOver runs fn(k) for every k in items across the worker pool,
// joining before returning (spec §5: strict ordering between sweeps).
func (s *Solver) parallelOver(items []int, fn func(k int)) {
	var wg sync.WaitGroup
	wg.Add(s.nprocs)
	for pp := 0; pp < s.nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for i := pp; i < len(items); i += s.nprocs {
				fn(items[i])
			}
		}(pp)
	}
	wg.Wait()
}
