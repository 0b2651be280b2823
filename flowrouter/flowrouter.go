// Package flowrouter runs the one-shot DEM preprocessing pass: depression
// filling followed by D8 steepest-descent flow direction and a single-pass
// flow-accumulation sweep (spec §4.4).
package flowrouter

import (
	"math"

	"github.com/ctessum/sparse"

	"github.com/maseology/overlandflow/grid"
)

// MaxFillIterations bounds the depression-fill loop of spec §4.4 step 1.
const MaxFillIterations = 3

// fillDepth is how far below the lowest neighbor a filled pit is set, which
// intentionally biases the cell to drain outward on the next sweep.
const fillDepth = 0.01

var d8RowOffset = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}
var d8ColOffset = [8]int{0, 1, 1, 1, 0, -1, -1, -1}

// Result holds the D8 flow-direction assignment and the derived
// flow-accumulation raster, both indexed like the grid. Accumulation is
// backed by the teacher's own 2-D sparse.DenseArray raster type instead of a
// flat slice, since that is the storage the teacher reaches for whenever it
// holds a gridded field (vargrid.go, preproc.go).
type Result struct {
	// FlowDir[k] is the 1-D index of the steepest downhill neighbor of k, or
	// -1 if k has no downhill neighbor.
	FlowDir []int
	// Accumulation holds the flow-accumulation weight raster, shaped [nx][ny].
	Accumulation *sparse.DenseArray
}

// At returns the accumulation weight at flat grid index k.
func (r *Result) At(k int) float64 {
	return r.Accumulation.Get(r.Accumulation.IndexNd(k)...)
}

func (r *Result) addAt(k int, delta float64) {
	idx := r.Accumulation.IndexNd(k)
	r.Accumulation.Set(r.Accumulation.Get(idx...)+delta, idx...)
}

// Flat copies the accumulation raster into a flat, grid-indexed slice, the
// shape external consumers (the Step Driver, the results writer) expect.
func (r *Result) Flat() []float64 {
	out := make([]float64, len(r.Accumulation.Elements))
	copy(out, r.Accumulation.Elements)
	return out
}

// Fill performs depression filling in place on g's elevations, iterating at
// most MaxFillIterations passes. A cell is a pit when every non-no-data
//8-neighbor is strictly higher; it is raised to (lowest neighbor - 0.01m).
// Fill returns the number of iterations it actually ran.
func Fill(g *grid.Grid) int {
	iterations := 0
	for iterations < MaxFillIterations {
		iterations++
		raisedAny := false
		for i := 1; i < g.NX-1; i++ {
			for j := 1; j < g.NY-1; j++ {
				k := g.Idx(i, j)
				if g.IsNoData(k) {
					continue
				}
				lowest, isPit := lowestNeighbor8(g, i, j, g.Z(k))
				if isPit {
					g.SetZ(k, lowest-fillDepth)
					raisedAny = true
				}
			}
		}
		if !raisedAny {
			break
		}
	}
	return iterations
}

// lowestNeighbor8 reports the elevation of k's lowest valid 8-neighbor, and
// whether every valid 8-neighbor is strictly higher than zK (a pit).
func lowestNeighbor8(g *grid.Grid, i, j int, zK float64) (lowest float64, isPit bool) {
	lowest = math.MaxFloat64
	isPit = true
	for d := 0; d < 8; d++ {
		ni, nj := i+d8RowOffset[d], j+d8ColOffset[d]
		if ni < 0 || ni >= g.NX || nj < 0 || nj >= g.NY {
			continue
		}
		nk := g.Idx(ni, nj)
		if g.IsNoData(nk) {
			continue
		}
		nz := g.Z(nk)
		if nz <= zK {
			isPit = false
		}
		if nz < lowest {
			lowest = nz
		}
	}
	if lowest == math.MaxFloat64 {
		isPit = false
	}
	return lowest, isPit
}

// Route computes D8 flow direction and flow accumulation on the current
// (already filled) elevations, per spec §4.4 step 2. Accumulation is an
// O(N) single-pass row-major sweep: an approximation that under-counts
// contributions flowing to an already-visited cell, accepted per spec §9.3
// since the raster is used only as a relative weight, never conserved.
func Route(g *grid.Grid) *Result {
	n := g.NumCells()
	r := &Result{
		FlowDir:      make([]int, n),
		Accumulation: sparse.ZerosDense(g.NX, g.NY),
	}
	for k := range r.FlowDir {
		r.FlowDir[k] = -1
	}
	for i := 0; i < g.NX; i++ {
		for j := 0; j < g.NY; j++ {
			k := g.Idx(i, j)
			if g.IsNoData(k) {
				continue
			}
			nk := steepestDescent(g, i, j)
			if nk < 0 {
				continue
			}
			r.FlowDir[k] = nk
			r.addAt(nk, 1+r.At(k))
		}
	}
	return r
}

func steepestDescent(g *grid.Grid, i, j int) int {
	k := g.Idx(i, j)
	zK := g.Z(k)
	maxSlope := 0.0
	best := -1
	for d := 0; d < 8; d++ {
		ni, nj := i+d8RowOffset[d], j+d8ColOffset[d]
		if ni < 0 || ni >= g.NX || nj < 0 || nj >= g.NY {
			continue
		}
		nk := g.Idx(ni, nj)
		if g.IsNoData(nk) {
			continue
		}
		distance := g.Resolution
		if d%2 == 1 {
			distance *= math.Sqrt2
		}
		slope := (zK - g.Z(nk)) / distance
		if slope > maxSlope {
			maxSlope = slope
			best = nk
		}
	}
	return best
}
