// Package grid owns the rectangular DEM lattice: elevations, water depths,
// the no-data mask, and the pre-computed neighbor tables consumed by every
// other component of the solver.
package grid

import "fmt"

// NoData is the internal sentinel stored for cells with no valid elevation.
// Any elevation at or below noDataThreshold is treated as no-data on ingest.
const NoData = -999999.0

const noDataThreshold = -999998.0

// Direction indexes into a cell's neighbor table: N, E, S, W.
const (
	North = 0
	East  = 1
	South = 2
	West  = 3
)

// ErrInvalidDimensions is returned by New and the loaders when nx, ny, or
// resolution are non-positive (spec §7 InvalidDimensions).
var ErrInvalidDimensions = fmt.Errorf("grid: invalid dimensions")

// ErrLoadFailed is returned by the table/raster loaders when the source
// is missing, unreadable, empty, or malformed (spec §7 LoadFailed).
var ErrLoadFailed = fmt.Errorf("grid: load failed")

// Opposite returns the reciprocal direction, e.g. Opposite(North) == South.
func Opposite(d int) int { return (d + 2) % 4 }

// IsNoData reports whether a raw elevation value should be treated as
// no-data, using the same tolerance the rest of the package uses internally.
func IsNoData(z float64) bool { return z <= noDataThreshold }

// Grid is a flat nx*ny lattice addressed by idx(i,j) = i*ny+j, row 0 at the
// top of the raster. z is immutable once loaded; h is mutated by the solver.
type Grid struct {
	NX, NY     int
	Resolution float64

	z []float64
	h []float64

	// neighbors[k][d] holds the 1-D index of the neighbor in direction d,
	// or -1 if k has no such neighbor (grid edge or no-data neighbor).
	neighbors [][4]int
}

// New allocates a grid from a complete elevation slice, no-data cells already
// normalized to the internal sentinel. h is zeroed and the neighbor table is
// built once.
func New(nx, ny int, resolution float64, z []float64) (*Grid, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidDimensions, nx, ny)
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: invalid resolution %g", ErrInvalidDimensions, resolution)
	}
	if len(z) != nx*ny {
		return nil, fmt.Errorf("%w: elevation slice has %d values, want %d", ErrLoadFailed, len(z), nx*ny)
	}
	g := &Grid{
		NX:         nx,
		NY:         ny,
		Resolution: resolution,
		z:          z,
		h:          make([]float64, nx*ny),
	}
	g.buildNeighbors()
	return g, nil
}

// Idx converts a (row, col) pair to its flat 1-D index.
func (g *Grid) Idx(i, j int) int { return i*g.NY + j }

// RowCol converts a flat index back to (row, col).
func (g *Grid) RowCol(k int) (i, j int) { return k / g.NY, k % g.NY }

// NumCells returns nx*ny.
func (g *Grid) NumCells() int { return g.NX * g.NY }

// CellArea returns resolution^2, the plan-view area of one cell.
func (g *Grid) CellArea() float64 { return g.Resolution * g.Resolution }

// Z returns the elevation at k.
func (g *Grid) Z(k int) float64 { return g.z[k] }

// H returns the water depth at k.
func (g *Grid) H(k int) float64 { return g.h[k] }

// SetH sets the water depth at k, clamped to be non-negative.
func (g *Grid) SetH(k int, v float64) {
	if v < 0 {
		v = 0
	}
	g.h[k] = v
}

// AddH adds delta to the water depth at k, clamped to be non-negative.
func (g *Grid) AddH(k int, delta float64) {
	g.SetH(k, g.h[k]+delta)
}

// Depths returns the live depth slice (len NX*NY). Callers must not retain
// a mutable reference across a Reset.
func (g *Grid) Depths() []float64 { return g.h }

// SnapshotDepths returns a copy of the current depth field, safe to hold
// across subsequent steps.
func (g *Grid) SnapshotDepths() []float64 {
	out := make([]float64, len(g.h))
	copy(out, g.h)
	return out
}

// IsNoData reports whether cell k has no valid elevation.
func (g *Grid) IsNoData(k int) bool { return IsNoData(g.z[k]) }

// Neighbor returns the 1-D index of the neighbor of k in direction d, or -1
// if k has no such neighbor (edge of grid, or the neighbor is no-data).
func (g *Grid) Neighbor(k, d int) int { return g.neighbors[k][d] }

// Neighbors returns the full [N,E,S,W] neighbor table entry for k.
func (g *Grid) Neighbors(k int) [4]int { return g.neighbors[k] }

// Reset zeroes all water depths, leaving elevations and neighbor tables
// untouched. Used by the Step Driver's initialize().
func (g *Grid) Reset() {
	for i := range g.h {
		g.h[i] = 0
	}
}

// SetZ overwrites the elevation at k. Only the Flow Router's depression-fill
// preprocessing is expected to call this, before a simulation run begins;
// elevations are otherwise immutable for the lifetime of a run.
func (g *Grid) SetZ(k int, v float64) { g.z[k] = v }

// buildNeighbors constructs the once-built N/E/S/W index table described in
// spec §4.1: out-of-bounds or no-data neighbors are recorded as -1 so the
// hot loops in the solver never need a bounds check.
func (g *Grid) buildNeighbors() {
	g.neighbors = make([][4]int, g.NumCells())
	for i := 0; i < g.NX; i++ {
		for j := 0; j < g.NY; j++ {
			k := g.Idx(i, j)
			var nb [4]int
			nb[North] = g.boundedNeighbor(i-1, j)
			nb[East] = g.boundedNeighbor(i, j+1)
			nb[South] = g.boundedNeighbor(i+1, j)
			nb[West] = g.boundedNeighbor(i, j-1)
			g.neighbors[k] = nb
		}
	}
}

func (g *Grid) boundedNeighbor(i, j int) int {
	if i < 0 || i >= g.NX || j < 0 || j >= g.NY {
		return -1
	}
	k := g.Idx(i, j)
	if g.IsNoData(k) {
		return -1
	}
	return k
}
