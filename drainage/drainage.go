// Package drainage implements the Outlet Drainage Accountant (spec §4.6):
// an aggressive, non-physical sink that removes water from outlet cells
// each step and keeps the monotonic per-outlet and cumulative volume record.
package drainage

import (
	"math"
	"sort"
	"sync"

	"github.com/maseology/overlandflow/grid"
)

// Params are the calibratable knobs behind the adaptive drain factor. The
// original implementation hard-coded these (2.5, slope 0.2, ramp to 120s);
// per spec §9 Open Question 1 they are exposed here instead.
type Params struct {
	// DrainBoost multiplies the base Manning outflow. Default 2.5.
	DrainBoost float64
	// DrainAssumedSlope is the fixed hydraulic slope f_base assumes.
	// Default 0.2.
	DrainAssumedSlope float64
	// DrainRampSeconds is the time horizon over which the drain factor
	// ramps from 70% to 100% strength. Default 120.
	DrainRampSeconds float64
}

// DefaultParams mirrors the constants recovered from the original
// implementation's routeWaterToOutlets/step loop.
func DefaultParams() Params {
	return Params{DrainBoost: 2.5, DrainAssumedSlope: 0.2, DrainRampSeconds: 120}
}

// drainCapFraction is the maximum share of a cell's stored volume that can
// be drained in one step, preventing the outlet from going dry and falling
// out of the active-cell set (spec §4.6).
const drainCapFraction = 0.95

// TimeVolume is one (t, cumulative volume) entry in the drainage time
// series (spec §3 Time series).
type TimeVolume struct {
	Time   float64
	Volume float64
}

// Accountant tracks per-outlet and global drained volume. Updates go
// through a single-writer path guarded by mu, matching spec §5's
// "single lock, negligible contention at <=50 outlets" contract.
type Accountant struct {
	mu         sync.Mutex
	outlets    []int
	perOutlet  map[int]float64
	global     float64
	series     []TimeVolume
	params     Params
	manning    float64
	minDepth   float64
	resolution float64
}

// New creates an Accountant for the given outlet cells.
func New(outlets []int, manning, minDepth, resolution float64, params Params) *Accountant {
	a := &Accountant{
		outlets:    append([]int{}, outlets...),
		perOutlet:  make(map[int]float64, len(outlets)),
		manning:    manning,
		minDepth:   minDepth,
		resolution: resolution,
		params:     params,
	}
	for _, k := range outlets {
		a.perOutlet[k] = 0
	}
	return a
}

// Reset clears all accumulated volumes and seeds the time series with the
// (0,0) entry initialize() requires.
func (a *Accountant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.global = 0
	for k := range a.perOutlet {
		a.perOutlet[k] = 0
	}
	a.series = []TimeVolume{{Time: 0, Volume: 0}}
}

// Drain applies one step's drainage law to every outlet cell with
// h > min_depth, and appends (t+dt, global) to the time series. totalWater
// is the current system-wide stored volume, used by the adaptive factor.
func (a *Accountant) Drain(g *grid.Grid, t, dt, totalWater float64) {
	cellArea := g.CellArea()
	factor := a.drainFactor(t, totalWater)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, k := range a.outlets {
		h := g.H(k)
		if h <= a.minDepth {
			continue
		}
		cellVolume := h * cellArea
		base := (h * g.Resolution) * math.Pow(h, 2.0/3.0) * math.Sqrt(a.params.DrainAssumedSlope)
		q := factor * base / a.manning
		vol := q * dt
		if cap := drainCapFraction * cellVolume; vol > cap {
			vol = cap
		}
		g.SetH(k, h-vol/cellArea)
		a.global += vol
		a.perOutlet[k] += vol
	}
	a.series = append(a.series, TimeVolume{Time: t + dt, Volume: a.global})
}

// drainFactor implements spec §4.6's adaptive multiplier: stronger when
// more water sits on the grid, ramping up over the first ~120s of
// simulated time.
func (a *Accountant) drainFactor(t, totalWater float64) float64 {
	const systemWaterThreshold = 1.0
	systemMultiplier := 1.0
	if totalWater > systemWaterThreshold {
		systemMultiplier = 1.0 + math.Min(2.0, (totalWater-systemWaterThreshold)/10.0)
	}
	ramp := 0.7 + 0.3*math.Min(1.0, t/a.params.DrainRampSeconds)
	return a.params.DrainBoost * systemMultiplier * ramp
}

// GlobalVolume returns the cumulative drained volume across all outlets.
func (a *Accountant) GlobalVolume() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.global
}

// PerOutletVolumes returns a snapshot of cell index -> cumulative volume.
func (a *Accountant) PerOutletVolumes() map[int]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]float64, len(a.perOutlet))
	for k, v := range a.perOutlet {
		out[k] = v
	}
	return out
}

// PerOutletVolumesByDescendingVolume returns (cellIndex, volume) pairs
// sorted by descending volume, matching the persisted results format's
// per-outlet section (spec §6).
func (a *Accountant) PerOutletVolumesByDescendingVolume() []struct {
	CellIndex int
	Volume    float64
} {
	snap := a.PerOutletVolumes()
	out := make([]struct {
		CellIndex int
		Volume    float64
	}, 0, len(snap))
	for k, v := range snap {
		out = append(out, struct {
			CellIndex int
			Volume    float64
		}{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Volume > out[j].Volume })
	return out
}

// TimeSeries returns the recorded (t, cumulative volume) pairs.
func (a *Accountant) TimeSeries() []TimeVolume {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]TimeVolume, len(a.series))
	copy(out, a.series)
	return out
}

// Outlets returns the outlet cell indices this accountant was built with.
func (a *Accountant) Outlets() []int { return a.outlets }
