// Package driver composes the Rainfall Source, Solver, and Outlet Drainage
// Accountant into the per-tick simulation loop (spec §4.7), owns simulation
// time, and publishes progress events to registered Observers.
package driver

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maseology/overlandflow/drainage"
	"github.com/maseology/overlandflow/flowrouter"
	"github.com/maseology/overlandflow/grid"
	"github.com/maseology/overlandflow/internal/logging"
	"github.com/maseology/overlandflow/outlet"
	"github.com/maseology/overlandflow/rainfall"
	"github.com/maseology/overlandflow/solver"
)

// ErrInvalidParameter is returned by Initialize when resolution, Manning's
// n, total_time, or dt are non-positive (spec §7).
var ErrInvalidParameter = fmt.Errorf("driver: invalid parameter")

// ErrNoOutlets is returned by Initialize when the outlet set is empty after
// all of the Outlet Selector's fallbacks (spec §7).
var ErrNoOutlets = fmt.Errorf("driver: no outlets configured")

// Config holds the scalar parameters of spec §3 "Simulation parameters",
// plus the ambient knobs this module's expansion adds for the drainage
// accountant and observer cadence.
type Config struct {
	Manning    float64
	Ks         float64
	MinDepth   float64
	TotalTime  float64
	Dt         float64
	Resolution float64

	ConstantRainfall float64

	Drain drainage.Params

	// SnapshotEveryNSteps controls how often OnStepCompleted fires; the
	// underlying step loop itself always completes every dt (spec §6,
	// "downsampling is a view concern").
	SnapshotEveryNSteps int

	// LogEverySeconds gates the driver's per-step INFO line to once per
	// this many simulated seconds, rather than once per step, so a long
	// run at a small Dt doesn't flood the log (spec expansion §6).
	LogEverySeconds int
}

// Observer receives one-way notifications from the driver, generalizing the
// teacher's "DomainManipulator writes to an io.Writer" pattern into an
// explicit push interface (spec §9, "engine publishes, UI consumes").
type Observer interface {
	OnTimeAdvanced(t, total float64)
	OnStepCompleted(snapshot []float64)
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithObserver registers an Observer to receive step notifications.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// WithRainfallSchedule enables time-varying rainfall with the given
// canonicalized schedule instead of Config.ConstantRainfall.
func WithRainfallSchedule(points []rainfall.Point) Option {
	return func(d *Driver) {
		d.rain.EnableVarying(true)
		d.rain.SetSchedule(points)
	}
}

// WithLogger attaches a structured logger; the driver emits an INFO line
// at most once per Config.LogEverySeconds simulated seconds (every second
// when that is unset), plus one on the step that finishes the run.
func WithLogger(log *logrus.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// Driver owns the Grid and every subordinate component for one simulation
// run (spec §4.7).
type Driver struct {
	grid    *grid.Grid
	cfg     Config
	solver  *solver.Solver
	rain    *rainfall.Source
	account *drainage.Accountant
	outlets *outlet.Set
	route   *flowrouter.Result

	time        float64
	stepCount   int
	initialized bool
	lastLogTime float64

	observers []Observer
	log       *logrus.Logger
}

// New constructs a Driver bound to g and outlets with the given Config.
// The Flow Router's depression-fill/D8 preprocessing runs once here, since
// it only depends on (mutated) elevation, never on h.
func New(g *grid.Grid, outlets *outlet.Set, cfg Config, opts ...Option) *Driver {
	flowrouter.Fill(g)
	route := flowrouter.Route(g)

	d := &Driver{
		grid:    g,
		cfg:     cfg,
		outlets: outlets,
		rain:    rainfall.NewConstant(cfg.ConstantRainfall),
		route:   route,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Initialize validates parameters, resets time/depths/accounting, and seeds
// the active-cell state, per spec §4.7.
func (d *Driver) Initialize() error {
	if d.cfg.Resolution <= 0 || d.cfg.Manning <= 0 || d.cfg.TotalTime <= 0 || d.cfg.Dt <= 0 {
		if d.log != nil {
			d.log.WithError(ErrInvalidParameter).Warn("initialize rejected")
		}
		return ErrInvalidParameter
	}
	if d.outlets == nil || d.outlets.Len() == 0 {
		if d.log != nil {
			d.log.WithError(ErrNoOutlets).Warn("initialize rejected")
		}
		return ErrNoOutlets
	}

	d.grid.Reset()
	d.time = 0
	d.stepCount = 0
	d.lastLogTime = 0

	d.solver = solver.New(d.grid, solver.Params{
		Manning:  d.cfg.Manning,
		Ks:       d.cfg.Ks,
		MinDepth: d.cfg.MinDepth,
		Dt:       d.cfg.Dt,
	})
	for _, k := range d.outlets.Indices() {
		d.solver.Activate(k)
	}

	d.account = drainage.New(d.outlets.Indices(), d.cfg.Manning, d.cfg.MinDepth, d.cfg.Resolution, d.cfg.Drain)
	d.account.Reset()

	d.initialized = true
	return nil
}

// Step advances the simulation by one dt: Rainfall Source -> Solver ->
// Outlet Accountant -> time advance -> observer notification (spec §4.7).
func (d *Driver) Step() error {
	if !d.initialized {
		return fmt.Errorf("driver: Step called before Initialize")
	}
	rate := d.rain.RateAt(d.time)
	d.solver.Step(rate)
	d.account.Drain(d.grid, d.time, d.cfg.Dt, d.solver.TotalActiveVolume())
	d.time += d.cfg.Dt
	d.stepCount++

	if d.log != nil {
		logEvery := d.cfg.LogEverySeconds
		if logEvery <= 0 {
			logEvery = 1
		}
		if d.time-d.lastLogTime >= float64(logEvery) || d.IsFinished() {
			d.log.WithFields(logging.StepFields(d.time, d.cfg.Dt, len(d.solver.ActiveCells()), d.account.GlobalVolume())).Info("step completed")
			d.lastLogTime = d.time
		}
	}

	for _, o := range d.observers {
		o.OnTimeAdvanced(d.time, d.cfg.TotalTime)
	}
	n := d.cfg.SnapshotEveryNSteps
	if n <= 0 {
		n = 5
	}
	if d.stepCount%n == 0 {
		snap := d.grid.SnapshotDepths()
		for _, o := range d.observers {
			o.OnStepCompleted(snap)
		}
	}
	return nil
}

// IsFinished reports whether simulation time has reached total_time.
func (d *Driver) IsFinished() bool { return d.time >= d.cfg.TotalTime }

// Time returns the current simulation time.
func (d *Driver) Time() float64 { return d.time }

// SnapshotDepths returns a read-only copy of the current depth field.
func (d *Driver) SnapshotDepths() []float64 { return d.grid.SnapshotDepths() }

// ActiveCellCount returns the number of cells currently in the solver's
// active-cell set.
func (d *Driver) ActiveCellCount() int { return len(d.solver.ActiveCells()) }

// TimeSeries returns the cumulative (t, V) drainage series.
func (d *Driver) TimeSeries() []drainage.TimeVolume { return d.account.TimeSeries() }

// PerOutletVolumes returns cell index -> cumulative drained volume.
func (d *Driver) PerOutletVolumes() map[int]float64 { return d.account.PerOutletVolumes() }

// FlowAccumulation returns a flat, grid-indexed copy of the Flow Router's
// accumulation raster.
func (d *Driver) FlowAccumulation() []float64 { return d.route.Flat() }

// Grid exposes the bound grid for read-only inspection (dimensions,
// resolution, elevations).
func (d *Driver) Grid() *grid.Grid { return d.grid }

// SetParam updates one of the scalar run parameters (spec §6 set_param).
// It fails if the simulation has already been initialized and is running,
// matching spec §6's "fails when simulation is running".
func (d *Driver) SetParam(kind string, value float64) error {
	if d.initialized && !d.IsFinished() {
		return fmt.Errorf("driver: cannot set %q while a simulation is running", kind)
	}
	switch kind {
	case "manning":
		d.cfg.Manning = value
	case "ks":
		d.cfg.Ks = value
	case "min_depth":
		d.cfg.MinDepth = value
	case "dt":
		d.cfg.Dt = value
	case "total_time":
		d.cfg.TotalTime = value
	case "resolution":
		d.cfg.Resolution = value
	case "constant_rainfall":
		d.cfg.ConstantRainfall = value
		d.rain.SetConstant(value)
	default:
		return fmt.Errorf("driver: unknown parameter %q", kind)
	}
	return nil
}
