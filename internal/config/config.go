// Package config loads run parameters through a layered viper configuration
// (flags > file > defaults), the same stack the teacher wires together in
// inmaputil/config.go and inmaputil/cmd.go, adapted from JSON/shapefile
// configuration to this module's TOML run files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"

	"github.com/maseology/overlandflow/drainage"
	"github.com/maseology/overlandflow/driver"
)

// Defaults mirror DefaultParams() in package drainage and the scalar
// defaults spec.md §3 implies for a first run.
const (
	DefaultManning    = 0.03
	DefaultKs         = 0.0
	DefaultMinDepth   = 0.001
	DefaultDt         = 1.0
	DefaultTotalTime  = 3600.0
	DefaultResolution = 1.0
	DefaultPercentile = 0.1

	DefaultSnapshotEveryNSteps = 5
	DefaultLogEverySeconds     = 10
)

// RunConfig holds every value a run needs to build a grid, an outlet set,
// and a driver.Driver, unmarshaled from the layered viper config.
type RunConfig struct {
	DEMPath          string
	RainfallSchedule string

	OutletMode       string // "percentile" or "manual"
	OutletPercentile float64
	OutletCoords     [][2]int

	Driver driver.Config

	LogEverySeconds int

	OutputPath string
}

// Options registers every configuration key as a flag on set with its
// default value, the same declarative table pattern the teacher builds in
// inmaputil/cmd.go's init(), condensed to this module's flatter parameter
// set.
func Options(set *pflag.FlagSet) {
	set.String("dem", "", "path to the DEM input, a whitespace/comma/semicolon-delimited elevation table")
	set.String("rainfall-schedule", "", "path to a TOML rainfall schedule file; empty means constant rainfall")
	set.Float64("constant-rainfall", 0, "constant rainfall intensity, m/s, used when rainfall-schedule is empty")

	set.String("outlet-mode", "percentile", `outlet selection mode: "percentile" or "manual"`)
	set.Float64("outlet-percentile", DefaultPercentile, "boundary-elevation percentile kept as outlets in percentile mode")

	set.Float64("manning", DefaultManning, "Manning's roughness coefficient")
	set.Float64("ks", DefaultKs, "infiltration rate, m/s")
	set.Float64("min-depth", DefaultMinDepth, "wet/dry threshold depth, m")
	set.Float64("dt", DefaultDt, "fixed simulation step size, s")
	set.Float64("total-time", DefaultTotalTime, "total simulated time, s")
	set.Float64("resolution", DefaultResolution, "grid cell resolution, m")

	set.Float64("drain-boost", drainage.DefaultParams().DrainBoost, "adaptive drain factor boost multiplier")
	set.Float64("drain-assumed-slope", drainage.DefaultParams().DrainAssumedSlope, "assumed hydraulic slope used by the outlet drainage law")
	set.Float64("drain-ramp-seconds", drainage.DefaultParams().DrainRampSeconds, "time horizon over which the drain factor ramps to full strength")

	set.Int("snapshot-every-n-steps", DefaultSnapshotEveryNSteps, "how many steps between OnStepCompleted notifications")
	set.Int("log-every-seconds", DefaultLogEverySeconds, "how many simulated seconds between state log lines")

	set.String("output", "", "path to write the results file (TOML)")
}

// Load builds a *viper.Viper layered as flags > config file > defaults,
// reading path if it is non-empty, following setConfig's pattern in
// inmaputil/cmd.go.
func Load(set *pflag.FlagSet, path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("OVERLANDFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(set); err != nil {
		return nil, fmt.Errorf("config: binding flags: %w", err)
	}
	if path != "" {
		v.SetConfigFile(os.ExpandEnv(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	return v, nil
}

// Parse extracts a RunConfig from a loaded viper configuration, using
// spf13/cast the way inmaputil/config.go coerces viper's interface{}
// values into typed scalars.
func Parse(v *viper.Viper) (*RunConfig, error) {
	manning, err := cast.ToFloat64E(v.Get("manning"))
	if err != nil {
		return nil, fmt.Errorf("config: manning: %w", err)
	}
	ks, err := cast.ToFloat64E(v.Get("ks"))
	if err != nil {
		return nil, fmt.Errorf("config: ks: %w", err)
	}
	minDepth, err := cast.ToFloat64E(v.Get("min-depth"))
	if err != nil {
		return nil, fmt.Errorf("config: min-depth: %w", err)
	}
	dt, err := cast.ToFloat64E(v.Get("dt"))
	if err != nil {
		return nil, fmt.Errorf("config: dt: %w", err)
	}
	totalTime, err := cast.ToFloat64E(v.Get("total-time"))
	if err != nil {
		return nil, fmt.Errorf("config: total-time: %w", err)
	}
	resolution, err := cast.ToFloat64E(v.Get("resolution"))
	if err != nil {
		return nil, fmt.Errorf("config: resolution: %w", err)
	}
	constantRainfall, err := cast.ToFloat64E(v.Get("constant-rainfall"))
	if err != nil {
		return nil, fmt.Errorf("config: constant-rainfall: %w", err)
	}
	outletPercentile, err := cast.ToFloat64E(v.Get("outlet-percentile"))
	if err != nil {
		return nil, fmt.Errorf("config: outlet-percentile: %w", err)
	}
	drainBoost, err := cast.ToFloat64E(v.Get("drain-boost"))
	if err != nil {
		return nil, fmt.Errorf("config: drain-boost: %w", err)
	}
	drainSlope, err := cast.ToFloat64E(v.Get("drain-assumed-slope"))
	if err != nil {
		return nil, fmt.Errorf("config: drain-assumed-slope: %w", err)
	}
	drainRamp, err := cast.ToFloat64E(v.Get("drain-ramp-seconds"))
	if err != nil {
		return nil, fmt.Errorf("config: drain-ramp-seconds: %w", err)
	}
	snapshotEvery, err := cast.ToIntE(v.Get("snapshot-every-n-steps"))
	if err != nil {
		return nil, fmt.Errorf("config: snapshot-every-n-steps: %w", err)
	}
	logEvery, err := cast.ToIntE(v.Get("log-every-seconds"))
	if err != nil {
		return nil, fmt.Errorf("config: log-every-seconds: %w", err)
	}

	rc := &RunConfig{
		DEMPath:          os.ExpandEnv(cast.ToString(v.Get("dem"))),
		RainfallSchedule: os.ExpandEnv(cast.ToString(v.Get("rainfall-schedule"))),

		OutletMode:       cast.ToString(v.Get("outlet-mode")),
		OutletPercentile: outletPercentile,

		Driver: driver.Config{
			Manning:          manning,
			Ks:               ks,
			MinDepth:         minDepth,
			TotalTime:        totalTime,
			Dt:               dt,
			Resolution:       resolution,
			ConstantRainfall: constantRainfall,
			Drain: drainage.Params{
				DrainBoost:        drainBoost,
				DrainAssumedSlope: drainSlope,
				DrainRampSeconds:  drainRamp,
			},
			SnapshotEveryNSteps: snapshotEvery,
			LogEverySeconds:     logEvery,
		},

		LogEverySeconds: logEvery,
		OutputPath:      os.ExpandEnv(cast.ToString(v.Get("output"))),
	}

	if rc.OutletMode == "manual" {
		coords, err := toCoordPairs(v.Get("outlet-coords"))
		if err != nil {
			return nil, fmt.Errorf("config: outlet-coords: %w", err)
		}
		rc.OutletCoords = coords
	}

	if rc.DEMPath == "" {
		return nil, fmt.Errorf("config: dem path is required")
	}
	if rc.OutletMode != "percentile" && rc.OutletMode != "manual" {
		return nil, fmt.Errorf("config: unknown outlet-mode %q", rc.OutletMode)
	}
	return rc, nil
}

// toCoordPairs converts the "outlet-coords" config value -- a TOML array of
// two-element [row, col] arrays -- into [][2]int, following the teacher's
// toIntSliceE pattern of coercing a generic []interface{} read from viper.
func toCoordPairs(raw interface{}) ([][2]int, error) {
	if raw == nil {
		return nil, nil
	}
	outer, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an array of [row, col] pairs, got %T", raw)
	}
	out := make([][2]int, 0, len(outer))
	for _, item := range outer {
		pair, err := cast.ToIntSliceE(item)
		if err != nil {
			return nil, fmt.Errorf("coordinate pair %v: %w", item, err)
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("coordinate pair %v: want 2 elements, got %d", item, len(pair))
		}
		out = append(out, [2]int{pair[0], pair[1]})
	}
	return out, nil
}
