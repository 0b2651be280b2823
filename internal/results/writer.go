// Package results persists a finished run's parameters, drainage time
// series, and per-outlet volumes to the TOML-structured output file
// described in spec.md §6, using the same BurntSushi/toml encoder the
// teacher's viper configuration stack is backed by.
package results

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/maseology/overlandflow/drainage"
	"github.com/maseology/overlandflow/driver"
)

// Parameters mirrors the scalar run configuration, flattened for TOML
// encoding (driver.Config embeds a nested drainage.Params, which toml
// handles as a nested table).
type Parameters struct {
	Manning          float64         `toml:"manning"`
	Ks               float64         `toml:"ks"`
	MinDepth         float64         `toml:"min_depth"`
	TotalTime        float64         `toml:"total_time"`
	Dt               float64         `toml:"dt"`
	Resolution       float64         `toml:"resolution"`
	ConstantRainfall float64         `toml:"constant_rainfall"`
	Drain            drainage.Params `toml:"drain"`
}

// OutletVolume is one row of the per-outlet section, sorted by descending
// volume to match the persisted format spec.md §6 describes.
type OutletVolume struct {
	CellIndex int     `toml:"cell_index"`
	Volume    float64 `toml:"volume"`
}

// Document is the full persisted results file.
type Document struct {
	Parameters  Parameters            `toml:"parameters"`
	TimeSeries  []drainage.TimeVolume `toml:"time_series"`
	PerOutlet   []OutletVolume        `toml:"per_outlet"`
	FinalTime   float64               `toml:"final_time"`
	GlobalTotal float64               `toml:"global_total"`
}

// FromDriver assembles a Document from a finished (or in-progress) Driver.
func FromDriver(d *driver.Driver, cfg driver.Config) Document {
	ranked := make([]OutletVolume, 0, len(d.PerOutletVolumes()))
	for k, v := range d.PerOutletVolumes() {
		ranked = append(ranked, OutletVolume{CellIndex: k, Volume: v})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Volume > ranked[j].Volume })

	var total float64
	series := d.TimeSeries()
	if len(series) > 0 {
		total = series[len(series)-1].Volume
	}

	return Document{
		Parameters: Parameters{
			Manning:          cfg.Manning,
			Ks:               cfg.Ks,
			MinDepth:         cfg.MinDepth,
			TotalTime:        cfg.TotalTime,
			Dt:               cfg.Dt,
			Resolution:       cfg.Resolution,
			ConstantRainfall: cfg.ConstantRainfall,
			Drain:            cfg.Drain,
		},
		TimeSeries:  series,
		PerOutlet:   ranked,
		FinalTime:   d.Time(),
		GlobalTotal: total,
	}
}

// WriteFile encodes doc as TOML and writes it to path.
func WriteFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("results: create %s: %w", path, err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("results: encode %s: %w", path, err)
	}
	return nil
}
