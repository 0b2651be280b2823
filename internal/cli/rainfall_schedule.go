package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/maseology/overlandflow/rainfall"
)

// rainfallScheduleFile is the on-disk shape of a --rainfall-schedule file:
// a flat list of (time, rate) points, canonicalized by rainfall.Source on
// load.
type rainfallScheduleFile struct {
	Points []rainfall.Point `toml:"points"`
}

func loadRainfallSchedule(path string) ([]rainfall.Point, error) {
	var f rainfallScheduleFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("overlandflow: reading rainfall schedule %s: %w", path, err)
	}
	return f.Points, nil
}
