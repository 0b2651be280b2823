// Package raster adapts the external raster-reading and tabular-file
// collaborators (spec §6 "Persisted formats") into grid.Grid construction,
// behind the narrow interface the core actually consumes.
package raster

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/spf13/afero"

	"github.com/maseology/overlandflow/grid"
)

// Reader is the "external geospatial library" collaborator from spec §6,
// narrowed to the four operations grid construction needs. No
// implementation is part of this module (per spec §1); the overlandflow
// command loads DEMs through LoadTable only.
type Reader interface {
	Dimensions() (nx, ny int, err error)
	GeoTransform() (pixelWidth, pixelHeight float64, err error)
	NoDataValue() (float64, bool)
	ReadRow(i int) ([]float64, error)
}

// ErrRasterIO wraps a transient-exhausted or fatal error from a Reader.
var ErrRasterIO = fmt.Errorf("raster: read failed")

// maxRetryElapsed bounds how long LoadRaster will retry a flaky ReadRow
// before surfacing spec §7's RasterIOError.
const maxRetryElapsed = 2 * time.Second

// LoadRaster builds a grid.Grid from r, retrying individual row reads with
// exponential backoff before surfacing a fatal RasterIOError -- the same
// transient-retry discipline the teacher applies to its cloud/bucket reads
// in cloud.go, generalized here to a flaky raster backend.
func LoadRaster(r Reader, fallbackResolution float64) (*grid.Grid, error) {
	nx, ny, err := r.Dimensions()
	if err != nil {
		return nil, fmt.Errorf("%w: dimensions: %v", ErrRasterIO, err)
	}
	pw, ph, err := r.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("%w: geotransform: %v", ErrRasterIO, err)
	}
	noData, hasNoData := r.NoDataValue()

	rows := func(i int) ([]float64, error) {
		return readRowWithRetry(r, i)
	}
	g, err := grid.FromRaster(nx, ny, pw, ph, noData, hasNoData, rows, fallbackResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterIO, err)
	}
	return g, nil
}

func readRowWithRetry(r Reader, i int) ([]float64, error) {
	var row []float64
	op := func() error {
		var err error
		row, err = r.ReadRow(i)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxRetryElapsed
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return row, nil
}

// LoadTable builds a grid.Grid from the whitespace/comma/semicolon-delimited
// table at path, read through fs so tests can exercise this path against
// an in-memory filesystem without touching disk.
func LoadTable(fs afero.Fs, path string, resolution float64) (*grid.Grid, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("raster: open %s: %w", path, err)
	}
	defer f.Close()
	g, err := grid.FromTable(f, resolution)
	if err != nil {
		return nil, fmt.Errorf("raster: load table %s: %w", path, err)
	}
	return g, nil
}
