package grid

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// minResolution and maxResolution bound the pixel size the raster path will
// accept as a replacement for the caller-supplied resolution (spec §4.1).
const (
	minResolution          = 0.001
	maxResolution          = 1000
	squareTolerance        = 1e-6
	rasterNoDataTolerance  = 1e-6
)

// FromTable builds a Grid from whitespace/comma/semicolon-delimited rows of
// elevation values, one row per line. nx is the number of non-blank lines,
// ny is the column count of the first row; every row must match it.
func FromTable(r io.Reader, resolution float64) (*Grid, error) {
	var rows [][]float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitRow(line)
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: parse error on row %d: %v", ErrLoadFailed, len(rows), err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read error: %v", ErrLoadFailed, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrLoadFailed)
	}
	nx := len(rows)
	ny := len(rows[0])
	if ny == 0 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidDimensions, nx, ny)
	}
	z := make([]float64, 0, nx*ny)
	for i, row := range rows {
		if len(row) != ny {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrLoadFailed, i, len(row), ny)
		}
		z = append(z, row...)
	}
	return New(nx, ny, resolution, z)
}

func splitRow(line string) []string {
	for _, sep := range []string{",", ";"} {
		line = strings.ReplaceAll(line, sep, " ")
	}
	return strings.Fields(line)
}

// RowSource supplies elevation rows one at a time, the shape an external
// raster reader exposes (see internal/raster.Reader). It is defined here,
// not imported from internal/raster, so that grid has no dependency on the
// raster-library adapter.
type RowSource func(i int) ([]float64, error)

// FromRaster builds a Grid from a raster-shaped source: nx/ny pixel counts,
// a geotransform pixel size, and an optional no-data value. Pixels equal to
// noData (within tolerance) are normalized to the internal sentinel. The
// pixel width is adopted as the resolution when it is well-formed (square
// within tolerance, both axes positive, within [minResolution,
// maxResolution]); otherwise fallbackResolution is used (spec §4.1).
func FromRaster(nx, ny int, pixelWidth, pixelHeight float64, noData float64, hasNoData bool, rows RowSource, fallbackResolution float64) (*Grid, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidDimensions, nx, ny)
	}
	resolution := resolveResolution(pixelWidth, pixelHeight, fallbackResolution)
	z := make([]float64, nx*ny)
	for i := 0; i < nx; i++ {
		row, err := rows(i)
		if err != nil {
			return nil, fmt.Errorf("%w: raster row %d: %v", ErrLoadFailed, i, err)
		}
		if len(row) != ny {
			return nil, fmt.Errorf("%w: raster row %d has %d values, want %d", ErrLoadFailed, i, len(row), ny)
		}
		for j, v := range row {
			k := i*ny + j
			if hasNoData && math.Abs(v-noData) <= rasterNoDataTolerance {
				z[k] = NoData
			} else {
				z[k] = v
			}
		}
	}
	return New(nx, ny, resolution, z)
}

func resolveResolution(pixelWidth, pixelHeight, fallback float64) float64 {
	if pixelWidth <= 0 || pixelHeight <= 0 {
		return fallback
	}
	rel := math.Abs(pixelWidth-pixelHeight) / math.Max(pixelWidth, pixelHeight)
	if rel > squareTolerance {
		return fallback
	}
	if pixelWidth < minResolution || pixelWidth > maxResolution {
		return fallback
	}
	return pixelWidth
}
