package raster

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

type fakeReader struct {
	nx, ny      int
	pw, ph      float64
	noData      float64
	hasNoData   bool
	rows        [][]float64
	failUntil   int
	readAttempt map[int]int
}

func (f *fakeReader) Dimensions() (int, int, error)              { return f.nx, f.ny, nil }
func (f *fakeReader) GeoTransform() (float64, float64, error)    { return f.pw, f.ph, nil }
func (f *fakeReader) NoDataValue() (float64, bool)                { return f.noData, f.hasNoData }
func (f *fakeReader) ReadRow(i int) ([]float64, error) {
	if f.readAttempt == nil {
		f.readAttempt = make(map[int]int)
	}
	f.readAttempt[i]++
	if f.readAttempt[i] <= f.failUntil {
		return nil, errors.New("transient read failure")
	}
	return f.rows[i], nil
}

func TestLoadRasterSucceeds(t *testing.T) {
	r := &fakeReader{
		nx: 2, ny: 2, pw: 1, ph: 1, noData: -9999, hasNoData: true,
		rows: [][]float64{{1, 2}, {3, -9999}},
	}
	g, err := LoadRaster(r, 5)
	if err != nil {
		t.Fatal(err)
	}
	if g.NX != 2 || g.NY != 2 {
		t.Fatalf("dims = %d x %d", g.NX, g.NY)
	}
	if !g.IsNoData(g.Idx(1, 1)) {
		t.Fatal("expected normalized no-data cell")
	}
}

func TestLoadRasterRetriesTransientFailures(t *testing.T) {
	r := &fakeReader{
		nx: 1, ny: 2, pw: 1, ph: 1, hasNoData: false,
		rows:      [][]float64{{1, 2}},
		failUntil: 2,
	}
	g, err := LoadRaster(r, 1)
	if err != nil {
		t.Fatalf("expected eventual success after retries, got %v", err)
	}
	if g.Z(g.Idx(0, 1)) != 2 {
		t.Fatalf("z[0,1] = %v, want 2", g.Z(g.Idx(0, 1)))
	}
}

func TestLoadTableFromInMemoryFilesystem(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "dem.csv", []byte("1,2\n3,4\n"), 0644)
	g, err := LoadTable(fs, "dem.csv", 2)
	if err != nil {
		t.Fatal(err)
	}
	if g.NX != 2 || g.NY != 2 {
		t.Fatalf("dims = %d x %d", g.NX, g.NY)
	}
	if g.Resolution != 2 {
		t.Fatalf("resolution = %v, want 2", g.Resolution)
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := LoadTable(fs, "missing.csv", 1); err == nil {
		t.Fatal("expected error for missing file")
	}
}
