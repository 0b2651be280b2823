package grid

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRejectsBadDimensions(t *testing.T) {
	if _, err := New(0, 5, 1, nil); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected ErrInvalidDimensions for zero nx, got %v", err)
	}
	if _, err := New(5, 5, 0, make([]float64, 25)); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected ErrInvalidDimensions for non-positive resolution, got %v", err)
	}
	if _, err := New(5, 5, 1, make([]float64, 10)); !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed for mismatched elevation length, got %v", err)
	}
}

func TestIdxRoundTrip(t *testing.T) {
	g, err := New(3, 4, 1, make([]float64, 12))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			k := g.Idx(i, j)
			ri, rj := g.RowCol(k)
			if ri != i || rj != j {
				t.Fatalf("RowCol(Idx(%d,%d)) = (%d,%d)", i, j, ri, rj)
			}
		}
	}
}

func TestNeighborTableEdgesAndNoData(t *testing.T) {
	z := []float64{
		0, 0, 0,
		0, NoData, 0,
		0, 0, 0,
	}
	g, err := New(3, 3, 1, z)
	if err != nil {
		t.Fatal(err)
	}
	// Corner (0,0) has no N or W neighbor.
	k := g.Idx(0, 0)
	nb := g.Neighbors(k)
	if nb[North] != -1 || nb[West] != -1 {
		t.Fatalf("corner neighbors = %v, want N and W == -1", nb)
	}
	if nb[East] != g.Idx(0, 1) || nb[South] != g.Idx(1, 0) {
		t.Fatalf("corner neighbors = %v", nb)
	}
	// Every neighbor of the no-data center must report -1 toward it.
	center := g.Idx(1, 1)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == 1 && j == 1 {
				continue
			}
			ck := g.Idx(i, j)
			for d := 0; d < 4; d++ {
				if g.Neighbor(ck, d) == center {
					t.Fatalf("cell (%d,%d) points at no-data center", i, j)
				}
			}
		}
	}
}

func TestOppositeDirection(t *testing.T) {
	cases := map[int]int{North: South, East: West, South: North, West: East}
	for d, want := range cases {
		if got := Opposite(d); got != want {
			t.Errorf("Opposite(%d) = %d, want %d", d, got, want)
		}
	}
}

func TestNoDataCellsStartAtZeroDepth(t *testing.T) {
	z := []float64{0, NoData, 0, 0}
	g, err := New(2, 2, 1, z)
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 4; k++ {
		if g.H(k) != 0 {
			t.Fatalf("h[%d] = %v, want 0", k, g.H(k))
		}
	}
}

func TestSetHClampsNonNegative(t *testing.T) {
	g, _ := New(1, 1, 1, []float64{0})
	g.SetH(0, -5)
	if g.H(0) != 0 {
		t.Fatalf("SetH(-5) = %v, want clamped to 0", g.H(0))
	}
	g.AddH(0, 3)
	g.AddH(0, -10)
	if g.H(0) != 0 {
		t.Fatalf("AddH underflow = %v, want clamped to 0", g.H(0))
	}
}

func TestFromTableParsesMixedDelimiters(t *testing.T) {
	in := "1,2,3\n4;5;6\n7 8 9\n"
	g, err := FromTable(strings.NewReader(in), 2)
	if err != nil {
		t.Fatal(err)
	}
	if g.NX != 3 || g.NY != 3 {
		t.Fatalf("dims = %d x %d", g.NX, g.NY)
	}
	if g.Z(g.Idx(1, 1)) != 5 {
		t.Fatalf("z[1,1] = %v, want 5", g.Z(g.Idx(1, 1)))
	}
}

func TestFromTableRejectsRaggedRows(t *testing.T) {
	in := "1 2 3\n4 5\n"
	if _, err := FromTable(strings.NewReader(in), 1); !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed for ragged rows, got %v", err)
	}
}

func TestFromRasterAdoptsSquarePixel(t *testing.T) {
	rows := func(i int) ([]float64, error) {
		return []float64{float64(i), float64(i) + 1}, nil
	}
	g, err := FromRaster(2, 2, 0.5, 0.5, -9999, true, rows, 10)
	if err != nil {
		t.Fatal(err)
	}
	if g.Resolution != 0.5 {
		t.Fatalf("resolution = %v, want adopted pixel size 0.5", g.Resolution)
	}
}

func TestFromRasterFallsBackOnNonSquarePixel(t *testing.T) {
	rows := func(i int) ([]float64, error) { return []float64{0, 0}, nil }
	g, err := FromRaster(2, 2, 1, 2, -9999, true, rows, 7)
	if err != nil {
		t.Fatal(err)
	}
	if g.Resolution != 7 {
		t.Fatalf("resolution = %v, want fallback 7", g.Resolution)
	}
}

func TestFromRasterNormalizesNoData(t *testing.T) {
	rows := func(i int) ([]float64, error) { return []float64{-9999, 1}, nil }
	g, err := FromRaster(2, 2, 1, 1, -9999, true, rows, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !g.IsNoData(g.Idx(0, 0)) {
		t.Fatal("expected raster no-data sentinel to be normalized")
	}
}
