package driver

import (
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/maseology/overlandflow/outlet"
)

// TestS3MirroredOutletsDrainSymmetrically exercises the S3-style
// translational-symmetry scenario: two outlets placed at mirrored positions
// on an otherwise flat, uniformly-rained grid must accumulate equal volume.
func TestS3MirroredOutletsDrainSymmetrically(t *testing.T) {
	g := flatGrid(t, 9, 9)
	left := g.Idx(4, 1)
	right := g.Idx(4, 7)
	set := outlet.Manual(g, [][2]int{{4, 1}, {4, 7}}, outlet.DefaultPercentile)

	cfg := baseConfig()
	cfg.ConstantRainfall = 0.001
	cfg.TotalTime = 30
	d := New(g, set, cfg)
	if err := d.Initialize(); err != nil {
		t.Fatal(err)
	}
	for !d.IsFinished() {
		if err := d.Step(); err != nil {
			t.Fatal(err)
		}
	}

	vols := d.PerOutletVolumes()
	a, b := vols[left], vols[right]
	if !floats.EqualWithinAbs(a, b, 1e-9) {
		t.Fatalf("mirrored outlets drained asymmetric volumes: %v vs %v", a, b)
	}
}
