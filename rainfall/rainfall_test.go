package rainfall

import "testing"

func TestConstantModeIgnoresSchedule(t *testing.T) {
	s := NewConstant(1e-5)
	s.SetSchedule([]Point{{Time: 0, Rate: 9}, {Time: 10, Rate: 99}})
	if got := s.RateAt(10); got != 1e-5 {
		t.Fatalf("RateAt = %v, want constant rate 1e-5", got)
	}
}

func TestVaryingWithEmptyScheduleFallsBackToConstant(t *testing.T) {
	s := NewConstant(2e-5)
	s.EnableVarying(true)
	if got := s.RateAt(5); got != 2e-5 {
		t.Fatalf("RateAt = %v, want fallback constant 2e-5", got)
	}
}

func TestScheduleCanonicalizationPrependsZero(t *testing.T) {
	s := NewConstant(0)
	s.SetSchedule([]Point{{Time: 60, Rate: 1e-5}, {Time: 120, Rate: 0}})
	sched := s.Schedule()
	if sched[0].Time != 0 || sched[0].Rate != 1e-5 {
		t.Fatalf("sched[0] = %+v, want synthetic (0, 1e-5)", sched[0])
	}
	for i := 1; i < len(sched); i++ {
		if sched[i].Time < sched[i-1].Time {
			t.Fatal("schedule not sorted ascending")
		}
	}
}

func TestS6ScheduleQueries(t *testing.T) {
	s := NewConstant(0)
	s.EnableVarying(true)
	s.SetSchedule([]Point{{Time: 0, Rate: 0}, {Time: 60, Rate: 1e-5}, {Time: 120, Rate: 0}})
	cases := []struct {
		t    float64
		want float64
	}{
		{0, 0}, {30, 0}, {60, 1e-5}, {119, 1e-5}, {120, 0}, {200, 0},
	}
	for _, c := range cases {
		if got := s.RateAt(c.t); got != c.want {
			t.Errorf("RateAt(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestRateAtBeforeFirstEntryUsesFirst(t *testing.T) {
	s := NewConstant(0)
	s.EnableVarying(true)
	s.SetSchedule([]Point{{Time: 0, Rate: 3}})
	if got := s.RateAt(-5); got != 3 {
		t.Fatalf("RateAt(-5) = %v, want 3", got)
	}
}
