// Package rainfall provides the instantaneous rainfall intensity forcing
// consumed by the solver each step: either a constant rate or a
// piecewise-constant, right-continuous schedule.
package rainfall

import "sort"

// Point is one (time, rate) pair in a rainfall schedule. Rates are in
// meters/second.
type Point struct {
	Time float64
	Rate float64
}

// Source answers RateAt(t) per spec §4.3: constant when time-varying mode
// is disabled, the constant rate as a fallback when enabled with an empty
// schedule, and the latest scheduled rate with time <= t otherwise.
type Source struct {
	constant float64
	varying  bool
	schedule []Point // canonicalized: sorted ascending, starts at t=0
}

// NewConstant returns a Source fixed at rate, time-varying mode disabled.
func NewConstant(rate float64) *Source {
	return &Source{constant: rate}
}

// SetConstant updates the fallback/constant rate.
func (s *Source) SetConstant(rate float64) { s.constant = rate }

// EnableVarying turns time-varying schedule lookup on or off.
func (s *Source) EnableVarying(enabled bool) { s.varying = enabled }

// SetSchedule canonicalizes and stores points: sorted ascending by time, and
// if the earliest entry's time is > 0, a synthetic (0, first.Rate) entry is
// prepended (spec §4.3/§8 property 6).
func (s *Source) SetSchedule(points []Point) {
	sched := make([]Point, len(points))
	copy(sched, points)
	sort.Slice(sched, func(i, j int) bool { return sched[i].Time < sched[j].Time })
	if len(sched) > 0 && sched[0].Time > 0 {
		sched = append([]Point{{Time: 0, Rate: sched[0].Rate}}, sched...)
	}
	s.schedule = sched
}

// Schedule returns the canonicalized schedule.
func (s *Source) Schedule() []Point { return s.schedule }

// RateAt returns the rainfall intensity applicable at time t.
func (s *Source) RateAt(t float64) float64 {
	if !s.varying || len(s.schedule) == 0 {
		return s.constant
	}
	// Latest entry with Time <= t; if t precedes every entry, use the first.
	idx := sort.Search(len(s.schedule), func(i int) bool { return s.schedule[i].Time > t })
	if idx == 0 {
		return s.schedule[0].Rate
	}
	return s.schedule[idx-1].Rate
}
