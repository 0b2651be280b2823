// Package testfloat is the one small shared helper this module allows
// itself instead of reimplementing the teacher's local epsilon-comparison
// pattern in every _test.go file.
package testfloat

import "math"

// Equal reports whether a and b are within eps of each other.
func Equal(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// InEpsilon reports whether a and b agree to within relative tolerance eps
// of b, falling back to an absolute comparison near zero.
func InEpsilon(a, b, eps float64) bool {
	if b == 0 {
		return math.Abs(a) <= eps
	}
	return math.Abs((a-b)/b) <= eps
}
