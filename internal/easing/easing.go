// Package easing provides the time-based curves used to animate gamma steps.
//
// All functions take Penner-style arguments: t is the elapsed time, b the
// start value, c the total change and d the duration. Elapsed time is clamped
// to [0, d] and a non-positive duration yields the end value.
package easing

import "math"

// Func maps elapsed time to an interpolated value.
type Func func(t, b, c, d float64) float64

// OutExpo decelerates exponentially towards b+c.
func OutExpo(t, b, c, d float64) float64 {
	if d <= 0 {
		return b + c
	}
	t = clampTime(t, d)
	if t == d {
		return b + c
	}
	return c*(-math.Pow(2, -10*t/d)+1) + b
}

// InOutQuad accelerates through the first half and decelerates through the second.
func InOutQuad(t, b, c, d float64) float64 {
	if d <= 0 {
		return b + c
	}
	t = clampTime(t, d)
	t /= d / 2
	if t < 1 {
		return c/2*t*t + b
	}
	t--
	return -c/2*(t*(t-2)-1) + b
}

func clampTime(t, d float64) float64 {
	if t < 0 {
		return 0
	}
	if t > d {
		return d
	}
	return t
}
