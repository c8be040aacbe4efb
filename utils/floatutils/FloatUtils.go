// Package floatutils provides utilities for working with floats
package floatutils

import (
	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// ClipInterval is a wrapper to use Clip with an r1.Interval instead of
// a separate max and min value
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// Linspace returns n evenly spaced values covering [start, end]
// inclusive. For n == 1 the single value is start.
func Linspace(start, end float64, n int) []float64 {
	if n < 1 {
		panic("linspace: need at least one point")
	}
	out := make([]float64, n)
	out[0] = start
	if n == 1 {
		return out
	}
	step := (end - start) / float64(n-1)
	for i := 1; i < n-1; i++ {
		out[i] = start + float64(i)*step
	}
	out[n-1] = end
	return out
}
