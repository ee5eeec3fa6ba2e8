//go:build !deterministic

package utils

import "math"

// DeterministicMath reports whether the fixed software elementary functions are compiled in.
const DeterministicMath = false

// Sin returns the sine of x.
func Sin(x float64) float64 { return math.Sin(x) }

// Cos returns the cosine of x.
func Cos(x float64) float64 { return math.Cos(x) }

// Sincos returns Sin(x), Cos(x).
func Sincos(x float64) (float64, float64) { return math.Sincos(x) }

// Atan returns the arctangent of x.
func Atan(x float64) float64 { return math.Atan(x) }

// Atan2 returns the arc tangent of y/x, using the signs of the two to determine the quadrant.
func Atan2(y, x float64) float64 { return math.Atan2(y, x) }

// Asin returns the arcsine of x.
func Asin(x float64) float64 { return math.Asin(x) }

// Acos returns the arccosine of x.
func Acos(x float64) float64 { return math.Acos(x) }

// Sqrt returns the square root of x.
func Sqrt(x float64) float64 { return math.Sqrt(x) }
