//go:build deterministic

package utils

import "math"

// DeterministicMath reports whether the fixed software elementary functions are compiled in.
const DeterministicMath = true

// Cody-Waite split of Pi/4 and the minimax polynomials below are the Cephes
// tables; every operation is a plain IEEE-754 add or multiply, so results do
// not depend on the platform's fused or vendor-tuned instructions.
const (
	pi4A = 7.85398125648498535156e-1
	pi4B = 3.77489470793079817668e-8
	pi4C = 2.69515142907905952645e-15

	reduceThreshold = 1 << 29
)

var sinCoefficients = [6]float64{
	1.58962301576546568060e-10,
	-2.50507477628578072866e-8,
	2.75573136213857245213e-6,
	-1.98412698295895385996e-4,
	8.33333333332211858878e-3,
	-1.66666666666666307295e-1,
}

var cosCoefficients = [6]float64{
	-1.13585365213876817300e-11,
	2.08757008419747316778e-9,
	-2.75573141792967388112e-7,
	2.48015872888517045348e-5,
	-1.38888888888730564116e-3,
	4.16666666666665929218e-2,
}

func sinPoly(z float64) float64 {
	zz := z * z
	p := sinCoefficients[0]
	for _, c := range sinCoefficients[1:] {
		p = p*zz + c
	}
	return z + z*zz*p
}

func cosPoly(z float64) float64 {
	zz := z * z
	p := cosCoefficients[0]
	for _, c := range cosCoefficients[1:] {
		p = p*zz + c
	}
	return 1.0 - 0.5*zz + zz*zz*p
}

// reduce maps a non-negative x to an octant j and a remainder in [-Pi/4, Pi/4].
func reduce(x float64) (uint64, float64) {
	if x >= reduceThreshold {
		x = math.Mod(x, 2*math.Pi)
	}
	j := uint64(x * (4 / math.Pi))
	y := float64(j)
	if j&1 == 1 {
		j++
		y++
	}
	j &= 7
	return j, ((x - y*pi4A) - y*pi4B) - y*pi4C
}

// Sin returns the sine of x.
func Sin(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return math.NaN()
	}
	if x == 0 {
		return x
	}
	sign := false
	if x < 0 {
		x = -x
		sign = true
	}
	j, z := reduce(x)
	if j > 3 {
		sign = !sign
		j -= 4
	}
	var y float64
	if j == 1 || j == 2 {
		y = cosPoly(z)
	} else {
		y = sinPoly(z)
	}
	if sign {
		y = -y
	}
	return y
}

// Cos returns the cosine of x.
func Cos(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return math.NaN()
	}
	sign := false
	x = math.Abs(x)
	j, z := reduce(x)
	if j > 3 {
		j -= 4
		sign = !sign
	}
	if j > 1 {
		sign = !sign
	}
	var y float64
	if j == 1 || j == 2 {
		y = sinPoly(z)
	} else {
		y = cosPoly(z)
	}
	if sign {
		y = -y
	}
	return y
}

// Sincos returns Sin(x), Cos(x).
func Sincos(x float64) (float64, float64) {
	return Sin(x), Cos(x)
}

func xatan(x float64) float64 {
	const (
		p0 = -8.750608600031904122785e-01
		p1 = -1.615753718733365076637e+01
		p2 = -7.500855792314704667340e+01
		p3 = -1.228866684490136173410e+02
		p4 = -6.485021904942025371773e+01
		q0 = +2.485846490142306297962e+01
		q1 = +1.650270098316988542046e+02
		q2 = +4.328810604912902668951e+02
		q3 = +4.853903996359136964868e+02
		q4 = +1.945506571482613964425e+02
	)
	z := x * x
	z = z * ((((p0*z+p1)*z+p2)*z+p3)*z + p4) / (((((z+q0)*z+q1)*z+q2)*z+q3)*z + q4)
	return x*z + x
}

func satan(x float64) float64 {
	const (
		moreBits = 6.123233995736765886130e-17
		tan3Pi8  = 2.41421356237309504880
	)
	if x <= 0.66 {
		return xatan(x)
	}
	if x > tan3Pi8 {
		return math.Pi/2 - xatan(1/x) + moreBits
	}
	return math.Pi/4 + xatan((x-1)/(x+1)) + 0.5*moreBits
}

// Atan returns the arctangent of x.
func Atan(x float64) float64 {
	if x == 0 || math.IsNaN(x) {
		return x
	}
	if x > 0 {
		return satan(x)
	}
	return -satan(-x)
}

// Atan2 returns the arc tangent of y/x, using the signs of the two to determine the quadrant.
func Atan2(y, x float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case x == 0:
		switch {
		case y > 0:
			return math.Pi / 2
		case y < 0:
			return -math.Pi / 2
		case math.Signbit(x):
			return math.Copysign(math.Pi, y)
		}
		return y
	case math.IsInf(x, 0) && math.IsInf(y, 0):
		if x > 0 {
			return math.Copysign(math.Pi/4, y)
		}
		return math.Copysign(3*math.Pi/4, y)
	}
	q := Atan(y / x)
	if x < 0 {
		if y >= 0 && !math.Signbit(y) {
			return q + math.Pi
		}
		return q - math.Pi
	}
	return q
}

// Asin returns the arcsine of x.
func Asin(x float64) float64 {
	if x > 1 || x < -1 || math.IsNaN(x) {
		return math.NaN()
	}
	return Atan2(x, math.Sqrt((1-x)*(1+x)))
}

// Acos returns the arccosine of x.
func Acos(x float64) float64 {
	if x > 1 || x < -1 || math.IsNaN(x) {
		return math.NaN()
	}
	return Atan2(math.Sqrt((1-x)*(1+x)), x)
}

// Sqrt returns the square root of x. IEEE-754 requires a correctly rounded
// result, so the hardware instruction is already reproducible.
func Sqrt(x float64) float64 { return math.Sqrt(x) }
