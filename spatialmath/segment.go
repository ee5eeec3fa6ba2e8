package spatialmath

import (
	"github.com/golang/geo/r3"

	"go.viam.com/collide/utils"
)

// ProjectPointOnSegment returns the point of segment [a, b] closest to p and its parameter t in [0, 1]
// such that the point equals a + t*(b - a). A degenerate segment projects everything onto a.
func ProjectPointOnSegment(a, b, p r3.Vector) (r3.Vector, float64) {
	ab := b.Sub(a)
	denom := ab.Norm2()
	if denom < 1e-30 {
		return a, 0
	}
	t := utils.Clamp(p.Sub(a).Dot(ab)/denom, 0, 1)
	return a.Add(ab.Mul(t)), t
}

// ClosestPointSegmentPoint takes a line segment and a point, and returns the point on the segment closest to it.
func ClosestPointSegmentPoint(a, b, p r3.Vector) r3.Vector {
	pt, _ := ProjectPointOnSegment(a, b, p)
	return pt
}

// DistToLineSegment takes a segment and a point and returns their distance.
func DistToLineSegment(a, b, p r3.Vector) float64 {
	return ClosestPointSegmentPoint(a, b, p).Distance(p)
}

// ClosestPointsSegmentSegment returns the closest points c1 = p1 + s*(q1 - p1) and c2 = p2 + t*(q2 - p2)
// of the segments [p1, q1] and [p2, q2]. Parallel segments resolve to the lowest valid s.
// See Ericson, "Real-Time Collision Detection", 5.1.9.
func ClosestPointsSegmentSegment(p1, q1, p2, q2 r3.Vector) (c1, c2 r3.Vector, s, t float64) {
	const eps = 1e-14
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Norm2()
	e := d2.Norm2()
	f := d2.Dot(r)

	switch {
	case a <= eps && e <= eps:
		return p1, p2, 0, 0
	case a <= eps:
		s = 0
		t = utils.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= eps {
			t = 0
			s = utils.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > eps*a*e {
				s = utils.Clamp((b*f-c*e)/denom, 0, 1)
			} else {
				s = 0
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = utils.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = utils.Clamp((b-c)/a, 0, 1)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t)), s, t
}

// SegmentDistanceToSegment returns the minimum distance between the segments [ap1, ap2] and [bp1, bp2].
func SegmentDistanceToSegment(ap1, ap2, bp1, bp2 r3.Vector) float64 {
	c1, c2, _, _ := ClosestPointsSegmentSegment(ap1, ap2, bp1, bp2)
	return c1.Distance(c2)
}
