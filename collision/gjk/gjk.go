// Package gjk implements the Gilbert-Johnson-Keerthi distance algorithm and the GJK ray cast on
// support-mapped convex shapes. Every query is expressed in the local frame of the first shape.
package gjk

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// SupportMap is a convex set described by its support function: the point of the set farthest
// along dir, in the local frame of the set.
type SupportMap interface {
	LocalSupportPoint(dir r3.Vector) r3.Vector
}

// Config holds the iteration cap and the relative tolerance of GJK.
type Config struct {
	MaxIterations int     `json:"max_iterations"`
	Epsilon       float64 `json:"epsilon"`
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{MaxIterations: 64, Epsilon: 1e-10}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var err error
	if c.MaxIterations <= 0 {
		err = multierr.Append(err, errors.Errorf("gjk max_iterations must be positive, got %d", c.MaxIterations))
	}
	if !(c.Epsilon > 0 && c.Epsilon < 1) {
		err = multierr.Append(err, errors.Errorf("gjk epsilon must be in (0, 1), got %v", c.Epsilon))
	}
	return err
}

// Status classifies a GJK result.
type Status int

const (
	// Intersection means the shapes overlap or touch.
	Intersection Status = iota
	// Separated means the shapes are separated and the result holds the exact closest points.
	Separated
	// Proximity means the shapes are farther apart than the requested maximum distance. Distance holds
	// a lower bound and the points are not meaningful.
	Proximity
	// Indeterminate means the iteration cap was reached; the result holds the best estimate found.
	Indeterminate
)

func (s Status) String() string {
	switch s {
	case Intersection:
		return "intersection"
	case Separated:
		return "separated"
	case Proximity:
		return "proximity"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Result is the outcome of a GJK query in the frame of the first shape.
type Result struct {
	Status Status
	// Point1 and Point2 are the witness points on the first and second shape.
	Point1 r3.Vector
	Point2 r3.Vector
	// Normal is the unit separation direction pointing from the first shape toward the second.
	Normal     r3.Vector
	Distance   float64
	Iterations int
}

// InitialSimplex seeds a simplex with the support point along the translation between the shapes.
func InitialSimplex(pos12 spatialmath.Pose, g1, g2 SupportMap) *Simplex {
	dir := pos12.Point()
	if dir.Norm2() < 1e-24 {
		dir = r3.Vector{X: 1}
	}
	s := &Simplex{}
	s.Reset(SupportPoint(pos12, g1, g2, dir))
	return s
}

// ClosestPoints runs GJK between g1 and pos12*g2. When exact is false the iteration stops as soon as the
// distance is proven to exceed maxDist; otherwise it converges to the exact distance and reports
// Proximity only afterwards. The simplex is updated in place so that callers can warm start the
// next query or hand the final simplex to EPA.
func ClosestPoints(
	pos12 spatialmath.Pose,
	g1, g2 SupportMap,
	maxDist float64,
	exact bool,
	simplex *Simplex,
	cfg Config,
) Result {
	if simplex == nil || simplex.Len() == 0 {
		simplex = InitialSimplex(pos12, g1, g2)
	}
	v := simplex.ProjectOrigin()

	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		vv := v.Norm2()
		if simplex.EnclosesOrigin() || vv <= cfg.Epsilon*math.Max(simplex.MaxSquaredNorm(), 1e-30) {
			return intersection(simplex, iter)
		}
		vNorm := utils.Sqrt(vv)
		dir := v.Mul(-1 / vNorm)
		w := SupportPoint(pos12, g1, g2, dir)

		// every point of the CSO lies beyond the plane through w, so this bounds the distance from below
		if minBound := v.Dot(w.Point) / vNorm; !exact && minBound > maxDist {
			return Result{Status: Proximity, Distance: minBound, Normal: dir.Mul(-1), Iterations: iter}
		}
		if vv-v.Dot(w.Point) <= cfg.Epsilon*vv {
			return separated(simplex, v, maxDist, iter)
		}
		prev := *simplex
		if !simplex.Add(w) {
			return separated(simplex, v, maxDist, iter)
		}
		prevV := v
		v = simplex.ProjectOrigin()
		if !simplex.EnclosesOrigin() && v.Norm2() >= vv {
			// no progress: rounding noise, keep the previous estimate
			*simplex = prev
			return separated(simplex, prevV, maxDist, iter)
		}
	}

	res := separated(simplex, v, maxDist, cfg.MaxIterations)
	res.Status = Indeterminate
	return res
}

func intersection(simplex *Simplex, iter int) Result {
	p1, p2 := simplex.ClosestPoints()
	return Result{Status: Intersection, Point1: p1, Point2: p2, Iterations: iter}
}

func separated(simplex *Simplex, v r3.Vector, maxDist float64, iter int) Result {
	p1, p2 := simplex.ClosestPoints()
	dist := v.Norm()
	res := Result{Status: Separated, Point1: p1, Point2: p2, Distance: dist, Iterations: iter}
	if dist > 0 {
		res.Normal = v.Mul(-1 / dist)
	}
	if dist > maxDist {
		res.Status = Proximity
	}
	return res
}

// Distance returns the distance between g1 and pos12*g2, zero when they intersect.
func Distance(pos12 spatialmath.Pose, g1, g2 SupportMap, cfg Config) (float64, Status) {
	res := ClosestPoints(pos12, g1, g2, math.Inf(1), true, nil, cfg)
	if res.Status == Intersection {
		return 0, res.Status
	}
	return res.Distance, res.Status
}

// Intersects reports whether g1 and pos12*g2 overlap. An indeterminate run counts as an intersection.
func Intersects(pos12 spatialmath.Pose, g1, g2 SupportMap, cfg Config) bool {
	res := ClosestPoints(pos12, g1, g2, 0, false, nil, cfg)
	return res.Status == Intersection || res.Status == Indeterminate
}
