package gjk

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
)

// CastLocalRay intersects a ray with a convex support map (van den Bergen, "Ray Casting against General
// Convex Objects with Application to Continuous Collision Detection"). It returns the time of impact, the
// outward normal at the hit point and whether the ray hits before maxTOI. A ray starting inside a solid
// shape hits at time zero with a zero normal; for a hollow shape it reports the exit point.
func CastLocalRay(g SupportMap, ray spatialmath.Ray, maxTOI float64, solid bool, cfg Config) (float64, r3.Vector, bool) {
	if !ray.IsFinite() {
		return 0, r3.Vector{}, false
	}
	toi, normal, ok := castRay(g, ray, maxTOI, cfg)
	if !ok || solid || toi > 0 {
		return toi, normal, ok
	}

	// origin inside a hollow shape: cast back from a point beyond the far side
	dirLen := ray.Dir.Norm()
	if dirLen == 0 {
		return 0, r3.Vector{}, false
	}
	dn := ray.Dir.Mul(1 / dirLen)
	extent := g.LocalSupportPoint(dn).Sub(ray.Origin).Dot(dn) + 1
	back := spatialmath.NewRay(ray.Origin.Add(dn.Mul(extent)), dn.Mul(-1))
	s, n, ok := castRay(g, back, extent, cfg)
	if !ok {
		return 0, r3.Vector{}, false
	}
	exit := (extent - s) / dirLen
	if exit > maxTOI {
		return 0, r3.Vector{}, false
	}
	return exit, n, true
}

func castRay(g SupportMap, ray spatialmath.Ray, maxTOI float64, cfg Config) (float64, r3.Vector, bool) {
	lambda := 0.
	x := ray.Origin
	var normal r3.Vector

	v := x.Sub(g.LocalSupportPoint(ray.Dir))
	var simplex Simplex

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		vv := v.Norm2()
		if simplex.Len() > 0 && (simplex.EnclosesOrigin() || vv <= cfg.Epsilon*math.Max(simplex.MaxSquaredNorm(), 1e-30)) {
			return lambda, normalized(normal), true
		}
		if vv == 0 {
			return lambda, normalized(normal), true
		}

		p := g.LocalSupportPoint(v)
		w := x.Sub(p)
		if vw := v.Dot(w); vw > 0 {
			vr := v.Dot(ray.Dir)
			if vr >= 0 {
				return 0, r3.Vector{}, false
			}
			lambda -= vw / vr
			if lambda > maxTOI {
				return 0, r3.Vector{}, false
			}
			x = ray.PointAt(lambda)
			normal = v
			for i := 0; i < simplex.dim; i++ {
				simplex.points[i].Point = x.Sub(simplex.points[i].Orig1)
			}
			w = x.Sub(p)
		}

		cso := CSOPoint{Point: w, Orig1: p}
		if simplex.Len() == 0 {
			simplex.Reset(cso)
		} else if !simplex.Add(cso) {
			return lambda, normalized(normal), true
		}
		v = simplex.ProjectOrigin()
	}
	// the cap is reached on curved shapes only when the ray grazes them; report the estimate
	return lambda, normalized(normal), lambda > 0
}

func normalized(v r3.Vector) r3.Vector {
	if n := v.Norm(); n > 0 {
		return v.Mul(1 / n)
	}
	return r3.Vector{}
}
