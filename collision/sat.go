package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collide/spatialmath"
	"go.viam.com/collide/utils"
)

// satAxisEpsilon skips edge cross products of near-parallel edges.
const satAxisEpsilon = 1e-10

// cuboidSATMaxGap computes the largest separation over the 15 separating axis candidates of two
// cuboids: the first centered at the origin of its frame, the second at pos12. It uses Ericson's
// precomputed relative rotation formulation ("Real-Time Collision Detection" 4.4.1).
//
// It returns the gap and its axis, a unit vector in the frame of the first cuboid pointing toward the
// second. A positive gap bounds the distance from below; a non-positive one is the negated penetration
// depth. On ties face axes win over edge axes and the first cuboid's faces over the second's.
func cuboidSATMaxGap(pos12 spatialmath.Pose, half1, half2 r3.Vector) (float64, r3.Vector) {
	hA := [3]float64{half1.X, half1.Y, half1.Z}
	hB := [3]float64{half2.X, half2.Y, half2.Z}

	// the axes of the first cuboid are the frame axes, so the rows of R are the second's axes in this frame
	var axesB [3]r3.Vector
	var r, absR [3][3]float64
	for j := 0; j < 3; j++ {
		axesB[j] = spatialmath.RotateVector(pos12, spatialmath.Axis(j, 1))
		for i := 0; i < 3; i++ {
			r[i][j] = spatialmath.Component(axesB[j], i)
			absR[i][j] = math.Abs(r[i][j]) + satAxisEpsilon
		}
	}
	t := pos12.Point()
	tA := [3]float64{t.X, t.Y, t.Z}

	best := math.Inf(-1)
	var bestAxis r3.Vector
	consider := func(gap, proj float64, axis r3.Vector) {
		if gap > best {
			best = gap
			if proj < 0 {
				axis = axis.Mul(-1)
			}
			bestAxis = axis
		}
	}

	// face axes of A
	for i := 0; i < 3; i++ {
		rb := hB[0]*absR[i][0] + hB[1]*absR[i][1] + hB[2]*absR[i][2]
		consider(math.Abs(tA[i])-hA[i]-rb, tA[i], spatialmath.Axis(i, 1))
	}
	// face axes of B
	for j := 0; j < 3; j++ {
		proj := tA[0]*r[0][j] + tA[1]*r[1][j] + tA[2]*r[2][j]
		ra := hA[0]*absR[0][j] + hA[1]*absR[1][j] + hA[2]*absR[2][j]
		consider(math.Abs(proj)-hB[j]-ra, proj, axesB[j])
	}
	// edge axes a_i x b_j, normalized by sqrt(1 - R[i][j]^2)
	for i := 0; i < 3; i++ {
		i1, i2 := (i+1)%3, (i+2)%3
		for j := 0; j < 3; j++ {
			l2 := 1 - r[i][j]*r[i][j]
			if l2 <= satAxisEpsilon {
				continue
			}
			j1, j2 := (j+1)%3, (j+2)%3
			proj := tA[i2]*r[i1][j] - tA[i1]*r[i2][j]
			ra := hA[i1]*absR[i2][j] + hA[i2]*absR[i1][j]
			rb := hB[j1]*absR[i][j2] + hB[j2]*absR[i][j1]
			l := utils.Sqrt(l2)
			axis := spatialmath.Axis(i, 1).Cross(axesB[j]).Mul(1 / l)
			consider((math.Abs(proj)-ra-rb)/l, proj, axis)
		}
	}
	return best, bestAxis
}
