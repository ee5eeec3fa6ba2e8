// Package toi computes the time of impact of two moving shapes by conservative advancement: the shapes are
// advanced by a step that provably cannot make them touch until their distance falls below a tolerance.
package toi

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/collide/spatialmath"
)

// Status is the outcome of a time of impact query.
type Status int

const (
	// NoHit means the shapes do not touch before the end of the interval.
	NoHit Status = iota
	// Hit means the shapes reach the target distance at Time.
	Hit
	// Penetrating means the shapes already overlap at the start of the interval; Time is 0.
	Penetrating
	// Indeterminate means the iteration cap was reached; Time is the last safe time. Callers should treat
	// it as a hit to avoid tunneling.
	Indeterminate
)

func (s Status) String() string {
	switch s {
	case NoHit:
		return "no_hit"
	case Hit:
		return "hit"
	case Penetrating:
		return "penetrating"
	case Indeterminate:
		return "indeterminate"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the time of impact and the witness points and normals at that time. Witness1 and Normal1
// are in the frame of the first shape, Witness2 and Normal2 in the frame of the second.
type Result struct {
	Time     float64
	Witness1 r3.Vector
	Witness2 r3.Vector
	Normal1  r3.Vector
	Normal2  r3.Vector
	Status   Status
}

// Swapped returns the result seen from the second shape.
func (r Result) Swapped() Result {
	return Result{
		Time:     r.Time,
		Witness1: r.Witness2,
		Witness2: r.Witness1,
		Normal1:  r.Normal2,
		Normal2:  r.Normal1,
		Status:   r.Status,
	}
}

// Config holds the parameters of conservative advancement.
type Config struct {
	MaxIterations int `json:"max_iterations"`
	// Epsilon is the distance tolerance, relative to the size of the shapes.
	Epsilon float64 `json:"epsilon"`
	// TargetDistance is the separation at which the shapes are considered touching.
	TargetDistance float64 `json:"target_distance"`
	// MaxTOI ends the interval; it may be +Inf for an unbounded search.
	MaxTOI float64 `json:"max_toi"`
	// StopAtPenetration reports Penetrating for shapes overlapping at time 0 even when they move apart.
	StopAtPenetration bool `json:"stop_at_penetration"`
}

// DefaultConfig returns the settings used when none are given: the unit interval and exact contact.
func DefaultConfig() Config {
	return Config{MaxIterations: 100, Epsilon: 1e-7, MaxTOI: 1, StopAtPenetration: true}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var err error
	if c.MaxIterations <= 0 {
		err = multierr.Append(err, errors.Errorf("toi max_iterations must be positive, got %d", c.MaxIterations))
	}
	if !(c.Epsilon > 0) || math.IsInf(c.Epsilon, 1) {
		err = multierr.Append(err, errors.Errorf("toi epsilon must be positive and finite, got %v", c.Epsilon))
	}
	if !(c.TargetDistance >= 0) || math.IsInf(c.TargetDistance, 1) {
		err = multierr.Append(err, errors.Errorf("toi target_distance must be non-negative and finite, got %v", c.TargetDistance))
	}
	if !(c.MaxTOI >= 0) {
		err = multierr.Append(err, errors.Errorf("toi max_toi must be non-negative, got %v", c.MaxTOI))
	}
	return err
}

// Proximity is the separation of two posed shapes in the world frame. Distance is negative when they
// overlap. Normal points from the first shape toward the second and may be zero when undefined.
type Proximity struct {
	Distance float64
	Point1   r3.Vector
	Point2   r3.Vector
	Normal   r3.Vector
}

// DistanceFunc computes the proximity of the two shapes placed at pos1 and pos2.
type DistanceFunc func(pos1, pos2 spatialmath.Pose) (Proximity, error)

// ConservativeAdvancement finds the first time in [0, cfg.MaxTOI] at which the shapes following m1 and m2
// come within cfg.TargetDistance of each other. r1 and r2 bound the distance of any point of each shape
// from its rotation center.
//
// From a separation d along normal n, no pair of points can close faster than
// max(0, (v1 - v2).n) + |w1| r1 + |w2| r2, so advancing by (d - target) over that bound never passes the
// first contact.
func ConservativeAdvancement(dist DistanceFunc, m1, m2 Motion, r1, r2 float64, cfg Config) (Result, error) {
	tol := cfg.Epsilon * math.Max(1, r1+r2)
	angular := m1.AngVel.Norm()*r1 + m2.AngVel.Norm()*r2

	t := 0.
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		pos1, pos2 := m1.PositionAt(t), m2.PositionAt(t)
		prox, err := dist(pos1, pos2)
		if err != nil {
			return Result{}, err
		}
		if math.IsNaN(prox.Distance) {
			return Result{Time: t, Status: Indeterminate}, nil
		}
		if math.IsInf(prox.Distance, 1) {
			return Result{Status: NoHit}, nil
		}
		closing := m1.LinVel.Sub(m2.LinVel).Dot(prox.Normal)

		if iter == 0 && prox.Distance < -tol {
			if !cfg.StopAtPenetration && closing <= 0 && angular == 0 {
				return Result{Status: NoHit}, nil
			}
			return witnesses(pos1, pos2, prox, 0, Penetrating), nil
		}
		gap := prox.Distance - cfg.TargetDistance
		if gap <= tol {
			return witnesses(pos1, pos2, prox, t, Hit), nil
		}

		bound := math.Max(0, closing) + angular
		if prox.Normal.Norm2() == 0 {
			// without a direction only the full relative speed is safe
			bound = m1.LinVel.Sub(m2.LinVel).Norm() + angular
		}
		if bound <= 0 {
			return Result{Status: NoHit}, nil
		}
		t += gap / bound
		if t > cfg.MaxTOI {
			return Result{Status: NoHit}, nil
		}
	}
	return Result{Time: t, Status: Indeterminate}, nil
}

func witnesses(pos1, pos2 spatialmath.Pose, prox Proximity, t float64, status Status) Result {
	return Result{
		Time:     t,
		Witness1: spatialmath.InverseTransformPoint(pos1, prox.Point1),
		Witness2: spatialmath.InverseTransformPoint(pos2, prox.Point2),
		Normal1:  spatialmath.InverseRotateVector(pos1, prox.Normal),
		Normal2:  spatialmath.InverseRotateVector(pos2, prox.Normal.Mul(-1)),
		Status:   status,
	}
}
