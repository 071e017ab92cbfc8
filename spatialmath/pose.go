// Package spatialmath defines the rigid-body pose math used to transform
// sensor scans into the map frame before integration.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transformation in 3D space, a rotation followed by
// a translation.
type Pose interface {
	// Point returns the translation component of the pose.
	Point() r3.Vector

	// Orientation returns the rotation component of the pose as a unit quaternion.
	Orientation() quat.Number

	// TransformPoint applies the pose to a point in space.
	TransformPoint(p r3.Vector) r3.Vector
}

type basicPose struct {
	translation r3.Vector
	rotation    quat.Number
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return &basicPose{rotation: quat.Number{Real: 1}}
}

// NewPoseFromPoint returns a pure translation pose.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return &basicPose{translation: pt, rotation: quat.Number{Real: 1}}
}

// NewPose returns a pose with the given translation and rotation. The rotation
// quaternion is normalized if it is not already a unit quaternion.
func NewPose(pt r3.Vector, rot quat.Number) Pose {
	return &basicPose{translation: pt, rotation: normalize(rot)}
}

// NewPoseFromEuler returns a pose from a translation and extrinsic x-y-z
// (roll, pitch, yaw) Euler angles in radians: roll about the fixed x axis
// first, then pitch about y, then yaw about z. This mirrors the common 6D
// pose parametrization of scan logs.
func NewPoseFromEuler(pt r3.Vector, roll, pitch, yaw float64) Pose {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	return &basicPose{
		translation: pt,
		rotation: quat.Number{
			Real: cr*cp*cy + sr*sp*sy,
			Imag: sr*cp*cy - cr*sp*sy,
			Jmag: cr*sp*cy + sr*cp*sy,
			Kmag: cr*cp*sy - sr*sp*cy,
		},
	}
}

// Compose returns the pose equivalent to applying b first, then a.
func Compose(a, b Pose) Pose {
	return &basicPose{
		translation: a.TransformPoint(b.Point()),
		rotation:    normalize(quat.Mul(a.Orientation(), b.Orientation())),
	}
}

func (bp *basicPose) Point() r3.Vector {
	return bp.translation
}

func (bp *basicPose) Orientation() quat.Number {
	return bp.rotation
}

func (bp *basicPose) TransformPoint(p r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(bp.rotation, quat.Number{Imag: p.X, Jmag: p.Y, Kmag: p.Z}), quat.Conj(bp.rotation))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}.Add(bp.translation)
}

// PoseAlmostEqual compares two poses for approximate equality in both
// translation and rotation.
func PoseAlmostEqual(a, b Pose) bool {
	const epsilon = 1e-8
	if a.Point().Sub(b.Point()).Norm() > epsilon {
		return false
	}
	qa, qb := a.Orientation(), b.Orientation()
	// q and -q represent the same rotation
	d := math.Min(quatDist(qa, qb), quatDist(qa, quat.Scale(-1, qb)))
	return d < epsilon
}

func quatDist(a, b quat.Number) float64 {
	return quat.Abs(quat.Sub(a, b))
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}
