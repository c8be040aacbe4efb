// Package pose provides the rigid-body pose of the manipulated object and
// the frame transforms the optimizer needs to express collision proxies in
// the object's local frame.
package pose

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Len is the length of a packed pose vector: position(3) followed by a
// quaternion(4) in scalar-last (x, y, z, w) order.
const Len int = 7

// Pose is a world-frame rigid-body pose. Orientation is a unit quaternion;
// the caller is responsible for supplying normalized orientations.
type Pose struct {
	Position    *mat.VecDense
	Orientation quat.Number
}

// New returns the pose at position (x, y, z) with the given orientation
func New(x, y, z float64, orientation quat.Number) Pose {
	return Pose{
		Position:    mat.NewVecDense(3, []float64{x, y, z}),
		Orientation: orientation,
	}
}

// Identity returns the identity pose: the origin with no rotation
func Identity() Pose {
	return New(0, 0, 0, quat.Number{Real: 1})
}

// FromVector unpacks a pose from its wire layout [x y z qx qy qz qw]
func FromVector(v []float64) (Pose, error) {
	if len(v) != Len {
		return Pose{}, fmt.Errorf("fromVector: illegal pose vector length "+
			"\n\twant(%v) \n\thave(%v)", Len, len(v))
	}
	orientation := quat.Number{Imag: v[3], Jmag: v[4], Kmag: v[5], Real: v[6]}
	return New(v[0], v[1], v[2], orientation), nil
}

// Vector packs the pose into its wire layout [x y z qx qy qz qw]
func (p Pose) Vector() []float64 {
	return []float64{
		p.Position.AtVec(0), p.Position.AtVec(1), p.Position.AtVec(2),
		p.Orientation.Imag, p.Orientation.Jmag, p.Orientation.Kmag,
		p.Orientation.Real,
	}
}

// Inverse returns the pose mapping world-frame points into this pose's
// local frame: q⁻¹ and -R(q⁻¹)·t for a unit quaternion q and position t.
func (p Pose) Inverse() Pose {
	inv := quat.Conj(p.Orientation)
	rot := RotationMatrix(inv)

	position := mat.NewVecDense(3, nil)
	position.MulVec(rot, p.Position)
	position.ScaleVec(-1, position)

	return Pose{Position: position, Orientation: inv}
}

// Apply transforms a point by the pose: R(q)·x + t
func (p Pose) Apply(point mat.Vector) *mat.VecDense {
	if point.Len() != 3 {
		panic(fmt.Sprintf("apply: illegal point length \n\twant(3) "+
			"\n\thave(%v)", point.Len()))
	}
	out := mat.NewVecDense(3, nil)
	out.MulVec(RotationMatrix(p.Orientation), point)
	out.AddVec(out, p.Position)
	return out
}

// ToLocal maps a world-frame point into the pose's local frame
func (p Pose) ToLocal(point mat.Vector) *mat.VecDense {
	return p.Inverse().Apply(point)
}

// RotationMatrix returns the 3×3 rotation matrix of a unit quaternion
func RotationMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}
