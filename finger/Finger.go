// Package finger implements the closed-form kinematics of the TriFinger
// robotic hand. Each of the three fingers is a 3-DOF serial chain whose
// base is rotated around the arena centre; fingertip positions, analytic
// Jacobians, and collision-proxy sphere centres are all explicit
// trigonometric functions of the joint angles, so constraint and cost
// gradients can be hand-derived rather than obtained by automatic
// differentiation.
package finger

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// NumFingers is the number of fingers on the hand
	NumFingers int = 3

	// NumJoints is the number of revolute joints per finger
	NumJoints int = 3

	// NumDOF is the total number of joints on the hand
	NumDOF int = NumFingers * NumJoints
)

const (
	// Physical constants of one finger (metres)
	hipOffset   float64 = 0.08457 // Lateral offset from the hip axis to the leg plane
	upperLength float64 = 0.16    // Length of the upper (proximal) link
	tipLength   float64 = 0.1626  // Length of the distal link, hinge to fingertip
	baseY       float64 = 0.0505  // Finger-frame y offset of the hip joint
	baseZ       float64 = 0.29    // Height of the hip joint above the arena floor
)

// Collision-proxy links. Links 0 and 1 (mount and hip) never approach the
// object and carry no spheres.
const (
	UpperLink int = 2 // upper (proximal) link
	TipLink   int = 3 // distal link ending at the fingertip
)

// sphereOffsets[link] holds the distances (metres) along the link, measured
// from the link's proximal joint, at which collision spheres are centred.
// The last offset of the tip link coincides with the fingertip itself.
var sphereOffsets = [4][]float64{
	UpperLink: {0.053, 0.107, upperLength},
	TipLink:   {0.054, 0.108, tipLength},
}

// SphereRadii holds the collision sphere radius (metres) of each link.
var SphereRadii = [4]float64{
	UpperLink: 0.016,
	TipLink:   0.0125,
}

// BaseAngles holds the rotation of each finger base around the arena
// centre, in degrees.
var BaseAngles = [NumFingers]float64{0, -120, -240}

// Finger models the kinematics of a single finger. The finger's placement
// around the arena is fixed at construction; all methods are pure
// functions of the joint angles.
type Finger struct {
	index            int
	thetaBase        float64 // Base rotation about the world z axis (radians)
	sinBase, cosBase float64
}

// New returns the finger at the given index (0, 1, or 2), placed at its
// fixed base rotation around the arena.
func New(index int) *Finger {
	if index < 0 || index >= NumFingers {
		panic(fmt.Sprintf("new: finger index out of range \n\twant(0-%v) "+
			"\n\thave(%v)", NumFingers-1, index))
	}

	thetaBase := BaseAngles[index] * math.Pi / 180
	sinBase, cosBase := math.Sincos(thetaBase)

	return &Finger{
		index:     index,
		thetaBase: thetaBase,
		sinBase:   sinBase,
		cosBase:   cosBase,
	}
}

// Index returns the index of the finger on the hand
func (f *Finger) Index() int {
	return f.index
}

// BaseAngle returns the base rotation of the finger in radians
func (f *Finger) BaseAngle() float64 {
	return f.thetaBase
}

// checkJoints panics if q is not a single finger's joint vector
func checkJoints(q mat.Vector) {
	if q.Len() != NumJoints {
		panic(fmt.Sprintf("checkJoints: illegal joint vector length "+
			"\n\twant(%v) \n\thave(%v)", NumJoints, q.Len()))
	}
}

// rotate maps a point from the finger frame to the world frame by the
// finger's base rotation about the z axis.
func (f *Finger) rotate(x, y, z float64) (float64, float64, float64) {
	return x*f.cosBase - y*f.sinBase, x*f.sinBase + y*f.cosBase, z
}

// TipPosition returns the fingertip position in the world frame for the
// finger's three joint angles.
//
// The chain is: hip rotation q1 about the finger-frame y axis, then the
// upper link hanging by q2 and the distal link by q2+q3, both in the plane
// offset by hipOffset from the hip axis.
func (f *Finger) TipPosition(q mat.Vector) *mat.VecDense {
	checkJoints(q)
	s1, c1 := math.Sincos(q.AtVec(0))
	s2, c2 := math.Sincos(q.AtVec(1))
	s23, c23 := math.Sincos(q.AtVec(1) + q.AtVec(2))

	x := hipOffset*c1 - upperLength*s1*c2 - tipLength*s1*c23
	y := baseY + upperLength*s2 + tipLength*s23
	z := baseZ - hipOffset*s1 - upperLength*c1*c2 - tipLength*c1*c23

	wx, wy, wz := f.rotate(x, y, z)
	return mat.NewVecDense(3, []float64{wx, wy, wz})
}

// Jacobian returns the 3×3 matrix of partial derivatives of the world-frame
// fingertip position with respect to the finger's three joint angles.
func (f *Finger) Jacobian(q mat.Vector) *mat.Dense {
	checkJoints(q)
	s1, c1 := math.Sincos(q.AtVec(0))
	s2, c2 := math.Sincos(q.AtVec(1))
	s23, c23 := math.Sincos(q.AtVec(1) + q.AtVec(2))

	// Finger-frame partials
	dx1 := -hipOffset*s1 - upperLength*c1*c2 - tipLength*c1*c23
	dx2 := upperLength*s1*s2 + tipLength*s1*s23
	dx3 := tipLength * s1 * s23

	dy2 := upperLength*c2 + tipLength*c23
	dy3 := tipLength * c23

	dz1 := -hipOffset*c1 + upperLength*s1*c2 + tipLength*s1*c23
	dz2 := upperLength*c1*s2 + tipLength*c1*s23
	dz3 := tipLength * c1 * s23

	jac := mat.NewDense(3, 3, nil)
	f.setRotated(jac, 0, dx1, 0.0, dz1)
	f.setRotated(jac, 1, dx2, dy2, dz2)
	f.setRotated(jac, 2, dx3, dy3, dz3)
	return jac
}

// setRotated writes one finger-frame partial-derivative column into column
// col of jac, rotated into the world frame.
func (f *Finger) setRotated(jac *mat.Dense, col int, dx, dy, dz float64) {
	wx, wy, wz := f.rotate(dx, dy, dz)
	jac.Set(0, col, wx)
	jac.Set(1, col, wy)
	jac.Set(2, col, wz)
}

// Sphere is a collision-proxy sphere attached to a finger link. Center is
// expressed in the world frame and Jacobian holds the partial derivatives
// of the centre with respect to the finger's three joint angles.
type Sphere struct {
	Link     int
	Radius   float64
	Center   *mat.VecDense
	Jacobian *mat.Dense
}

// NumSpheres returns the number of collision spheres carried by the
// requested links. The count matches the length of the slice Spheres
// returns for the same links.
func NumSpheres(links []int) int {
	var n int
	for _, link := range links {
		n += len(sphereOffsets[link])
	}
	return n
}

// Spheres returns the collision spheres of the requested links at joint
// configuration q. Valid links are UpperLink and TipLink.
func (f *Finger) Spheres(q mat.Vector, links []int) []Sphere {
	checkJoints(q)
	s1, c1 := math.Sincos(q.AtVec(0))
	s2, c2 := math.Sincos(q.AtVec(1))
	s23, c23 := math.Sincos(q.AtVec(1) + q.AtVec(2))

	// Hip joint position and its q1 partial
	hip := [3]float64{hipOffset * c1, baseY, baseZ - hipOffset*s1}
	dHip1 := [3]float64{-hipOffset * s1, 0, -hipOffset * c1}

	// Upper link direction and partials
	u := [3]float64{-s1 * c2, s2, -c1 * c2}
	dU1 := [3]float64{-c1 * c2, 0, s1 * c2}
	dU2 := [3]float64{s1 * s2, c2, c1 * s2}

	// Distal link direction and partials. The q2 and q3 partials coincide
	// because the link angle is q2+q3.
	v := [3]float64{-s1 * c23, s23, -c1 * c23}
	dV1 := [3]float64{-c1 * c23, 0, s1 * c23}
	dV23 := [3]float64{s1 * s23, c23, c1 * s23}

	var spheres []Sphere
	for _, link := range links {
		if link != UpperLink && link != TipLink {
			panic(fmt.Sprintf("spheres: link %v carries no collision spheres",
				link))
		}
		for _, d := range sphereOffsets[link] {
			var center, grad1, grad2, grad3 [3]float64
			for i := 0; i < 3; i++ {
				switch link {
				case UpperLink:
					center[i] = hip[i] + d*u[i]
					grad1[i] = dHip1[i] + d*dU1[i]
					grad2[i] = d * dU2[i]
					grad3[i] = 0
				case TipLink:
					center[i] = hip[i] + upperLength*u[i] + d*v[i]
					grad1[i] = dHip1[i] + upperLength*dU1[i] + d*dV1[i]
					grad2[i] = upperLength*dU2[i] + d*dV23[i]
					grad3[i] = d * dV23[i]
				}
			}

			jac := mat.NewDense(3, 3, nil)
			cx, cy, cz := f.rotate(center[0], center[1], center[2])
			f.setRotated(jac, 0, grad1[0], grad1[1], grad1[2])
			f.setRotated(jac, 1, grad2[0], grad2[1], grad2[2])
			f.setRotated(jac, 2, grad3[0], grad3[1], grad3[2])

			spheres = append(spheres, Sphere{
				Link:     link,
				Radius:   SphereRadii[link],
				Center:   mat.NewVecDense(3, []float64{cx, cy, cz}),
				Jacobian: jac,
			})
		}
	}
	return spheres
}
