package finger

import (
	"fmt"

	"github.com/iprl-lab/gotrifinger/utils/matutils"
	"gonum.org/v1/gonum/mat"
)

// Hand aggregates the three fingers of the TriFinger platform. Full-hand
// joint vectors are finger-major: entries 3f..3f+2 are the joint angles of
// finger f. Fingers are kinematically independent, so the full-hand
// Jacobian is block diagonal.
type Hand struct {
	fingers [NumFingers]*Finger
}

// NewHand returns a hand with its three fingers at their fixed base
// rotations around the arena.
func NewHand() *Hand {
	h := new(Hand)
	for i := 0; i < NumFingers; i++ {
		h.fingers[i] = New(i)
	}
	return h
}

// Finger returns the finger at index i
func (h *Hand) Finger(i int) *Finger {
	return h.fingers[i]
}

// checkHandJoints panics if q is not a full-hand joint vector
func checkHandJoints(q mat.Vector) {
	if q.Len() != NumDOF {
		panic(fmt.Sprintf("checkHandJoints: illegal joint vector length "+
			"\n\twant(%v) \n\thave(%v)", NumDOF, q.Len()))
	}
}

// Joints extracts the joint vector of finger i from a full-hand joint
// vector.
func Joints(q mat.Vector, i int) *mat.VecDense {
	checkHandJoints(q)
	out := mat.NewVecDense(NumJoints, nil)
	for j := 0; j < NumJoints; j++ {
		out.SetVec(j, q.AtVec(NumJoints*i+j))
	}
	return out
}

// TipPositions returns the world-frame positions of all three fingertips
// for a full-hand joint vector, concatenated finger-major into a 9-vector.
func (h *Hand) TipPositions(q mat.Vector) *mat.VecDense {
	checkHandJoints(q)
	out := mat.NewVecDense(3*NumFingers, nil)
	for i, f := range h.fingers {
		tip := f.TipPosition(Joints(q, i))
		for d := 0; d < 3; d++ {
			out.SetVec(3*i+d, tip.AtVec(d))
		}
	}
	return out
}

// Jacobian returns the block-diagonal 9×9 Jacobian of all fingertip
// positions with respect to the full-hand joint vector.
func (h *Hand) Jacobian(q mat.Vector) *mat.Dense {
	checkHandJoints(q)
	blocks := make([]mat.Matrix, NumFingers)
	for i, f := range h.fingers {
		blocks[i] = f.Jacobian(Joints(q, i))
	}
	return matutils.BlockDiag(blocks...)
}

// TipVelocities returns the world-frame fingertip velocities J(q)·dq for a
// full-hand joint position and velocity vector.
func (h *Hand) TipVelocities(q, dq mat.Vector) *mat.VecDense {
	checkHandJoints(dq)
	out := mat.NewVecDense(3*NumFingers, nil)
	out.MulVec(h.Jacobian(q), dq)
	return out
}
