package finger

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// handConfig is a full-hand joint vector with each finger in a different
// configuration.
var handConfig = []float64{
	0.0, 0.9, -1.7,
	0.3, 1.2, -0.9,
	-0.2, 0.4, -2.1,
}

func TestJointsExtraction(t *testing.T) {
	q := mat.NewVecDense(NumDOF, handConfig)
	for fi := 0; fi < NumFingers; fi++ {
		joints := Joints(q, fi)
		for j := 0; j < NumJoints; j++ {
			if joints.AtVec(j) != handConfig[NumJoints*fi+j] {
				t.Errorf("finger %v joint %v: got %v, want %v", fi, j,
					joints.AtVec(j), handConfig[NumJoints*fi+j])
			}
		}
	}
}

func TestTipPositionsMatchFingers(t *testing.T) {
	hand := NewHand()
	q := mat.NewVecDense(NumDOF, handConfig)

	tips := hand.TipPositions(q)
	for fi := 0; fi < NumFingers; fi++ {
		tip := hand.Finger(fi).TipPosition(Joints(q, fi))
		for d := 0; d < 3; d++ {
			if tips.AtVec(3*fi+d) != tip.AtVec(d) {
				t.Errorf("finger %v axis %v: hand tip %v, finger tip %v",
					fi, d, tips.AtVec(3*fi+d), tip.AtVec(d))
			}
		}
	}
}

// TestHandJacobianBlockDiagonal checks that the full-hand Jacobian holds
// each finger's Jacobian on its diagonal block and zeros elsewhere.
func TestHandJacobianBlockDiagonal(t *testing.T) {
	hand := NewHand()
	q := mat.NewVecDense(NumDOF, handConfig)

	jac := hand.Jacobian(q)
	if r, c := jac.Dims(); r != NumDOF || c != NumDOF {
		t.Fatalf("hand jacobian is %v×%v, want %v×%v", r, c, NumDOF, NumDOF)
	}

	for fi := 0; fi < NumFingers; fi++ {
		block := hand.Finger(fi).Jacobian(Joints(q, fi))
		for d := 0; d < 3; d++ {
			for j := 0; j < NumJoints; j++ {
				if jac.At(3*fi+d, NumJoints*fi+j) != block.At(d, j) {
					t.Errorf("diagonal block of finger %v differs at "+
						"(%v, %v)", fi, d, j)
				}
			}
		}
	}

	for r := 0; r < NumDOF; r++ {
		for c := 0; c < NumDOF; c++ {
			if r/3 != c/3 && jac.At(r, c) != 0 {
				t.Errorf("off-block entry (%v, %v) = %v, want 0", r, c,
					jac.At(r, c))
			}
		}
	}
}

// TestTipVelocitiesMatchDisplacement compares J·dq against the finite
// displacement of the fingertips over a small timestep.
func TestTipVelocitiesMatchDisplacement(t *testing.T) {
	hand := NewHand()
	q := mat.NewVecDense(NumDOF, handConfig)
	dq := mat.NewVecDense(NumDOF, []float64{
		0.5, -0.3, 0.8,
		-0.1, 0.6, -0.4,
		0.2, 0.0, 1.0,
	})

	vels := hand.TipVelocities(q, dq)

	const h = 1e-7
	next := mat.NewVecDense(NumDOF, nil)
	next.AddScaledVec(q, h, dq)

	tips := hand.TipPositions(q)
	tipsNext := hand.TipPositions(next)
	for k := 0; k < 3*NumFingers; k++ {
		approx := (tipsNext.AtVec(k) - tips.AtVec(k)) / h
		if math.Abs(vels.AtVec(k)-approx) > 1e-5 {
			t.Errorf("tip velocity %v = %v, finite displacement %v", k,
				vels.AtVec(k), approx)
		}
	}
}
