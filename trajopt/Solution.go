package trajopt

import (
	"math"

	"github.com/curioloop/optimizer/slsqp"
	"github.com/iprl-lab/gotrifinger/finger"
	"gonum.org/v1/gonum/mat"
)

// Solution is one decoded optimization result. The trajectories are laid
// out one row per grid index; fingertip positions and velocities are
// derived from the joint trajectories through the hand kinematics, so
// callers never need the codec or the hand model to consume a solve.
type Solution struct {
	Time  *mat.VecDense // grid timestamps, length nGrid
	Q     *mat.Dense    // joint positions, nGrid×9
	Dq    *mat.Dense    // joint velocities, nGrid×9
	Slack *mat.VecDense // terminal goal-error slack, length 9

	TipPositions  *mat.Dense // fingertip world positions, nGrid×9
	TipVelocities *mat.Dense // fingertip world velocities, nGrid×9

	Cost   float64
	Status Status

	// Grid the problem was solved on
	NGrid int
	Dt    float64
}

// decode expands a raw solver result into a Solution
func (o *Optimizer) decode(res *slsqp.Result) *Solution {
	t, state, slack := o.codec.Unpack(res.X)
	q, dq := o.codec.UnpackState(state)

	nGrid := o.codec.NGrid()
	tips := mat.NewDense(nGrid, finger.NumDOF, nil)
	tipVels := mat.NewDense(nGrid, finger.NumDOF, nil)
	for i := 0; i < nGrid; i++ {
		qi := q.RowView(i)
		tips.SetRow(i, o.hand.TipPositions(qi).RawVector().Data)
		tipVels.SetRow(i, o.hand.TipVelocities(qi, dq.RowView(i)).RawVector().Data)
	}

	return &Solution{
		Time:          mat.NewVecDense(nGrid, t),
		Q:             q,
		Dq:            dq,
		Slack:         mat.NewVecDense(NumSlack, slack),
		TipPositions:  tips,
		TipVelocities: tipVels,
		Cost:          res.F,
		Status: Status{
			Code:       int(res.Status),
			Iterations: res.NumIter,
		},
		NGrid: nGrid,
		Dt:    o.cfg.Dt,
	}
}

// FinalTipError returns the Euclidean distance between each fingertip's
// terminal position and the goal, one entry per finger.
func (s *Solution) FinalTipError(goal mat.Vector) *mat.VecDense {
	last := s.TipPositions.RawMatrix().Rows - 1
	errs := mat.NewVecDense(finger.NumFingers, nil)
	for fi := 0; fi < finger.NumFingers; fi++ {
		var sq float64
		for d := 0; d < 3; d++ {
			diff := goal.AtVec(3*fi+d) - s.TipPositions.At(last, 3*fi+d)
			sq += diff * diff
		}
		errs.SetVec(fi, math.Sqrt(sq))
	}
	return errs
}
