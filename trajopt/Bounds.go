package trajopt

import (
	"fmt"
	"math"

	"github.com/iprl-lab/gotrifinger/finger"
	"github.com/iprl-lab/gotrifinger/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// jointRanges holds the admissible position range of each of a finger's
// three joints (radians). All fingers share the same table.
var jointRanges = [finger.NumJoints]r1.Interval{
	{Min: -0.33, Max: 1.0},
	{Min: 0.0, Max: 1.57},
	{Min: -2.7, Max: 0.0},
}

// velocityRange is the admissible velocity range of every joint (rad/s)
var velocityRange = r1.Interval{Min: -2.0, Max: 2.0}

// JointRange returns the position range of joint j within a finger
func JointRange(j int) r1.Interval {
	return jointRanges[j]
}

// checkHandVec panics unless v is a full-hand joint vector
func checkHandVec(name string, v mat.Vector) {
	if v.Len() != finger.NumDOF {
		panic(fmt.Sprintf("%v: illegal joint vector length \n\twant(%v) "+
			"\n\thave(%v)", name, finger.NumDOF, v.Len()))
	}
}

// InitialGuess returns the solver starting point for a solve from joint
// configuration q0: time linearly spaced over [0, tf], every joint row
// equal to q0, zero velocities, zero slack. Rows after the pinned first
// one are clipped into the joint ranges so a start configuration outside
// the limits still yields a guess inside the variable bounds.
func (o *Optimizer) InitialGuess(q0 mat.Vector) []float64 {
	checkHandVec("initialGuess: q0", q0)
	c := o.codec

	z := make([]float64, c.Len())
	copy(z, floatutils.Linspace(0, o.cfg.FinalTime(), c.NGrid()))
	for i := 0; i < c.NGrid(); i++ {
		for j := 0; j < finger.NumDOF; j++ {
			if i == 0 {
				z[c.jointIndex(i, j)] = q0.AtVec(j)
				continue
			}
			z[c.jointIndex(i, j)] = floatutils.ClipInterval(q0.AtVec(j),
				jointRanges[j%finger.NumJoints])
		}
	}
	return z
}

// Bounds returns element-wise lower and upper bounds on the decision
// vector. The time block is pinned to its linear spacing; grid index 0 of
// the position block is pinned to q0; joint positions and velocities are
// range-bounded everywhere else from the shared per-joint tables. When
// dq0 or dqEnd is non-nil, the first or last velocity row is pinned to
// it. Slack variables are bounded to [0, +inf).
func (o *Optimizer) Bounds(q0, dq0, dqEnd mat.Vector) (lb, ub []float64) {
	checkHandVec("bounds: q0", q0)
	if dq0 != nil {
		checkHandVec("bounds: dq0", dq0)
	}
	if dqEnd != nil {
		checkHandVec("bounds: dqEnd", dqEnd)
	}

	c := o.codec
	lb = make([]float64, c.Len())
	ub = make([]float64, c.Len())

	// Time pinned by equal bounds
	times := floatutils.Linspace(0, o.cfg.FinalTime(), c.NGrid())
	copy(lb, times)
	copy(ub, times)

	for i := 0; i < c.NGrid(); i++ {
		for j := 0; j < finger.NumDOF; j++ {
			if i == 0 {
				lb[c.jointIndex(i, j)] = q0.AtVec(j)
				ub[c.jointIndex(i, j)] = q0.AtVec(j)
			} else {
				rng := jointRanges[j%finger.NumJoints]
				lb[c.jointIndex(i, j)] = rng.Min
				ub[c.jointIndex(i, j)] = rng.Max
			}

			switch {
			case i == 0 && dq0 != nil:
				lb[c.velIndex(i, j)] = dq0.AtVec(j)
				ub[c.velIndex(i, j)] = dq0.AtVec(j)
			case i == c.NGrid()-1 && dqEnd != nil:
				lb[c.velIndex(i, j)] = dqEnd.AtVec(j)
				ub[c.velIndex(i, j)] = dqEnd.AtVec(j)
			default:
				lb[c.velIndex(i, j)] = velocityRange.Min
				ub[c.velIndex(i, j)] = velocityRange.Max
			}
		}
	}

	for k := 0; k < NumSlack; k++ {
		lb[c.slackIndex(k)] = 0
		ub[c.slackIndex(k)] = math.Inf(1)
	}

	return lb, ub
}
