package trajopt

import (
	"fmt"
	"math"

	"github.com/curioloop/optimizer/slsqp"
	"github.com/iprl-lab/gotrifinger/finger"
	"gonum.org/v1/gonum/mat"
)

// constraintLinks are the finger links whose collision spheres appear in
// the hard collision constraint.
var constraintLinks = []int{finger.UpperLink, finger.TipLink}

// constraintSet accumulates scalar constraint records. The evaluation,
// lower-bound, and upper-bound sequences stay index-aligned; a length
// mismatch is a structural bug, not a solver failure.
//
// Every evaluation follows the slsqp contract: it returns the constraint
// value at z and, when handed a non-nil gradient buffer, overwrites the
// whole buffer (the solver reuses one scratch slice for every record).
type constraintSet struct {
	evals []slsqp.Evaluation
	lower []float64
	upper []float64
}

// add appends one constraint record
func (s *constraintSet) add(f slsqp.Evaluation, lower, upper float64) {
	s.evals = append(s.evals, f)
	s.lower = append(s.lower, lower)
	s.upper = append(s.upper, upper)
}

// split partitions the records into the solver's equality (lower == upper
// == 0) and inequality (≥ 0) families, preserving order within each
// family.
func (s *constraintSet) split() (eq, neq []slsqp.Evaluation) {
	if len(s.evals) != len(s.lower) || len(s.evals) != len(s.upper) {
		panic(fmt.Sprintf("split: misaligned constraint records "+
			"\n\tevals(%v) \n\tlower(%v) \n\tupper(%v)",
			len(s.evals), len(s.lower), len(s.upper)))
	}
	for i, f := range s.evals {
		switch {
		case s.lower[i] == 0 && s.upper[i] == 0:
			eq = append(eq, f)
		case s.lower[i] == 0 && math.IsInf(s.upper[i], 1):
			neq = append(neq, f)
		default:
			panic(fmt.Sprintf("split: unsupported constraint bounds "+
				"[%v, %v] at %v", s.lower[i], s.upper[i], i))
		}
	}
	return eq, neq
}

// zeroFill clears a gradient buffer before sparse entries are written
func zeroFill(g []float64) {
	for i := range g {
		g[i] = 0
	}
}

// fingerJoints extracts the joint angles of finger fi at grid index i
// from a decision vector.
func (o *Optimizer) fingerJoints(z []float64, i, fi int) *mat.VecDense {
	q := mat.NewVecDense(finger.NumJoints, nil)
	for j := 0; j < finger.NumJoints; j++ {
		q.SetVec(j, z[o.codec.jointIndex(i, finger.NumJoints*fi+j)])
	}
	return q
}

// collocationConstraints appends the trapezoidal-integration defect for
// every consecutive grid pair and every joint:
//
//	0.5·(t[i+1]-t[i])·(dq[i+1]+dq[i]) + q[i] - q[i+1] == 0
//
// These equalities are what make the decision variables a trajectory
// rather than an arbitrary sequence of states.
func (o *Optimizer) collocationConstraints(set *constraintSet) {
	c := o.codec
	for i := 0; i < c.NGrid()-1; i++ {
		for j := 0; j < finger.NumDOF; j++ {
			i, j := i, j
			set.add(func(z, grad []float64) float64 {
				dt := z[c.timeIndex(i+1)] - z[c.timeIndex(i)]
				dqSum := z[c.velIndex(i+1, j)] + z[c.velIndex(i, j)]
				if grad != nil {
					zeroFill(grad)
					grad[c.timeIndex(i)] = -0.5 * dqSum
					grad[c.timeIndex(i+1)] = 0.5 * dqSum
					grad[c.velIndex(i, j)] = 0.5 * dt
					grad[c.velIndex(i+1, j)] = 0.5 * dt
					grad[c.jointIndex(i, j)] = 1
					grad[c.jointIndex(i+1, j)] = -1
				}
				return 0.5*dt*dqSum + z[c.jointIndex(i, j)] -
					z[c.jointIndex(i+1, j)]
			}, 0, 0)
		}
	}
}

// goalConstraints appends the terminal soft goal constraint: at the last
// grid index, for each finger and spatial axis, the slack variable must
// upper-bound the squared tracking error,
//
//	slack[f,d] - (goal[f,d] - tip[f,d])² >= 0.
//
// The slack is penalized in the cost rather than pinned, so unreachable
// goals inflate the slack instead of making the problem infeasible.
func (o *Optimizer) goalConstraints(set *constraintSet) {
	c := o.codec
	last := c.NGrid() - 1
	for fi := 0; fi < finger.NumFingers; fi++ {
		for d := 0; d < 3; d++ {
			fi, d := fi, d
			k := 3*fi + d
			set.add(func(z, grad []float64) float64 {
				q := o.fingerJoints(z, last, fi)
				fing := o.hand.Finger(fi)
				tip := fing.TipPosition(q)
				delta := o.param.goal[k] - tip.AtVec(d)
				if grad != nil {
					zeroFill(grad)
					grad[c.slackIndex(k)] = 1
					jac := fing.Jacobian(q)
					for j := 0; j < finger.NumJoints; j++ {
						col := finger.NumJoints*fi + j
						grad[c.jointIndex(last, col)] =
							2 * delta * jac.At(d, j)
					}
				}
				return z[c.slackIndex(k)] - delta*delta
			}, 0, math.Inf(1))
		}
	}
}

// collisionConstraints appends the hard collision constraint: at every
// grid index, every collision sphere of the constrained links must lie
// outside the object's unit-normalized bounding proxy,
//
//	pnorm(center) - radius - 1 >= 0.
//
// Only assembled when the configuration enables it.
func (o *Optimizer) collisionConstraints(set *constraintSet) {
	c := o.codec
	numSpheres := finger.NumSpheres(constraintLinks)
	for i := 0; i < c.NGrid(); i++ {
		for fi := 0; fi < finger.NumFingers; fi++ {
			for si := 0; si < numSpheres; si++ {
				i, fi, si := i, fi, si
				set.add(func(z, grad []float64) float64 {
					q := o.fingerJoints(z, i, fi)
					sphere := o.hand.Finger(fi).
						Spheres(q, constraintLinks)[si]

					var pgrad []float64
					if grad != nil {
						pgrad = make([]float64, 3)
					}
					pnorm := PNormOfPoint(sphere.Center, o.param.obj,
						o.cfg.ObjShape, pgrad)
					if grad != nil {
						zeroFill(grad)
						o.chainSphereGrad(grad, i, fi, sphere, pgrad, 1)
					}
					return pnorm - sphere.Radius - 1
				}, 0, math.Inf(1))
			}
		}
	}
}

// chainSphereGrad accumulates scale·(∂pnorm/∂center)·(∂center/∂q) into
// the joint entries of grad for finger fi at grid index i.
func (o *Optimizer) chainSphereGrad(grad []float64, i, fi int,
	sphere finger.Sphere, pgrad []float64, scale float64) {
	for j := 0; j < finger.NumJoints; j++ {
		var dot float64
		for d := 0; d < 3; d++ {
			dot += pgrad[d] * sphere.Jacobian.At(d, j)
		}
		col := finger.NumJoints*fi + j
		grad[o.codec.jointIndex(i, col)] += scale * dot
	}
}

// arenaConstraints appends the workspace boundary constraints from the
// cut-in grid index onward: each fingertip stays within the horizontal
// arena disk and above the floor,
//
//	MaxFingertipRadius - ‖tip_xy‖ >= 0
//	tip_z - GroundClearance       >= 0.
func (o *Optimizer) arenaConstraints(set *constraintSet) {
	c := o.codec
	for i := o.cfg.arenaStart(); i < c.NGrid(); i++ {
		for fi := 0; fi < finger.NumFingers; fi++ {
			i, fi := i, fi

			// Horizontal radius
			set.add(func(z, grad []float64) float64 {
				q := o.fingerJoints(z, i, fi)
				fing := o.hand.Finger(fi)
				tip := fing.TipPosition(q)
				x, y := tip.AtVec(0), tip.AtVec(1)
				r := math.Hypot(x, y)
				if grad != nil {
					zeroFill(grad)
					// The radius gradient is undefined on the vertical
					// axis; the constraint is far from active there, so a
					// zero normal is safe.
					if r > 0 {
						jac := fing.Jacobian(q)
						for j := 0; j < finger.NumJoints; j++ {
							col := finger.NumJoints*fi + j
							grad[c.jointIndex(i, col)] =
								-(x*jac.At(0, j) + y*jac.At(1, j)) / r
						}
					}
				}
				return MaxFingertipRadius - r
			}, 0, math.Inf(1))

			// Height above the floor
			set.add(func(z, grad []float64) float64 {
				q := o.fingerJoints(z, i, fi)
				fing := o.hand.Finger(fi)
				tip := fing.TipPosition(q)
				if grad != nil {
					zeroFill(grad)
					jac := fing.Jacobian(q)
					for j := 0; j < finger.NumJoints; j++ {
						col := finger.NumJoints*fi + j
						grad[c.jointIndex(i, col)] = jac.At(2, j)
					}
				}
				return tip.AtVec(2) - GroundClearance
			}, 0, math.Inf(1))
		}
	}
}

// assembleConstraints builds the full constraint set in its fixed order:
// collocation defects, terminal goal constraints, the optional collision
// family, then the arena boundary.
func (o *Optimizer) assembleConstraints() *constraintSet {
	set := new(constraintSet)
	o.collocationConstraints(set)
	o.goalConstraints(set)
	if o.cfg.EnableCollisionConstraint {
		o.collisionConstraints(set)
	}
	o.arenaConstraints(set)
	return set
}
