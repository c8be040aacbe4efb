package trajopt

import (
	"math"

	"github.com/curioloop/optimizer/slsqp"
	"github.com/iprl-lab/gotrifinger/finger"
)

// penaltyLinks are the finger links whose collision spheres feed the
// smooth collision penalty. Only the distal link gets close enough to the
// object to matter in the cost; the hard constraint covers more links.
var penaltyLinks = []int{finger.TipLink}

// costFunc returns the scalar objective: the sum of the slack penalty,
// the fingertip tracking cost at every grid index, the joint-velocity
// regularizer, and (when weighted) the smooth collision penalty. The
// gradient buffer, when non-nil, is fully overwritten.
//
// The tracking term pulls the whole trajectory toward the goal while the
// terminal constraint only bounds the final error; this asymmetry shapes
// the approach early without hard-constraining the transient.
func (o *Optimizer) costFunc() slsqp.Evaluation {
	c := o.codec
	return func(z, grad []float64) float64 {
		if grad != nil {
			zeroFill(grad)
		}

		var cost float64

		// Slack penalty
		for k := 0; k < NumSlack; k++ {
			cost += o.cfg.SlackWeight * z[c.slackIndex(k)]
			if grad != nil {
				grad[c.slackIndex(k)] += o.cfg.SlackWeight
			}
		}

		// Tracking cost 0.5·δᵀQδ at every grid index
		for i := 0; i < c.NGrid(); i++ {
			for fi := 0; fi < finger.NumFingers; fi++ {
				q := o.fingerJoints(z, i, fi)
				fing := o.hand.Finger(fi)
				tip := fing.TipPosition(q)

				var delta [3]float64
				for d := 0; d < 3; d++ {
					delta[d] = o.param.goal[3*fi+d] - tip.AtVec(d)
					cost += 0.5 * o.cfg.TrackWeight * delta[d] * delta[d]
				}
				if grad != nil {
					jac := fing.Jacobian(q)
					for j := 0; j < finger.NumJoints; j++ {
						var dot float64
						for d := 0; d < 3; d++ {
							dot += delta[d] * jac.At(d, j)
						}
						col := finger.NumJoints*fi + j
						grad[c.jointIndex(i, col)] -=
							o.cfg.TrackWeight * dot
					}
				}
			}
		}

		// Velocity regularization 0.5·dqᵀR·dq
		for i := 0; i < c.NGrid(); i++ {
			for j := 0; j < finger.NumDOF; j++ {
				dq := z[c.velIndex(i, j)]
				cost += 0.5 * o.cfg.VelocityWeight * dq * dq
				if grad != nil {
					grad[c.velIndex(i, j)] += o.cfg.VelocityWeight * dq
				}
			}
		}

		if o.cfg.CollisionWeight > 0 {
			cost += o.collisionPenalty(z, grad)
		}

		return cost
	}
}

// collisionPenalty sums the logistic smooth-max penalty over the penalty
// links' spheres at every grid index, accumulating its gradient into grad
// when non-nil. With d = threshold - pnorm the penalty per sphere is
//
//	w · d·e^(αd) / (1 + e^(αd))
//
// which vanishes smoothly once the sphere is clear of the object.
func (o *Optimizer) collisionPenalty(z, grad []float64) float64 {
	alpha := o.cfg.CollisionAlpha
	weight := o.cfg.CollisionWeight

	var cost float64
	for i := 0; i < o.codec.NGrid(); i++ {
		for fi := 0; fi < finger.NumFingers; fi++ {
			q := o.fingerJoints(z, i, fi)
			for _, sphere := range o.hand.Finger(fi).Spheres(q, penaltyLinks) {
				var pgrad []float64
				if grad != nil {
					pgrad = make([]float64, 3)
				}
				pnorm := PNormOfPoint(sphere.Center, o.param.obj,
					o.cfg.ObjShape, pgrad)

				d := o.cfg.PNormThreshold - pnorm
				sig := 1 / (1 + math.Exp(-alpha*d))
				cost += weight * d * sig

				if grad != nil {
					// d(d·σ(αd))/dd, then dd/dpnorm = -1
					dPenalty := sig * (1 + d*alpha*(1-sig))
					o.chainSphereGrad(grad, i, fi, sphere, pgrad,
						-weight*dPenalty)
				}
			}
		}
	}
	return cost
}
