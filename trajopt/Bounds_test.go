package trajopt

import (
	"math"
	"testing"

	"github.com/iprl-lab/gotrifinger/finger"
	"gonum.org/v1/gonum/mat"
)

func TestInitialGuessLayout(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(5, 0.1, testShape))
	c := o.Codec()

	z := o.InitialGuess(restQ())
	if len(z) != c.Len() {
		t.Fatalf("initial guess has %v entries, want %v", len(z), c.Len())
	}

	for i := 0; i < c.NGrid(); i++ {
		want := 0.1 * float64(i)
		if math.Abs(z[c.timeIndex(i)]-want) > 1e-12 {
			t.Errorf("time[%v] = %v, want %v", i, z[c.timeIndex(i)], want)
		}
		for j := 0; j < finger.NumDOF; j++ {
			if z[c.jointIndex(i, j)] != restQ().AtVec(j) {
				t.Errorf("joint(%v, %v) = %v, want the start configuration",
					i, j, z[c.jointIndex(i, j)])
			}
			if z[c.velIndex(i, j)] != 0 {
				t.Errorf("velocity(%v, %v) = %v, want 0", i, j,
					z[c.velIndex(i, j)])
			}
		}
	}
	for k := 0; k < NumSlack; k++ {
		if z[c.slackIndex(k)] != 0 {
			t.Errorf("slack[%v] = %v, want 0", k, z[c.slackIndex(k)])
		}
	}
}

// TestInitialGuessClipsOutOfRangeStart starts from a configuration with
// one joint beyond its limit: the pinned first row must keep it while
// every later row is clipped back into the joint range.
func TestInitialGuessClipsOutOfRangeStart(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(5, 0.1, testShape))
	c := o.Codec()

	q0 := restQ()
	q0.SetVec(2, 0.5) // hinge joint range tops out at 0

	z := o.InitialGuess(q0)
	if z[c.jointIndex(0, 2)] != 0.5 {
		t.Errorf("pinned first row altered: got %v, want 0.5",
			z[c.jointIndex(0, 2)])
	}
	limit := JointRange(2).Max
	for i := 1; i < c.NGrid(); i++ {
		if z[c.jointIndex(i, 2)] != limit {
			t.Errorf("row %v joint 2 = %v, want clipped to %v", i,
				z[c.jointIndex(i, 2)], limit)
		}
	}
}

func TestBoundsOrdering(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(12, 0.1, testShape))
	lb, ub := o.Bounds(restQ(), nil, nil)

	for i := range lb {
		if lb[i] > ub[i] {
			t.Errorf("lower bound %v exceeds upper bound at %v: [%v, %v]",
				lb[i], i, lb[i], ub[i])
		}
	}
}

func TestBoundsPinTimeAndStart(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(5, 0.1, testShape))
	c := o.Codec()
	lb, ub := o.Bounds(restQ(), nil, nil)

	for i := 0; i < c.NGrid(); i++ {
		if lb[c.timeIndex(i)] != ub[c.timeIndex(i)] {
			t.Errorf("time[%v] not pinned: [%v, %v]", i, lb[c.timeIndex(i)],
				ub[c.timeIndex(i)])
		}
	}
	for j := 0; j < finger.NumDOF; j++ {
		if lb[c.jointIndex(0, j)] != restQ().AtVec(j) ||
			ub[c.jointIndex(0, j)] != restQ().AtVec(j) {
			t.Errorf("start joint %v not pinned to the start configuration",
				j)
		}
	}
}

func TestBoundsJointAndVelocityRanges(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(5, 0.1, testShape))
	c := o.Codec()
	lb, ub := o.Bounds(restQ(), nil, nil)

	for i := 1; i < c.NGrid(); i++ {
		for j := 0; j < finger.NumDOF; j++ {
			rng := JointRange(j % finger.NumJoints)
			if lb[c.jointIndex(i, j)] != rng.Min ||
				ub[c.jointIndex(i, j)] != rng.Max {
				t.Errorf("joint(%v, %v) bounds [%v, %v], want [%v, %v]",
					i, j, lb[c.jointIndex(i, j)], ub[c.jointIndex(i, j)],
					rng.Min, rng.Max)
			}
			if lb[c.velIndex(i, j)] != -2.0 || ub[c.velIndex(i, j)] != 2.0 {
				t.Errorf("velocity(%v, %v) bounds [%v, %v], want [-2, 2]",
					i, j, lb[c.velIndex(i, j)], ub[c.velIndex(i, j)])
			}
		}
	}
}

func TestBoundsPinBoundaryVelocities(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(5, 0.1, testShape))
	c := o.Codec()

	dq0 := mat.NewVecDense(finger.NumDOF, nil)
	dqEnd := mat.NewVecDense(finger.NumDOF, nil)
	for j := 0; j < finger.NumDOF; j++ {
		dq0.SetVec(j, 0.1*float64(j))
		dqEnd.SetVec(j, -0.1*float64(j))
	}

	lb, ub := o.Bounds(restQ(), dq0, dqEnd)
	last := c.NGrid() - 1
	for j := 0; j < finger.NumDOF; j++ {
		if lb[c.velIndex(0, j)] != dq0.AtVec(j) ||
			ub[c.velIndex(0, j)] != dq0.AtVec(j) {
			t.Errorf("start velocity %v not pinned", j)
		}
		if lb[c.velIndex(last, j)] != dqEnd.AtVec(j) ||
			ub[c.velIndex(last, j)] != dqEnd.AtVec(j) {
			t.Errorf("final velocity %v not pinned", j)
		}
	}
}

func TestBoundsSlackNonNegative(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(5, 0.1, testShape))
	c := o.Codec()
	lb, ub := o.Bounds(restQ(), nil, nil)

	for k := 0; k < NumSlack; k++ {
		if lb[c.slackIndex(k)] != 0 || !math.IsInf(ub[c.slackIndex(k)], 1) {
			t.Errorf("slack[%v] bounds [%v, %v], want [0, +inf)", k,
				lb[c.slackIndex(k)], ub[c.slackIndex(k)])
		}
	}
}
