package trajopt

import (
	"math"
	"testing"

	"github.com/iprl-lab/gotrifinger/finger"
	"github.com/iprl-lab/gotrifinger/pose"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// testShape is the cube the solves in this package are set up against
var testShape = [3]float64{0.065, 0.065, 0.065}

// restQ returns the bent rest configuration used as the start of every
// test solve. Its fingertips sit inside the arena and above the floor.
func restQ() *mat.VecDense {
	return mat.NewVecDense(finger.NumDOF, []float64{
		0.0, 0.9, -1.7,
		0.0, 0.9, -1.7,
		0.0, 0.9, -1.7,
	})
}

// identityQuat returns the no-rotation orientation
func identityQuat() quat.Number {
	return quat.Number{Real: 1}
}

func newTestOptimizer(t *testing.T, cfg Config) *Optimizer {
	t.Helper()
	o, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestNewRejectsBadConfig(t *testing.T) {
	bad := []Config{
		NewConfig(1, 0.1, testShape),
		NewConfig(5, 0, testShape),
		NewConfig(5, 0.1, [3]float64{0.065, 0, 0.065}),
	}
	for i, cfg := range bad {
		if _, err := New(cfg); err == nil {
			t.Errorf("expected an error for bad configuration %v", i)
		}
	}
}

func TestSolveRejectsBadRequest(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(5, 0.1, testShape))
	obj := pose.New(0.1, -0.05, testShape[2]/2, identityQuat())

	bad := []Request{
		{Q0: restQ(), ObjPose: obj},
		{Goal: mat.NewVecDense(3, nil), Q0: restQ(), ObjPose: obj},
		{Goal: mat.NewVecDense(9, nil), ObjPose: obj},
		{Goal: mat.NewVecDense(9, nil), Q0: restQ()},
		{
			Goal:    mat.NewVecDense(9, nil),
			Q0:      restQ(),
			ObjPose: obj,
			Dq0:     mat.NewVecDense(3, nil),
		},
	}
	for i, req := range bad {
		if _, err := o.Solve(req); err == nil {
			t.Errorf("expected an error for bad request %v", i)
		}
	}
}

// TestSolveReachableGoal solves for goals placed exactly at the rest
// fingertips: the initial guess is already optimal, so the solver must
// converge and report near-zero slack and tracking error.
func TestSolveReachableGoal(t *testing.T) {
	cfg := NewConfig(12, 0.1, testShape)
	o := newTestOptimizer(t, cfg)

	goal := o.Hand().TipPositions(restQ())
	sol, err := o.Solve(Request{
		Goal:    goal,
		Q0:      restQ(),
		ObjPose: pose.New(0.1, -0.05, testShape[2]/2, identityQuat()),
		Dq0:     mat.NewVecDense(finger.NumDOF, nil),
	})
	if err != nil {
		t.Fatal(err)
	}

	if !sol.Status.Converged() {
		t.Fatalf("solve did not converge: %v", sol.Status)
	}

	if r, c := sol.Q.Dims(); r != cfg.NGrid || c != finger.NumDOF {
		t.Fatalf("joint trajectory is %v×%v, want %v×%v", r, c, cfg.NGrid,
			finger.NumDOF)
	}
	if sol.Time.Len() != cfg.NGrid {
		t.Fatalf("time vector has %v entries, want %v", sol.Time.Len(),
			cfg.NGrid)
	}

	errs := sol.FinalTipError(goal)
	for fi := 0; fi < finger.NumFingers; fi++ {
		if errs.AtVec(fi) > 1e-2 {
			t.Errorf("finger %v terminal error %v m exceeds 1 cm", fi,
				errs.AtVec(fi))
		}
	}
	for k := 0; k < NumSlack; k++ {
		if sol.Slack.AtVec(k) < 0 || sol.Slack.AtVec(k) > 1e-3 {
			t.Errorf("slack[%v] = %v, want near zero", k, sol.Slack.AtVec(k))
		}
	}
	if math.Abs(sol.Time.AtVec(cfg.NGrid-1)-cfg.FinalTime()) > 1e-9 {
		t.Errorf("final time %v, want %v", sol.Time.AtVec(cfg.NGrid-1),
			cfg.FinalTime())
	}
	if sol.NGrid != cfg.NGrid || sol.Dt != cfg.Dt {
		t.Errorf("solution echoes grid %v/%v, want %v/%v", sol.NGrid,
			sol.Dt, cfg.NGrid, cfg.Dt)
	}
}

// TestSolveUnreachableGoal asks for goals far outside the workspace. The
// slack mechanism keeps the problem feasible, so Solve must still return
// a decoded solution where the slack upper-bounds the terminal squared
// error while the collocation and arena constraints hold at the returned
// point: the unreachable residual is absorbed entirely by slack growth.
func TestSolveUnreachableGoal(t *testing.T) {
	const feasTol = 1e-3

	o := newTestOptimizer(t, NewConfig(12, 0.1, testShape))
	c := o.Codec()

	goal := mat.NewVecDense(9, []float64{
		0.5, 0.5, 0.5,
		-0.5, 0.5, 0.5,
		0.5, -0.5, 0.5,
	})
	sol, err := o.Solve(Request{
		Goal:    goal,
		Q0:      restQ(),
		ObjPose: pose.New(0.1, -0.05, testShape[2]/2, identityQuat()),
	})
	if err != nil {
		t.Fatal(err)
	}

	if math.IsNaN(sol.Cost) || math.IsInf(sol.Cost, 0) {
		t.Errorf("cost is not finite: %v", sol.Cost)
	}

	// Slack feasibility: slack[f,d] >= (goal - terminal tip)² for every
	// finger and axis, and the unreachable goal must have inflated it.
	tips := o.Hand().TipPositions(sol.Q.RowView(c.NGrid() - 1))
	var maxSlack float64
	for k := 0; k < NumSlack; k++ {
		slack := sol.Slack.AtVec(k)
		if slack < -1e-9 {
			t.Errorf("slack[%v] = %v, want non-negative", k, slack)
		}
		delta := goal.AtVec(k) - tips.AtVec(k)
		if slack < delta*delta-feasTol {
			t.Errorf("slack[%v] = %v below the squared terminal error %v",
				k, slack, delta*delta)
		}
		maxSlack = math.Max(maxSlack, slack)
	}
	if maxSlack < 0.01 {
		t.Errorf("largest slack %v, want substantial growth for an "+
			"unreachable goal", maxSlack)
	}

	// The remaining constraint families must hold at the returned point
	z := c.Pack(sol.Time.RawVector().Data,
		c.PackState(sol.Q, sol.Dq), sol.Slack.RawVector().Data)
	eq, neq := o.set.split()
	for k, f := range eq {
		if defect := f(z, nil); math.Abs(defect) > feasTol {
			t.Errorf("collocation defect %v = %v at the solution", k,
				defect)
		}
	}
	for k := NumSlack; k < len(neq); k++ {
		if v := neq[k](z, nil); v < -feasTol {
			t.Errorf("arena constraint %v = %v at the solution, want "+
				"non-negative", k-NumSlack, v)
		}
	}
}

// TestSolveReusable runs two solves on one optimizer and checks the
// second is unaffected by the first.
func TestSolveReusable(t *testing.T) {
	o := newTestOptimizer(t, NewConfig(12, 0.1, testShape))
	obj := pose.New(0.1, -0.05, testShape[2]/2, identityQuat())
	goal := o.Hand().TipPositions(restQ())

	first, err := o.Solve(Request{Goal: goal, Q0: restQ(), ObjPose: obj})
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.Solve(Request{Goal: goal, Q0: restQ(), ObjPose: obj})
	if err != nil {
		t.Fatal(err)
	}

	if first.Status.Converged() != second.Status.Converged() {
		t.Errorf("repeated solve changed convergence: %v then %v",
			first.Status, second.Status)
	}
	if math.Abs(first.Cost-second.Cost) > 1e-8 {
		t.Errorf("repeated solve changed the cost: %v then %v", first.Cost,
			second.Cost)
	}
}

func TestStatusString(t *testing.T) {
	s := Status{Code: 0, Iterations: 7}
	if !s.Converged() {
		t.Error("status code 0 must report convergence")
	}
	if got := s.String(); got == "" {
		t.Error("status string must not be empty")
	}

	unknown := Status{Code: 255}
	if unknown.Converged() {
		t.Error("unknown status must not report convergence")
	}
	if got := unknown.String(); got == "" {
		t.Error("unknown status string must not be empty")
	}
}
