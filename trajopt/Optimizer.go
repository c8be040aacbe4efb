// Package trajopt implements direct-collocation trajectory optimization
// for fingertip reaching on the TriFinger hand. A finite grid of joint
// states, joined by trapezoidal collocation constraints, is optimized by
// an external SLSQP solver to bring the fingertips to world-frame goal
// positions while respecting joint limits, velocity limits, the arena
// boundary, and (optionally) collision with a static object.
//
// The problem structure (decision-variable layout, constraint and cost
// closures with their analytic gradients) is built once per grid and
// object shape; each solve supplies fresh goal and object-pose parameter
// values, bounds, and an initial guess. A single Optimizer is safe for
// sequential solves only; concurrent solves need one instance each.
package trajopt

import (
	"fmt"

	"github.com/curioloop/optimizer/slsqp"
	"github.com/iprl-lab/gotrifinger/finger"
	"github.com/iprl-lab/gotrifinger/pose"
	"gonum.org/v1/gonum/mat"
)

// Status describes how one solve terminated. Code is the solver's raw
// mode; a solve converged only when Converged() reports true, and
// consumers must gate on that before trusting the decoded trajectories.
type Status struct {
	Code       int
	Iterations int
}

// statusNames maps solver modes to short descriptions
var statusNames = map[int]string{
	int(slsqp.OK):                "converged",
	int(slsqp.HasSolution):       "subproblem solved without convergence",
	int(slsqp.BadArgument):       "evaluation failure or bad argument",
	int(slsqp.NNLSExceedMaxIter): "NNLS iteration limit exceeded",
	int(slsqp.ConsIncompatible):  "incompatible inequality constraints",
	int(slsqp.LSISingularE):      "singular matrix E in LSI subproblem",
	int(slsqp.LSEISingularC):     "singular matrix C in LSEI subproblem",
	int(slsqp.HFTIRankDefect):    "rank-deficient equality constraint",
	int(slsqp.SearchNotDescent):  "line search found no descent direction",
	int(slsqp.SQPExceedMaxIter):  "iteration limit exceeded",
}

// Converged reports whether the solver satisfied its convergence criteria
func (s Status) Converged() bool {
	return s.Code == int(slsqp.OK)
}

// String implements the fmt.Stringer interface
func (s Status) String() string {
	name, ok := statusNames[s.Code]
	if !ok {
		name = fmt.Sprintf("unknown solver mode %v", s.Code)
	}
	return fmt.Sprintf("%v after %v iterations", name, s.Iterations)
}

// Request holds the per-solve inputs. Goal and Q0 are required 9-vectors
// (finger-major); Dq0 and DqEnd optionally pin the boundary joint
// velocities when non-nil.
type Request struct {
	Goal    *mat.VecDense // fingertip goals, xyz per finger
	Q0      *mat.VecDense // initial joint configuration
	ObjPose pose.Pose
	Dq0     *mat.VecDense
	DqEnd   *mat.VecDense
}

// params is the runtime parameter block the constraint and cost closures
// read. Refreshing it between solves changes the numeric problem without
// touching its structure.
type params struct {
	goal [3 * finger.NumFingers]float64
	obj  pose.Pose
}

// Optimizer is one reusable trajectory-optimization problem instance. It
// exclusively owns the constraint and cost closures and the codec's
// indexing scheme; solutions handed to callers carry no reference back to
// it.
type Optimizer struct {
	cfg   Config
	codec *Codec
	hand  *finger.Hand
	param params

	set     *constraintSet
	problem slsqp.Problem
	work    *slsqp.Workspace
}

// New constructs the problem for the given configuration: decision
// variables, constraint records in their fixed order, the cost closure,
// and the solver workspace. The returned Optimizer is reused across
// solves.
func New(cfg Config) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	o := &Optimizer{
		cfg:   cfg,
		codec: NewCodec(cfg.NGrid),
		hand:  finger.NewHand(),
	}
	o.param.obj = pose.Identity()

	o.set = o.assembleConstraints()
	eq, neq := o.set.split()

	o.problem = slsqp.Problem{
		N:       o.codec.Len(),
		Object:  o.costFunc(),
		EqCons:  eq,
		NeqCons: neq,
		Stop: slsqp.Termination{
			Accuracy:      cfg.Tolerance,
			MaxIterations: cfg.MaxIterations,
		},
	}

	// Build once with free bounds to validate the problem shape and size
	// the reusable workspace; Solve swaps in the per-request bounds.
	opt, err := o.problem.New()
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	o.work = opt.Init()

	return o, nil
}

// Config returns the configuration the problem was built with
func (o *Optimizer) Config() Config {
	return o.cfg
}

// Codec returns the decision-vector codec of the problem
func (o *Optimizer) Codec() *Codec {
	return o.codec
}

// Hand returns the kinematic hand model shared by the constraints and
// costs.
func (o *Optimizer) Hand() *finger.Hand {
	return o.hand
}

// validate rejects malformed per-solve inputs before any problem state
// is touched.
func (r Request) validate() error {
	if r.Goal == nil || r.Goal.Len() != 3*finger.NumFingers {
		return fmt.Errorf("goal must have %v entries", 3*finger.NumFingers)
	}
	if r.Q0 == nil || r.Q0.Len() != finger.NumDOF {
		return fmt.Errorf("q0 must have %v entries", finger.NumDOF)
	}
	if r.Dq0 != nil && r.Dq0.Len() != finger.NumDOF {
		return fmt.Errorf("dq0 must have %v entries", finger.NumDOF)
	}
	if r.DqEnd != nil && r.DqEnd.Len() != finger.NumDOF {
		return fmt.Errorf("dqEnd must have %v entries", finger.NumDOF)
	}
	if r.ObjPose.Position == nil {
		return fmt.Errorf("object pose is required")
	}
	return nil
}

// Solve runs one optimization: it refreshes the goal and object-pose
// parameters, generates bounds and the initial guess from the request,
// invokes the solver, and decodes the result. The returned solution
// always carries the solver's status; a non-converged status is reported,
// never papered over with a best-effort point.
func (o *Optimizer) Solve(req Request) (*Solution, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("solve: %v", err)
	}

	for k := 0; k < len(o.param.goal); k++ {
		o.param.goal[k] = req.Goal.AtVec(k)
	}
	o.param.obj = req.ObjPose

	z0 := o.InitialGuess(req.Q0)
	// Convert the optional pointers explicitly so a nil *mat.VecDense does
	// not become a non-nil mat.Vector interface inside Bounds.
	var dq0, dqEnd mat.Vector
	if req.Dq0 != nil {
		dq0 = req.Dq0
	}
	if req.DqEnd != nil {
		dqEnd = req.DqEnd
	}
	lb, ub := o.Bounds(req.Q0, dq0, dqEnd)

	bounds := make([]slsqp.Bound, o.codec.Len())
	for i := range bounds {
		bounds[i] = slsqp.Bound{Lower: lb[i], Upper: ub[i]}
	}
	o.problem.Bounds = bounds

	opt, err := o.problem.New()
	if err != nil {
		return nil, fmt.Errorf("solve: %v", err)
	}

	res := opt.Fit(z0, o.work)
	sol := o.decode(res)

	if o.cfg.Verbose {
		fmt.Printf("solve: %v  |  cost: %v\n", sol.Status, sol.Cost)
	}
	return sol, nil
}
