package main

import (
	"fmt"

	"github.com/iprl-lab/gotrifinger/goals"
	"github.com/iprl-lab/gotrifinger/trajopt"
	"github.com/iprl-lab/gotrifinger/utils/matutils"
	"github.com/iprl-lab/gotrifinger/utils/progressbar"
	"gonum.org/v1/gonum/mat"
)

func main() {
	var seed uint64 = 1923812121431427

	cfg := trajopt.NewConfig(20, 0.1, goals.CubeShape)
	cfg.CollisionWeight = 1.0

	opt, err := trajopt.New(cfg)
	if err != nil {
		panic(err)
	}

	sampler := goals.NewSampler(seed)

	// Rest configuration of the hand
	q0 := mat.NewVecDense(9, []float64{
		0.0, 0.9, -1.7,
		0.0, 0.9, -1.7,
		0.0, 0.9, -1.7,
	})
	dq0 := mat.NewVecDense(9, nil)

	numInstances := 10
	bar := progressbar.New(25, numInstances)
	bar.Display()

	var converged int
	solutions := make([]*trajopt.Solution, numInstances)
	requests := make([]trajopt.Request, numInstances)
	for i := 0; i < numInstances; i++ {
		obj := sampler.ObjectPose()
		if err := goals.Valid(obj); err != nil {
			panic(err)
		}

		req := trajopt.Request{
			Goal:    sampler.FingertipGoals(obj),
			Q0:      q0,
			ObjPose: obj,
			Dq0:     dq0,
		}

		sol, err := opt.Solve(req)
		if err != nil {
			panic(err)
		}
		if sol.Status.Converged() {
			converged++
		}
		solutions[i] = sol
		requests[i] = req

		bar.Increment()
		bar.Display()
	}
	fmt.Println()

	fmt.Printf("\nConverged on %v of %v instances\n\n", converged,
		numInstances)
	for i, sol := range solutions {
		errs := sol.FinalTipError(requests[i].Goal)
		fmt.Printf("Instance %v: %v\n\tcost: %.4f\n\ttip errors (m): "+
			"%.4f  %.4f  %.4f\n", i, sol.Status, sol.Cost,
			errs.AtVec(0), errs.AtVec(1), errs.AtVec(2))
	}

	for i, sol := range solutions {
		if !sol.Status.Converged() {
			continue
		}
		last := sol.NGrid - 1
		tips := mat.NewDense(3, 3, sol.TipPositions.RawRowView(last))
		fmt.Printf("\nTerminal fingertip positions of instance %v "+
			"(one finger per row):\n%v\n", i, matutils.Format(tips))
		break
	}
}
