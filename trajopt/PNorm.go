package trajopt

import (
	"fmt"
	"math"

	"github.com/iprl-lab/gotrifinger/pose"
	"gonum.org/v1/gonum/mat"
)

// PNormOfPoint maps a world-frame point into the object's unit-cube
// normalized frame and returns the p-norm of the result, a smooth proxy
// for the box signed distance: values near or below 1 mean the point is
// inside the object's bounding box. If grad is non-nil it must have
// length 3 and is overwritten with the derivative of the p-norm with
// respect to the world point.
//
// The normalized coordinate along each axis is (2·p + s)/s - 1 for local
// coordinate p and box extent s, and the exponent is PNormExponent.
func PNormOfPoint(point mat.Vector, obj pose.Pose, shape [3]float64,
	grad []float64) float64 {
	if grad != nil && len(grad) != 3 {
		panic(fmt.Sprintf("pNormOfPoint: illegal gradient length "+
			"\n\twant(3) \n\thave(%v)", len(grad)))
	}

	local := obj.ToLocal(point)

	var u [3]float64
	for i := 0; i < 3; i++ {
		u[i] = (2*local.AtVec(i)+shape[i])/shape[i] - 1
	}

	// Factor out the largest component so |u|^p stays finite for points
	// far outside the box.
	scale := math.Max(math.Abs(u[0]),
		math.Max(math.Abs(u[1]), math.Abs(u[2])))
	if scale == 0 {
		if grad != nil {
			grad[0], grad[1], grad[2] = 0, 0, 0
		}
		return 0
	}

	p := PNormExponent
	var sum float64
	for i := 0; i < 3; i++ {
		sum += math.Pow(math.Abs(u[i])/scale, p)
	}
	pnorm := scale * math.Pow(sum, 1/p)

	if grad != nil {
		// d pnorm / d u_i, then chain through the normalization and the
		// world-to-object rotation.
		gradLocal := mat.NewVecDense(3, nil)
		outer := math.Pow(sum, 1/p-1)
		for i := 0; i < 3; i++ {
			du := math.Copysign(1, u[i]) *
				math.Pow(math.Abs(u[i])/scale, p-1) * outer
			gradLocal.SetVec(i, du*2/shape[i])
		}

		gradWorld := mat.NewVecDense(3, nil)
		gradWorld.MulVec(pose.RotationMatrix(obj.Orientation), gradLocal)
		for i := 0; i < 3; i++ {
			grad[i] = gradWorld.AtVec(i)
		}
	}
	return pnorm
}
