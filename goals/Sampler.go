// Package goals generates randomized task instances for the trajectory
// optimizer: object poses on the arena floor and fingertip goal
// positions on the object's surface. Sampling is deterministic for a
// fixed seed.
package goals

import (
	"fmt"
	"math"

	"github.com/iprl-lab/gotrifinger/finger"
	"github.com/iprl-lab/gotrifinger/pose"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// ArenaRadius is the radius of the arena floor (metres)
	ArenaRadius float64 = 0.195

	// CubeWidth is the edge length of the manipulated cube (metres)
	CubeWidth float64 = 0.065
)

// cubeRadius3D is the circumscribed-sphere radius of the cube, the
// farthest any point of the cube can lie from its centre.
var cubeRadius3D = CubeWidth * math.Sqrt(3) / 2

// MaxComDistance is the farthest the cube's centre may lie from the
// arena centre while the whole cube stays inside the arena.
var MaxComDistance = ArenaRadius - cubeRadius3D

// CubeShape is the cube's axis-aligned extent, ready to hand to the
// optimizer configuration.
var CubeShape = [3]float64{CubeWidth, CubeWidth, CubeWidth}

// Sampler draws random object poses and fingertip goals. It is not safe
// for concurrent use; create one per goroutine.
type Sampler struct {
	unit distuv.Uniform // U[0, 1)
	sym  distuv.Uniform // U[-1, 1)
}

// NewSampler returns a sampler seeded with seed
func NewSampler(seed uint64) *Sampler {
	src := rand.NewSource(seed)
	return &Sampler{
		unit: distuv.Uniform{Min: 0, Max: 1, Src: src},
		sym:  distuv.Uniform{Min: -1, Max: 1, Src: src},
	}
}

// ObjectPose samples a cube pose resting on the arena floor: the centre
// is uniform over the disk of radius MaxComDistance (area-uniform, hence
// the square root on the radial draw), the height puts the cube on the
// floor, and the orientation is a uniform rotation about the vertical
// axis.
func (s *Sampler) ObjectPose() pose.Pose {
	radius := MaxComDistance * math.Sqrt(s.unit.Rand())
	angle := 2 * math.Pi * s.unit.Rand()
	x := radius * math.Cos(angle)
	y := radius * math.Sin(angle)

	yaw := math.Pi * s.sym.Rand()
	sin, cos := math.Sincos(yaw / 2)

	return pose.Pose{
		Position:    mat.NewVecDense(3, []float64{x, y, CubeWidth / 2}),
		Orientation: quat.Number{Real: cos, Kmag: sin},
	}
}

// FingertipGoals returns a 9-vector of world-frame fingertip goals for
// the given object pose, one xyz triple per finger. Each finger is
// assigned the point on the cube's circumscribed cylinder that faces the
// finger's base, at the object's mid height, with a small uniform jitter
// so repeated instances do not collapse onto identical contacts.
func (s *Sampler) FingertipGoals(obj pose.Pose) *mat.VecDense {
	const jitter = 0.005

	goals := mat.NewVecDense(3*finger.NumFingers, nil)
	for fi := 0; fi < finger.NumFingers; fi++ {
		theta := finger.BaseAngles[fi] * math.Pi / 180
		dir := [3]float64{-math.Sin(theta), math.Cos(theta), 0}

		for d := 0; d < 3; d++ {
			g := obj.Position.AtVec(d) + CubeWidth/2*dir[d] +
				jitter*s.sym.Rand()
			goals.SetVec(3*fi+d, g)
		}
	}
	return goals
}

// Valid reports whether an object pose is a legal task instance: the
// cube must rest on the floor and lie entirely inside the arena.
func Valid(p pose.Pose) error {
	if p.Position == nil || p.Position.Len() != 3 {
		return fmt.Errorf("pose must have a 3-entry position")
	}

	x, y, z := p.Position.AtVec(0), p.Position.AtVec(1), p.Position.AtVec(2)
	if norm := quat.Abs(p.Orientation); math.Abs(norm-1) > 1e-6 {
		return fmt.Errorf("orientation norm %v is not a unit quaternion",
			norm)
	}
	if r := math.Hypot(x, y); r > MaxComDistance {
		return fmt.Errorf("object centre %v m from arena centre exceeds "+
			"the maximum %v m", r, MaxComDistance)
	}
	if z < CubeWidth/2 {
		return fmt.Errorf("object centre height %v m puts the cube below "+
			"the floor", z)
	}
	return nil
}
