package trajopt

import (
	"fmt"

	"github.com/iprl-lab/gotrifinger/finger"
	"gonum.org/v1/gonum/mat"
)

// NumSlack is the number of terminal goal-error slack variables: one per
// finger per spatial axis.
const NumSlack int = 3 * finger.NumFingers

// Codec maps between the flat decision vector the solver works on and its
// semantic blocks. The decision vector is the concatenation
//
//	z = [ t(nGrid) | state(2·nGrid·9) | slack(9) ]
//
// where the state block holds the joint positions of every grid index
// (row-major by time, finger-major within a row) followed by the joint
// velocities in the same layout. All offsets are derived from nGrid and
// the hand dimensions; nothing else in the package hard-codes them.
type Codec struct {
	nGrid int
	dim   int // joints on the hand
}

// NewCodec returns the codec for a grid with nGrid timesteps
func NewCodec(nGrid int) *Codec {
	if nGrid < 2 {
		panic(fmt.Sprintf("newCodec: nGrid must be at least 2, got %v", nGrid))
	}
	return &Codec{nGrid: nGrid, dim: finger.NumDOF}
}

// NGrid returns the number of timesteps on the grid
func (c *Codec) NGrid() int {
	return c.nGrid
}

// StateLen returns the length of the flat state block
func (c *Codec) StateLen() int {
	return 2 * c.nGrid * c.dim
}

// Len returns the length of the full decision vector
func (c *Codec) Len() int {
	return c.nGrid + c.StateLen() + NumSlack
}

// Index helpers. All other components locate decision variables through
// these, so the flat layout is defined in exactly one place.

func (c *Codec) timeIndex(i int) int {
	return i
}

func (c *Codec) jointIndex(i, j int) int {
	return c.nGrid + i*c.dim + j
}

func (c *Codec) velIndex(i, j int) int {
	return c.nGrid + c.nGrid*c.dim + i*c.dim + j
}

func (c *Codec) slackIndex(k int) int {
	return c.nGrid + c.StateLen() + k
}

// checkLen panics unless the slice has the wanted length. Wrong lengths
// are programming errors, never runtime conditions.
func checkLen(name string, have []float64, want int) {
	if len(have) != want {
		panic(fmt.Sprintf("%v: illegal vector length \n\twant(%v) "+
			"\n\thave(%v)", name, want, len(have)))
	}
}

// Pack concatenates the time, flat state, and slack blocks into a fresh
// decision vector.
func (c *Codec) Pack(t, state, slack []float64) []float64 {
	checkLen("pack: time", t, c.nGrid)
	checkLen("pack: state", state, c.StateLen())
	checkLen("pack: slack", slack, NumSlack)

	z := make([]float64, 0, c.Len())
	z = append(z, t...)
	z = append(z, state...)
	z = append(z, slack...)
	return z
}

// Unpack splits a decision vector into copies of its time, flat state, and
// slack blocks.
func (c *Codec) Unpack(z []float64) (t, state, slack []float64) {
	checkLen("unpack: decision vector", z, c.Len())

	t = append([]float64(nil), z[:c.nGrid]...)
	state = append([]float64(nil), z[c.nGrid:c.nGrid+c.StateLen()]...)
	slack = append([]float64(nil), z[c.nGrid+c.StateLen():]...)
	return t, state, slack
}

// PackState flattens joint-position and joint-velocity trajectories into
// the state block layout. Both matrices are nGrid×9, one row per timestep.
func (c *Codec) PackState(q, dq *mat.Dense) []float64 {
	c.checkTrajectory("packState: q", q)
	c.checkTrajectory("packState: dq", dq)

	state := make([]float64, 0, c.StateLen())
	for i := 0; i < c.nGrid; i++ {
		state = append(state, q.RawRowView(i)...)
	}
	for i := 0; i < c.nGrid; i++ {
		state = append(state, dq.RawRowView(i)...)
	}
	return state
}

// UnpackState rebuilds the nGrid×9 joint-position and joint-velocity
// trajectories from a flat state block.
func (c *Codec) UnpackState(state []float64) (q, dq *mat.Dense) {
	checkLen("unpackState: state", state, c.StateLen())

	half := c.nGrid * c.dim
	q = mat.NewDense(c.nGrid, c.dim, append([]float64(nil), state[:half]...))
	dq = mat.NewDense(c.nGrid, c.dim, append([]float64(nil), state[half:]...))
	return q, dq
}

func (c *Codec) checkTrajectory(name string, m *mat.Dense) {
	r, cols := m.Dims()
	if r != c.nGrid || cols != c.dim {
		panic(fmt.Sprintf("%v: illegal trajectory shape \n\twant(%v×%v) "+
			"\n\thave(%v×%v)", name, c.nGrid, c.dim, r, cols))
	}
}
