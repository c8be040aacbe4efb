package trajopt

import (
	"fmt"
)

// Default cost weights and constraint constants, tuned for the TriFinger
// reaching task.
const (
	// DefaultSlackWeight penalizes the terminal goal-error slack variables
	DefaultSlackWeight float64 = 150.0

	// DefaultTrackWeight is the diagonal entry of the tracking weight Q,
	// applied to the fingertip-to-goal error at every grid index
	DefaultTrackWeight float64 = 6.0

	// DefaultVelocityWeight is the diagonal entry of the velocity
	// regularization weight R
	DefaultVelocityWeight float64 = 0.01

	// DefaultCollisionAlpha is the sharpness of the logistic smooth-max in
	// the collision penalty
	DefaultCollisionAlpha float64 = 8.0

	// DefaultPNormThreshold is the p-norm value below which a point is
	// considered too close to the object
	DefaultPNormThreshold float64 = 1.2

	// PNormExponent is the exponent of the box-proxy p-norm. Large values
	// approximate the L∞ norm of the object's unit-normalized frame.
	PNormExponent float64 = 100.0
)

const (
	// MaxFingertipRadius is the horizontal radius (metres) fingertips must
	// stay within
	MaxFingertipRadius float64 = 0.195

	// GroundClearance is the minimum fingertip height (metres) above the
	// arena floor
	GroundClearance float64 = 0.01

	// arenaCutIn is the first grid index at which the arena constraint is
	// enforced. Earlier indices are left unconstrained to avoid
	// over-constraining the initial transient.
	arenaCutIn int = 10
)

// Default solver options
const (
	DefaultMaxIterations int     = 10000
	DefaultTolerance     float64 = 1e-4
)

// Config fully determines the structure of one trajectory-optimization
// problem. It is fixed when the problem is constructed; only the goal and
// object-pose parameters change between solves.
type Config struct {
	// NGrid is the number of timesteps on the trajectory grid
	NGrid int

	// Dt is the duration (seconds) of one grid step
	Dt float64

	// ObjShape holds the object's box extents (metres) along x, y, z
	ObjShape [3]float64

	// Cost weights. A zero CollisionWeight disables the smooth collision
	// penalty term.
	SlackWeight     float64
	TrackWeight     float64
	VelocityWeight  float64
	CollisionWeight float64

	// EnableCollisionConstraint turns on the hard sphere-outside-object
	// constraint family. Off by default; the smooth penalty is the usual
	// way to discourage contact.
	EnableCollisionConstraint bool

	// Smooth collision penalty shape
	CollisionAlpha float64
	PNormThreshold float64

	// Solver options
	MaxIterations int
	Tolerance     float64
	Verbose       bool
}

// NewConfig returns a Config for the given grid and object shape with all
// weights and solver options at their defaults.
func NewConfig(nGrid int, dt float64, objShape [3]float64) Config {
	return Config{
		NGrid:           nGrid,
		Dt:              dt,
		ObjShape:        objShape,
		SlackWeight:     DefaultSlackWeight,
		TrackWeight:     DefaultTrackWeight,
		VelocityWeight:  DefaultVelocityWeight,
		CollisionWeight: 0,
		CollisionAlpha:  DefaultCollisionAlpha,
		PNormThreshold:  DefaultPNormThreshold,
		MaxIterations:   DefaultMaxIterations,
		Tolerance:       DefaultTolerance,
	}
}

// FinalTime returns the duration of the whole trajectory
func (c Config) FinalTime() float64 {
	return c.Dt * float64(c.NGrid-1)
}

// Validate returns an error describing the first invalid configuration
// field, or nil if the configuration is usable.
func (c Config) Validate() error {
	if c.NGrid < 2 {
		return fmt.Errorf("nGrid must be at least 2, got %v", c.NGrid)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %v", c.Dt)
	}
	for i, extent := range c.ObjShape {
		if extent <= 0 {
			return fmt.Errorf("object extent %v must be positive, got %v",
				i, extent)
		}
	}
	if c.SlackWeight < 0 || c.TrackWeight < 0 || c.VelocityWeight < 0 ||
		c.CollisionWeight < 0 {
		return fmt.Errorf("cost weights must be non-negative")
	}
	if c.CollisionAlpha <= 0 {
		return fmt.Errorf("collision alpha must be positive, got %v",
			c.CollisionAlpha)
	}
	if c.PNormThreshold <= 0 {
		return fmt.Errorf("pnorm threshold must be positive, got %v",
			c.PNormThreshold)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %v",
			c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %v", c.Tolerance)
	}
	return nil
}

// arenaStart returns the first grid index at which the arena constraint
// applies, clamped so short grids still constrain their final step.
func (c Config) arenaStart() int {
	if arenaCutIn >= c.NGrid {
		return c.NGrid - 1
	}
	return arenaCutIn
}
