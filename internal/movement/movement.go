// Package movement produces the roaming headings midges follow when they are
// not chasing a host.
package movement

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/stepien-lab/MidgePy/internal/domain"
)

// UniformInterval is how many steps a uniform-random heading is kept.
const UniformInterval = 30

// Strategy picks a unit heading for an agent at pos.
type Strategy interface {
	// Interval is the number of steps between heading refreshes.
	Interval() int
	// Heading returns a unit vector, or the zero vector when the chosen
	// target coincides with pos.
	Heading(pos r2.Vec, rng *rand.Rand) r2.Vec
}

// Refresh writes a new heading for every position into dst.
func Refresh(s Strategy, dst, positions []r2.Vec, rng *rand.Rand) {
	for i, pos := range positions {
		dst[i] = s.Heading(pos, rng)
	}
}

// Due reports whether headings should be refreshed at step.
func Due(s Strategy, step int) bool {
	n := s.Interval()
	if n <= 1 {
		return true
	}
	return step%n == 0
}

// toward returns the unit vector from pos to target, zero if they coincide.
func toward(pos, target r2.Vec) r2.Vec {
	d := r2.Sub(target, pos)
	n := r2.Norm(d)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, d)
}

// UniformRandom heads each agent toward an independent uniform point.
type UniformRandom struct {
	Domain domain.Domain
}

// Interval implements Strategy.
func (UniformRandom) Interval() int { return UniformInterval }

// Heading implements Strategy.
func (u UniformRandom) Heading(pos r2.Vec, rng *rand.Rand) r2.Vec {
	return toward(pos, u.Domain.RandomPoint(rng))
}
