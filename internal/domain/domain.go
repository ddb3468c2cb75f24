// Package domain holds the square region every midge and host lives in.
package domain

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidLength is returned when a domain is built with a non-positive side.
var ErrInvalidLength = errors.New("domain: length must be positive and finite")

// Domain is the square [0,Length) x [0,Length).
type Domain struct {
	length float64
}

// New returns a domain with the given side length.
func New(length float64) (Domain, error) {
	if !(length > 0) || math.IsInf(length, 0) {
		return Domain{}, fmt.Errorf("%w: got %v", ErrInvalidLength, length)
	}
	return Domain{length: length}, nil
}

// Length is the side of the square.
func (d Domain) Length() float64 { return d.length }

// Contains reports whether p lies inside [0,Length)^2.
func (d Domain) Contains(p r2.Vec) bool {
	return p.X >= 0 && p.X < d.length && p.Y >= 0 && p.Y < d.length
}

// Clamp pulls p back inside the domain. The upper edge is open, so the
// largest coordinate returned is the float just below Length.
func (d Domain) Clamp(p r2.Vec) r2.Vec {
	return r2.Vec{X: d.clamp(p.X), Y: d.clamp(p.Y)}
}

func (d Domain) clamp(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v >= d.length {
		return math.Nextafter(d.length, 0)
	}
	return v
}

// RandomPoint draws a point uniformly from the domain.
func (d Domain) RandomPoint(rng *rand.Rand) r2.Vec {
	return r2.Vec{X: rng.Float64() * d.length, Y: rng.Float64() * d.length}
}

// RandomPoints fills dst with independent uniform points.
func (d Domain) RandomPoints(dst []r2.Vec, rng *rand.Rand) {
	for i := range dst {
		dst[i] = d.RandomPoint(rng)
	}
}
