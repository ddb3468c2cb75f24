// Package host models the ruminant herd bitten by the midge swarm.
//
// A Population only moves its own animals. Infection and incubation state is
// written by the swarm engine through BeginIncubation and Mature.
package host

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/stepien-lab/MidgePy/internal/domain"
)

// DefaultIncubationPeriod is the host incubation period in days.
const DefaultIncubationPeriod = 2.0

// ErrInvalidConfig is wrapped by every construction error.
var ErrInvalidConfig = errors.New("host: invalid configuration")

// Config describes the initial herd. Nil slices mean "random positions" and
// "all susceptible".
type Config struct {
	Size              int
	Positions         []r2.Vec
	Infected          []bool
	IncubationPeriod  float64   // days, used when IncubationPeriods is nil
	IncubationPeriods []float64 // per-host days
}

// Population is the herd.
type Population struct {
	dom domain.Domain

	positions  []r2.Vec
	infected   []bool
	incubating []bool
	incStart   []int
	incPeriod  []float64

	totalInfected []int
	posHistory    [][]r2.Vec
}

// New builds a herd inside dom.
func New(dom domain.Domain, cfg Config, rng *rand.Rand) (*Population, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, cfg.Size)
	}
	n := cfg.Size

	p := &Population{
		dom:        dom,
		positions:  make([]r2.Vec, n),
		infected:   make([]bool, n),
		incubating: make([]bool, n),
		incStart:   make([]int, n),
		incPeriod:  make([]float64, n),
	}

	switch {
	case cfg.Positions == nil:
		dom.RandomPoints(p.positions, rng)
	case len(cfg.Positions) != n:
		return nil, fmt.Errorf("%w: %d positions for %d hosts", ErrInvalidConfig, len(cfg.Positions), n)
	default:
		for i, pos := range cfg.Positions {
			if !dom.Contains(pos) {
				return nil, fmt.Errorf("%w: host %d position %v outside domain", ErrInvalidConfig, i, pos)
			}
		}
		copy(p.positions, cfg.Positions)
	}

	if cfg.Infected != nil {
		if len(cfg.Infected) != n {
			return nil, fmt.Errorf("%w: %d infection flags for %d hosts", ErrInvalidConfig, len(cfg.Infected), n)
		}
		copy(p.infected, cfg.Infected)
	}

	switch {
	case cfg.IncubationPeriods != nil:
		if len(cfg.IncubationPeriods) != n {
			return nil, fmt.Errorf("%w: %d incubation periods for %d hosts", ErrInvalidConfig, len(cfg.IncubationPeriods), n)
		}
		for i, d := range cfg.IncubationPeriods {
			if d < 0 {
				return nil, fmt.Errorf("%w: host %d incubation period %v is negative", ErrInvalidConfig, i, d)
			}
		}
		copy(p.incPeriod, cfg.IncubationPeriods)
	default:
		period := cfg.IncubationPeriod
		if period < 0 {
			return nil, fmt.Errorf("%w: incubation period %v is negative", ErrInvalidConfig, period)
		}
		for i := range p.incPeriod {
			p.incPeriod[i] = period
		}
	}

	return p, nil
}

// Size is the number of hosts.
func (p *Population) Size() int { return len(p.positions) }

// Positions returns the live position slice. Callers must not modify it.
func (p *Population) Positions() []r2.Vec { return p.positions }

// Relocate scatters every host to a fresh uniform point.
func (p *Population) Relocate(rng *rand.Rand) {
	p.dom.RandomPoints(p.positions, rng)
}

// Walk moves host i by dist along heading, staying inside the domain.
func (p *Population) Walk(i int, heading r2.Vec, dist float64) {
	p.positions[i] = p.dom.Clamp(r2.Add(p.positions[i], r2.Scale(dist, heading)))
}

// Infected reports whether host i is infectious.
func (p *Population) Infected(i int) bool { return p.infected[i] }

// Incubating reports whether host i was ever bitten into incubation.
func (p *Population) Incubating(i int) bool { return p.incubating[i] }

// IncubationStart returns the step host i began incubating.
func (p *Population) IncubationStart(i int) (int, bool) {
	return p.incStart[i], p.incubating[i]
}

// BeginIncubation starts incubation in host i at step. Only the first call for
// a host has any effect; it reports whether the call started incubation.
// Hosts that are already infectious, including those infected from the start,
// are left without an incubation record.
func (p *Population) BeginIncubation(i, step int) bool {
	if p.incubating[i] || p.infected[i] {
		return false
	}
	p.incubating[i] = true
	p.incStart[i] = step
	return true
}

// Mature flips incubating hosts whose incubation period has elapsed to
// infected. The incubation record is kept.
func (p *Population) Mature(step, dayLength int) {
	for i, inc := range p.incubating {
		if !inc || p.infected[i] {
			continue
		}
		if float64(step-p.incStart[i]) >= float64(dayLength)*p.incPeriod[i] {
			p.infected[i] = true
		}
	}
}

// InfectedCount counts infectious hosts.
func (p *Population) InfectedCount() int {
	n := 0
	for _, inf := range p.infected {
		if inf {
			n++
		}
	}
	return n
}

// AnyIncubation reports whether any host was ever bitten into incubation.
func (p *Population) AnyIncubation() bool {
	for _, inc := range p.incubating {
		if inc {
			return true
		}
	}
	return false
}

// RecordInfected appends the current infectious count to the history.
func (p *Population) RecordInfected() {
	p.totalInfected = append(p.totalInfected, p.InfectedCount())
}

// RecordPositions appends a copy of the current positions.
func (p *Population) RecordPositions() {
	snap := make([]r2.Vec, len(p.positions))
	copy(snap, p.positions)
	p.posHistory = append(p.posHistory, snap)
}

// TotalInfectedHistory is the per-step infectious count.
func (p *Population) TotalInfectedHistory() []int { return p.totalInfected }

// PositionHistory is the per-step snapshot list, empty unless recorded.
func (p *Population) PositionHistory() [][]r2.Vec { return p.posHistory }
