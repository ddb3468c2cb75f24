// Package swarm is the midge swarm engine. A Swarm owns every midge, drives
// their flight, host seeking and feeding, and is the only writer of the
// herd's infection state. One Step call advances the whole system by one tick.
package swarm

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/stepien-lab/MidgePy/internal/domain"
	"github.com/stepien-lab/MidgePy/internal/host"
	"github.com/stepien-lab/MidgePy/internal/movement"
)

// Swarm is the midge population plus references to the herd and domain.
type Swarm struct {
	cfg      Config
	dom      domain.Domain
	hosts    *host.Population
	strategy movement.Strategy
	rng      *rand.Rand

	step int

	positions  []r2.Vec
	headings   []r2.Vec
	infected   []bool
	incubating []bool
	incStart   []int
	lastFeed   []int

	// per-step scratch
	fed         []bool
	nearest     []int
	nearestDist []float64
	toHost      []r2.Vec
	hostDist    []float64

	infectedSeries []int
	bites          []int
	infectedBites  []int
	deaths         []Deaths
	posHistory     [][]r2.Vec
}

// New builds a swarm over hosts. A nil strategy means uniform-random roaming.
func New(dom domain.Domain, hosts *host.Population, strategy movement.Strategy, cfg Config, rng *rand.Rand) (*Swarm, error) {
	if hosts == nil {
		return nil, configErr("hosts", "nil host population")
	}
	if rng == nil {
		return nil, configErr("rng", "nil random source")
	}
	cfg, err := cfg.resolve(hosts.Size())
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		strategy = movement.UniformRandom{Domain: dom}
	}

	n := cfg.Size
	s := &Swarm{
		cfg:         cfg,
		dom:         dom,
		hosts:       hosts,
		strategy:    strategy,
		rng:         rng,
		positions:   make([]r2.Vec, n),
		headings:    make([]r2.Vec, n),
		infected:    make([]bool, n),
		incubating:  make([]bool, n),
		incStart:    make([]int, n),
		lastFeed:    make([]int, n),
		fed:         make([]bool, n),
		nearest:     make([]int, n),
		nearestDist: make([]float64, n),
		toHost:      make([]r2.Vec, n),
		hostDist:    make([]float64, hosts.Size()),
	}

	dom.RandomPoints(s.positions, rng)

	if cfg.Infected != nil {
		copy(s.infected, cfg.Infected)
	} else {
		for i := range s.infected {
			s.infected[i] = rng.Float64() < cfg.InitialInfectedProb
		}
	}

	if cfg.LastFeed != nil {
		copy(s.lastFeed, cfg.LastFeed)
	} else if cfg.BiteRate > 0 {
		for i := range s.lastFeed {
			s.lastFeed[i] = rng.Intn(cfg.BiteRate) - cfg.BiteRate
		}
	}

	return s, nil
}

// PlaceAt overrides midge positions before the first step.
func (s *Swarm) PlaceAt(positions []r2.Vec) error {
	if len(positions) != len(s.positions) {
		return configErr("positions", "%d positions for %d midges", len(positions), len(s.positions))
	}
	for i, p := range positions {
		if !s.dom.Contains(p) {
			return configErr("positions", "midge %d at %v is outside the domain", i, p)
		}
	}
	copy(s.positions, positions)
	return nil
}

// Step advances the swarm and the herd by one tick of dt seconds.
func (s *Swarm) Step(dt float64) {
	s.infectedSeries = append(s.infectedSeries, s.InfectedCount())

	s.mature()

	if s.step%s.cfg.DayLength == 0 {
		s.hosts.Relocate(s.rng)
		d := Deaths{}
		if s.cfg.Turnover {
			d = s.turnover()
		}
		s.deaths = append(s.deaths, d)
	}

	if movement.Due(s.strategy, s.step) {
		movement.Refresh(s.strategy, s.headings, s.positions, s.rng)
	}
	if s.cfg.MoveHosts {
		for i, p := range s.hosts.Positions() {
			s.hosts.Walk(i, s.strategy.Heading(p, s.rng), s.cfg.HostWalkVelocity*dt)
		}
	}

	for i, t := range s.lastFeed {
		s.fed[i] = s.step-t < s.cfg.BiteRate
	}

	s.seek()
	s.fly(dt)
	s.feed(dt)

	if s.cfg.RecordPositions {
		snap := make([]r2.Vec, len(s.positions))
		copy(snap, s.positions)
		s.posHistory = append(s.posHistory, snap)
		s.hosts.RecordPositions()
	}

	s.step++
}

// seek finds every midge's nearest host. Ties go to the lowest host index.
func (s *Swarm) seek() {
	hosts := s.hosts.Positions()
	for i, p := range s.positions {
		for j, h := range hosts {
			s.hostDist[j] = r2.Norm(r2.Sub(h, p))
		}
		k := floats.MinIdx(s.hostDist)
		s.nearest[i] = k
		s.nearestDist[i] = s.hostDist[k]
		s.toHost[i] = r2.Sub(hosts[k], p)
	}
}

// fly moves detecting midges straight at their host and the rest along their
// roaming heading. Both branches use the active flight speed.
func (s *Swarm) fly(dt float64) {
	reach := s.cfg.ActiveVelocity * dt
	for i, p := range s.positions {
		dir := s.headings[i]
		if s.nearestDist[i] < s.cfg.DetectionDistance && !s.fed[i] {
			dir = r2.Vec{}
			if d := s.nearestDist[i]; d != 0 {
				dir = r2.Scale(1/d, s.toHost[i])
			}
		}
		s.positions[i] = s.dom.Clamp(r2.Add(p, r2.Scale(reach, dir)))
	}
}

// RunUntil steps until stop returns true or maxSteps ticks have run, and
// returns the number of steps taken. A negative maxSteps means no limit.
func (s *Swarm) RunUntil(dt float64, maxSteps int, stop func(*Swarm) bool) int {
	n := 0
	for maxSteps < 0 || n < maxSteps {
		if stop != nil && stop(s) {
			break
		}
		s.Step(dt)
		n++
	}
	return n
}

func (s *Swarm) String() string {
	return fmt.Sprintf("swarm{step=%d midges=%d infected=%d hosts=%d infectedHosts=%d}",
		s.step, len(s.positions), s.InfectedCount(), s.hosts.Size(), s.hosts.InfectedCount())
}
