package swarm

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/stepien-lab/MidgePy/internal/host"
)

// Params are the fixed run parameters reported next to the output series.
type Params struct {
	ActiveVelocity    float64
	RoamVelocity      float64
	DetectionDistance float64
	EIP               float64 // days, for the current day
	DPS               float64 // for the current day
	PVtoH             float64
	PHtoV             float64
	HostSize          int
	BiteRate          int
	VectorsPerHost    int
	InitialInfected   int
	DayLength         int
	Turnover          bool
}

// Params reports the run parameters as of the current step.
func (s *Swarm) Params() Params {
	initial := s.InfectedCount()
	if len(s.infectedSeries) > 0 {
		initial = s.infectedSeries[0]
	}
	return Params{
		ActiveVelocity:    s.cfg.ActiveVelocity,
		RoamVelocity:      s.cfg.RoamVelocity,
		DetectionDistance: s.cfg.DetectionDistance,
		EIP:               s.cfg.Schedule.EIP(s.day()),
		DPS:               s.cfg.Schedule.DPS(s.day()),
		PVtoH:             s.cfg.PVtoH,
		PHtoV:             s.cfg.PHtoV,
		HostSize:          s.hosts.Size(),
		BiteRate:          s.cfg.BiteRate,
		VectorsPerHost:    len(s.positions) / s.hosts.Size(),
		InitialInfected:   initial,
		DayLength:         s.cfg.DayLength,
		Turnover:          s.cfg.Turnover,
	}
}

// StepCount is the number of completed steps.
func (s *Swarm) StepCount() int { return s.step }

// Size is the number of midges.
func (s *Swarm) Size() int { return len(s.positions) }

// Hosts is the herd the swarm feeds on.
func (s *Swarm) Hosts() *host.Population { return s.hosts }

// Positions returns the live midge positions. Callers must not modify them.
func (s *Swarm) Positions() []r2.Vec { return s.positions }

// Headings returns the live roaming headings.
func (s *Swarm) Headings() []r2.Vec { return s.headings }

// Infected reports whether midge i is infectious.
func (s *Swarm) Infected(i int) bool { return s.infected[i] }

// Incubating reports whether midge i has acquired the virus.
func (s *Swarm) Incubating(i int) bool { return s.incubating[i] }

// IncubationStart returns the step midge i acquired the virus.
func (s *Swarm) IncubationStart(i int) (int, bool) { return s.incStart[i], s.incubating[i] }

// LastFeed is the step of midge i's latest blood meal.
func (s *Swarm) LastFeed(i int) int { return s.lastFeed[i] }

// State classifies midge i.
func (s *Swarm) State(i int) State { return stateOf(s.infected[i], s.incubating[i]) }

// InfectedCount counts infectious midges.
func (s *Swarm) InfectedCount() int {
	n := 0
	for _, inf := range s.infected {
		if inf {
			n++
		}
	}
	return n
}

// IncubatingCount counts midges carrying the virus that are not yet infectious.
func (s *Swarm) IncubatingCount() int {
	n := 0
	for i, inc := range s.incubating {
		if inc && !s.infected[i] {
			n++
		}
	}
	return n
}

// OutbreakOccurred reports whether any host was ever bitten into incubation.
func (s *Swarm) OutbreakOccurred() bool { return s.hosts.AnyIncubation() }

// Quiescent reports that the virus is gone: no infectious or incubating
// midges, and no host ever infected or incubating.
func (s *Swarm) Quiescent() bool {
	return s.InfectedCount() == 0 && s.IncubatingCount() == 0 &&
		!s.hosts.AnyIncubation() && s.hosts.InfectedCount() == 0
}

// InfectedSeries is the infectious midge count at the start of every step.
func (s *Swarm) InfectedSeries() []int { return s.infectedSeries }

// BiteSeries is the number of blood meals taken each step.
func (s *Swarm) BiteSeries() []int { return s.bites }

// InfectedBiteSeries is the number of blood meals by infectious midges each step.
func (s *Swarm) InfectedBiteSeries() []int { return s.infectedBites }

// DeathSeries holds one entry per simulated day; all zero without turnover.
func (s *Swarm) DeathSeries() []Deaths { return s.deaths }

// PositionHistory is the per-step midge snapshot list when recording is on.
func (s *Swarm) PositionHistory() [][]r2.Vec { return s.posHistory }
